// Package main provides the entry point for the vibe admin CLI tool.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/AgamW017/vibe/cmd/adm/commands"
	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/di"
	"github.com/AgamW017/vibe/internal/observability"
	serviceinterfaces "github.com/AgamW017/vibe/internal/serviceinterfaces"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/spf13/cobra"
)

// containerResources opens the container lazily, so playlist commands never dial the database
type containerResources struct {
	container *di.ServiceContainer
	cfg       *config.Config
}

func (r *containerResources) FeedbackStore(ctx context.Context) (serviceinterfaces.FeedbackStore, error) {
	if err := r.container.Initialize(ctx); err != nil {
		return nil, err
	}
	return r.container.GetFeedbackStore()
}

func (r *containerResources) GenerationFacade(ctx context.Context) (serviceinterfaces.GenerationFacade, error) {
	if err := r.container.InitializeGeneration(ctx); err != nil {
		return nil, err
	}
	return r.container.GetGenerationFacade()
}

func (r *containerResources) Database(ctx context.Context) (*sql.DB, error) {
	if err := r.container.Initialize(ctx); err != nil {
		return nil, err
	}
	return r.container.GetDatabase(), nil
}

func (r *containerResources) Migrator(ctx context.Context) (commands.Migrator, error) {
	if err := r.container.Initialize(ctx); err != nil {
		return nil, err
	}
	manager := r.container.GetDatabaseManager()
	if manager == nil {
		return nil, contextutils.ErrorWithContextf("database manager not initialized")
	}
	return manager, nil
}

func (r *containerResources) DatabaseURL() string {
	return r.cfg.Database.URL
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// The admin tool logs errors only and never exports telemetry
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false
	// Schema changes only happen through "db migrate"
	cfg.Database.RunMigrations = false

	_, _, logger, err := observability.SetupObservabilityWithLevel(&cfg.OpenTelemetry, "vibe-admin", cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	container := di.NewServiceContainer(cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.AIShutdownTimeout)
		defer cancel()
		if err := container.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "Error shutting down services", map[string]interface{}{"error": err.Error()})
		}
	}()

	rootCmd := newRootCommand(&containerResources{container: container, cfg: cfg}, logger)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCommand(res commands.Resources, logger *observability.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Vibe Administration Tool",
		Long: `Vibe Administration Tool

Commands for inspecting feedback, managing the database schema
and checking playlist resolution.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.DatabaseCommands(res, logger))
	rootCmd.AddCommand(commands.FeedbackCommands(res, logger))
	rootCmd.AddCommand(commands.PlaylistCommands(res, logger))

	return rootCmd
}
