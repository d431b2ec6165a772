// Package main provides the entry point for the vibe backend server.
// It wires the service container, the HTTP router and graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/di"
	"github.com/AgamW017/vibe/internal/handlers"
	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"
	"github.com/AgamW017/vibe/internal/version"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	server    *http.Server
}

// NewApplication builds the HTTP server from an initialized container
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	feedbackStore, err := container.GetFeedbackStore()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get feedback store")
	}

	generationFacade, err := container.GetGenerationFacade()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get generation facade")
	}

	aiService, err := container.GetAIService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get AI service")
	}

	cfg := container.GetConfig()
	router := handlers.NewRouter(cfg, feedbackStore, generationFacade, aiService, container.GetLogger())

	return &Application{
		container: container,
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: config.DefaultHTTPTimeout,
		},
	}, nil
}

// Run serves until the server is shut down or fails
func (a *Application) Run() error {
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown drains in-flight requests and then releases the container's services
func (a *Application) Shutdown(ctx context.Context) error {
	serverErr := a.server.Shutdown(ctx)
	containerErr := a.container.Shutdown(ctx)
	if serverErr != nil {
		return contextutils.WrapError(serverErr, "http server shutdown failed")
	}
	return containerErr
}

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred flushes happen before exit
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	tp, mp, logger, err := observability.SetupObservabilityWithLevel(&cfg.OpenTelemetry, "", cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.TelemetryFlushWait)
		defer shutdownCancel()

		if tp != nil {
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting vibe backend service", map[string]interface{}{
		"port":      cfg.Server.Port,
		"log_level": cfg.Server.LogLevel,
		"version":   version.Version,
		"commit":    version.Commit,
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		return 1
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		_ = container.Shutdown(context.Background())
		return 1
	}

	appErr := make(chan error, 1)
	go func() {
		appErr <- app.Run()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Received shutdown signal, shutting down gracefully")
	case err := <-appErr:
		if err != nil {
			logger.Error(context.Background(), "Application failed", err)
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownWait)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error during application shutdown", err)
		exitCode = 1
	}

	if exitCode == 0 {
		logger.Info(shutdownCtx, "Shutdown completed successfully")
	}
	return exitCode
}
