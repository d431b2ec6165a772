package commands

import (
	"fmt"

	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(res Resources, logger *observability.Logger) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the vibe backend.

Available commands:
  migrate   - Apply pending schema migrations
  version   - Show the applied migration version
  info      - Show connection details`,
	}

	dbCmd.AddCommand(migrateCmd(res, logger))
	dbCmd.AddCommand(versionCmd(res))
	dbCmd.AddCommand(infoCmd(res))

	return dbCmd
}

func migrateCmd(res Resources, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := res.Database(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to connect to database")
			}
			migrator, err := res.Migrator(ctx)
			if err != nil {
				return err
			}

			logger.Info(ctx, "Running migrations", map[string]interface{}{"database_url": maskDatabaseURL(res.DatabaseURL())})
			if err := migrator.RunMigrations(ctx, db); err != nil {
				return contextutils.WrapError(err, "migration failed")
			}

			version, dirty, err := migrator.MigrationVersion(ctx, db)
			if err != nil {
				return contextutils.WrapError(err, "failed to read migration version")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied, schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

func versionCmd(res Resources) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := res.Database(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to connect to database")
			}
			migrator, err := res.Migrator(ctx)
			if err != nil {
				return err
			}

			version, dirty, err := migrator.MigrationVersion(ctx, db)
			if err != nil {
				return contextutils.WrapError(err, "failed to read migration version")
			}
			if version == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

func infoCmd(res Resources) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show connection details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			fmt.Fprintf(cmd.OutOrStdout(), "URL:    %s\n", maskDatabaseURL(res.DatabaseURL()))

			db, err := res.Database(ctx)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", getDatabaseInfo(ctx, nil))
				return contextutils.WrapError(err, "failed to connect to database")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", getDatabaseInfo(ctx, db))
			return nil
		},
	}
}
