// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"

	serviceinterfaces "github.com/AgamW017/vibe/internal/serviceinterfaces"
)

// Resources hands commands the backends they need. Implementations connect on first use
// so that commands which never touch the database run without one.
type Resources interface {
	FeedbackStore(ctx context.Context) (serviceinterfaces.FeedbackStore, error)
	GenerationFacade(ctx context.Context) (serviceinterfaces.GenerationFacade, error)
	Database(ctx context.Context) (*sql.DB, error)
	Migrator(ctx context.Context) (Migrator, error)
	DatabaseURL() string
}

// Migrator applies and reports schema migrations
type Migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	MigrationVersion(ctx context.Context, db *sql.DB) (version uint, dirty bool, err error)
}
