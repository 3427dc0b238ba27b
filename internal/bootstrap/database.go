package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/config"
	"github.com/jonesrussell/civic-triage/internal/database"
)

// SetupDatabase opens the configured database and wraps it in a Store.
func SetupDatabase(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*sqlx.DB, *database.Store, error) {
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection: %w", err)
	}
	return db, database.NewStore(db), nil
}
