package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:blankimports // postgres:// URLs
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jonesrussell/civic-triage/infrastructure/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func newMigrator(cfg Config) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrationURL())
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp applies pending migrations. SQLite databases get the embedded
// schema instead.
func MigrateUp(ctx context.Context, cfg Config, log logger.Logger) error {
	cfg.SetDefaults()
	if cfg.Driver == DriverSQLite {
		db, err := Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		return db.Close()
	}

	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No pending migrations")
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	log.Info("Migrations applied successfully")
	return nil
}

// MigrateDown rolls back steps migrations, at least one.
func MigrateDown(cfg Config, steps int, log logger.Logger) error {
	cfg.SetDefaults()
	if cfg.Driver == DriverSQLite {
		return errors.New("sqlite databases do not support rollback; delete the database file instead")
	}
	if steps <= 0 {
		steps = 1
	}

	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No migrations to rollback")
			return nil
		}
		return fmt.Errorf("rollback migrations: %w", err)
	}

	log.Info("Migrations rolled back successfully", logger.Int("steps", steps))
	return nil
}

// MigrationVersion reports the applied version and dirty flag.
func MigrationVersion(cfg Config) (uint, bool, error) {
	cfg.SetDefaults()
	m, err := newMigrator(cfg)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}
