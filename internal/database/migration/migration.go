package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"meetnote/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Source returns the embedded migration files as a golang-migrate source.
func Source() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migrations source: %w", err)
	}
	return src, nil
}

// EnsureMigrated applies every pending up migration to db. An already current schema is not an error.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(slog.String("component", "database"), slog.String("db_host", dbHost))

	log.InfoContext(ctx, "db_migration_check", slog.String("status", "starting"))

	src, err := Source()
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.ErrorContext(ctx, "db_migration_failed",
			slog.String("status", "error"),
			logging.Err(err),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.InfoContext(ctx, "db_migration_skip",
				slog.String("status", "success"),
				slog.String("detail", "schema already current"),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return nil
		}
		log.ErrorContext(ctx, "db_migration_failed",
			slog.String("status", "error"),
			logging.Err(err),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	log.InfoContext(ctx, "db_migration_success",
		slog.String("status", "success"),
		slog.Uint64("version", uint64(version)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
