package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lectern-api/internal/config"
	"github.com/phrazzld/lectern-api/migrations"
	"github.com/pressly/goose/v3"
)

// slogGooseLogger adapts goose's logger interface to slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...), "source", "goose")
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), "source", "goose")
}

func configureGoose() error {
	goose.SetLogger(&slogGooseLogger{})
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("postgres")
}

// migrateUp applies all pending migrations. Called on normal startup so
// a fresh deployment bootstraps its own schema.
func migrateUp(db *sql.DB, logger *slog.Logger) error {
	if err := configureGoose(); err != nil {
		return fmt.Errorf("failed to configure goose: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}

// runMigrationCommand executes a single migration operation and exits,
// for use from the -migrate flag.
func runMigrationCommand(cfg *config.Config, logger *slog.Logger, command string) error {
	db, err := openDatabase(context.Background(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := configureGoose(); err != nil {
		return fmt.Errorf("failed to configure goose: %w", err)
	}

	logger.Info("running migration command", slog.String("command", command))
	switch command {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	return err
}
