// Package main implements the entry point for the Lectern API server,
// which turns video URLs and documents into transcripts, summaries, and
// auto-generated quizzes through an asynchronous processing pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/phrazzld/lectern-api/internal/config"
	"github.com/phrazzld/lectern-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	// A missing .env file is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	appLogger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Int("max_concurrent_jobs", cfg.Processor.MaxConcurrentJobs))

	if *migrateCmd != "" {
		if err := runMigrationCommand(cfg, appLogger, *migrateCmd); err != nil {
			appLogger.Error("migration failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// run assembles the application and serves until a shutdown signal.
func run(cfg *config.Config, appLogger *slog.Logger) error {
	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	if err := migrateUp(app.db, appLogger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return app.serve(ctx)
}
