package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/lectern-api/internal/config"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/hub"
	"github.com/phrazzld/lectern-api/internal/parser"
	"github.com/phrazzld/lectern-api/internal/pipeline"
	"github.com/phrazzld/lectern-api/internal/platform/gemini"
	"github.com/phrazzld/lectern-api/internal/platform/openai"
	"github.com/phrazzld/lectern-api/internal/platform/postgres"
	"github.com/phrazzld/lectern-api/internal/platform/ytdlp"
	"github.com/phrazzld/lectern-api/internal/processor"
	"github.com/phrazzld/lectern-api/internal/service"
	"github.com/phrazzld/lectern-api/internal/service/auth"
	"github.com/phrazzld/lectern-api/internal/store"
)

// application holds the composed dependency graph. Every component is
// constructed exactly once here and passed down explicitly.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	hub       *hub.Hub
	processor *processor.Service
	jobs      service.JobService
	verifier  auth.TokenVerifier
}

// newApplication builds the full application graph: database, stores,
// content acquisition, the processing pipeline, and the API services.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established")

	jobStore := postgres.NewPostgresJobStore(db, logger)
	questionStore := postgres.NewPostgresQuestionStore(db, logger)

	// Content acquisition and generation backends.
	generator, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	transcriber := openai.NewTranscriber(logger, cfg.Transcription)
	downloader := ytdlp.NewDownloader(logger, cfg.Media)

	parsers := parser.NewRegistry()
	parsers.Register(domain.SourceKindPDF, parser.NewPDFParser(logger))
	parsers.Register(domain.SourceKindDocx, parser.NewDocxParser(logger))
	parsers.Register(domain.SourceKindWeb, parser.NewWebParser(logger, cfg.Media.MaxContentChars))
	parsers.Register(domain.SourceKindCollection, parser.NewCollectionParser(parsers, logger))

	// Event fan-out and the pipeline stages.
	eventHub := hub.NewHub(logger)
	progress := pipeline.NewReporter(jobStore, eventHub, logger)

	videoExtraction := pipeline.NewVideoExtractionStage(downloader, transcriber, jobStore, progress, logger)
	contentExtraction := pipeline.NewContentExtractionStage(parsers, cfg.Media.MaxContentChars, jobStore, progress, logger)
	analysis := pipeline.NewAnalysisStage(generator, jobStore, progress, logger)
	questions := pipeline.NewQuestionStage(generator, questionStore, progress, logger)

	videoWorkflow := pipeline.NewWorkflow("video",
		[]pipeline.Stage{videoExtraction, analysis, questions},
		jobStore, eventHub, logger)
	contentWorkflow := pipeline.NewWorkflow("content",
		[]pipeline.Stage{contentExtraction, analysis, questions},
		jobStore, eventHub, logger)

	proc := processor.NewService(logger, cfg.Processor)
	proc.Register(domain.SourceKindVideo, videoWorkflow)
	proc.Register(domain.SourceKindPDF, contentWorkflow)
	proc.Register(domain.SourceKindDocx, contentWorkflow)
	proc.Register(domain.SourceKindWeb, contentWorkflow)
	proc.Register(domain.SourceKindCollection, contentWorkflow)

	jobService, err := service.NewJobService(store.NewTxRunner(db), jobStore, questionStore, proc, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	// Token verification is optional: without a secret every request
	// runs anonymously.
	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier, err = auth.NewVerifier(cfg.Auth)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
	}

	return &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		hub:       eventHub,
		processor: proc,
		jobs:      jobService,
		verifier:  verifier,
	}, nil
}

// openDatabase connects to Postgres and verifies the connection.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}
}
