package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/platform/logger"
	"github.com/phrazzld/lectern-api/internal/store"
)

// jobColumns is the canonical column list scanned by scanJob.
const jobColumns = `id, user_id, source_kind, source, params, status, progress,
	title, duration_seconds, transcript, summary, error_message, created_at, completed_at`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// JobStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// WithTx implements store.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.JobStore.Create
func (s *PostgresJobStore) Create(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during create",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal job params: %w", err)
	}

	query := `
		INSERT INTO jobs (id, user_id, source_kind, source, params, status, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.UserID,
		job.SourceKind,
		job.Source,
		params,
		job.Status,
		job.Progress,
		job.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate job during create",
				slog.String("job_id", job.ID.String()))
			return store.ErrDuplicate
		}

		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	log.Info("job created",
		slog.String("job_id", job.ID.String()),
		slog.String("source_kind", string(job.SourceKind)),
		slog.String("status", string(job.Status)))
	return nil
}

// GetByID implements store.JobStore.GetByID
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1`, jobColumns)
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("job not found", slog.String("job_id", id.String()))
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to get job",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return nil, err
	}

	return job, nil
}

// FindBySource implements store.JobStore.FindBySource
func (s *PostgresJobStore) FindBySource(ctx context.Context, source string) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE source = $1
		ORDER BY created_at DESC
		LIMIT 1`, jobColumns)

	job, err := scanJob(s.db.QueryRowContext(ctx, query, source))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to find job by source",
			slog.String("error", err.Error()))
		return nil, err
	}

	return job, nil
}

// List implements store.JobStore.List
func (s *PostgresJobStore) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*domain.Job, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM jobs WHERE $1::uuid IS NULL OR user_id = $1`
	if err := s.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		log.Error("failed to count jobs", slog.String("error", err.Error()))
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE $1::uuid IS NULL OR user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, jobColumns)

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to list jobs", slog.String("error", err.Error()))
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*domain.Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

// ClaimPending implements store.JobStore.ClaimPending. The conditional update
// from pending to processing is the admission gate: exactly one caller can
// win the claim for a given submission.
func (s *PostgresJobStore) ClaimPending(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $2, progress = 0
		WHERE id = $1 AND status = $3
	`
	result, err := s.db.ExecContext(ctx, query, id, domain.JobStatusProcessing, domain.JobStatusPending)
	if err != nil {
		log.Error("failed to claim job",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return s.stateErrorFor(ctx, id)
	}

	log.Info("job claimed for processing", slog.String("job_id", id.String()))
	return nil
}

// UpdateProgress implements store.JobStore.UpdateProgress
func (s *PostgresJobStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) error {
	query := `
		UPDATE jobs
		SET progress = $2
		WHERE id = $1 AND status = $3
	`
	return s.fencedExec(ctx, id, query, id, progress, domain.JobStatusProcessing)
}

// SetSourceMetadata implements store.JobStore.SetSourceMetadata
func (s *PostgresJobStore) SetSourceMetadata(ctx context.Context, id uuid.UUID, title string, durationSeconds int) error {
	query := `
		UPDATE jobs
		SET title = $2, duration_seconds = $3
		WHERE id = $1 AND status = $4
	`
	return s.fencedExec(ctx, id, query, id, title, durationSeconds, domain.JobStatusProcessing)
}

// SetTranscript implements store.JobStore.SetTranscript
func (s *PostgresJobStore) SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	query := `
		UPDATE jobs
		SET transcript = $2
		WHERE id = $1 AND status = $3
	`
	return s.fencedExec(ctx, id, query, id, transcript, domain.JobStatusProcessing)
}

// SetSummary implements store.JobStore.SetSummary
func (s *PostgresJobStore) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	query := `
		UPDATE jobs
		SET summary = $2
		WHERE id = $1 AND status = $3
	`
	return s.fencedExec(ctx, id, query, id, summary, domain.JobStatusProcessing)
}

// MarkCompleted implements store.JobStore.MarkCompleted
func (s *PostgresJobStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $2, progress = 100, completed_at = $3
		WHERE id = $1 AND status = $4
	`
	err := s.fencedExec(ctx, id, query, id, domain.JobStatusCompleted, time.Now().UTC(), domain.JobStatusProcessing)
	if err != nil {
		return err
	}

	log.Info("job completed", slog.String("job_id", id.String()))
	return nil
}

// MarkFailed implements store.JobStore.MarkFailed
func (s *PostgresJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`
	err := s.fencedExec(ctx, id, query,
		id, domain.JobStatusFailed, errorMessage, time.Now().UTC(), domain.JobStatusProcessing)
	if err != nil {
		return err
	}

	log.Info("job marked failed",
		slog.String("job_id", id.String()),
		slog.String("error_message", errorMessage))
	return nil
}

// Cancel implements store.JobStore.Cancel
func (s *PostgresJobStore) Cancel(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $2, error_message = $3
		WHERE id = $1 AND status IN ($4, $5)
	`
	result, err := s.db.ExecContext(ctx, query,
		id, domain.JobStatusCancelled, "Job cancelled by user",
		domain.JobStatusPending, domain.JobStatusProcessing)
	if err != nil {
		log.Error("failed to cancel job",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return s.stateErrorFor(ctx, id)
	}

	log.Info("job cancelled", slog.String("job_id", id.String()))
	return nil
}

// ResetForRetry implements store.JobStore.ResetForRetry. Title and duration
// survive a retry; the transcript, summary and error state are stage
// results and are cleared.
func (s *PostgresJobStore) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $2, progress = 0, error_message = NULL, completed_at = NULL,
		    transcript = NULL, summary = NULL
		WHERE id = $1 AND status = $3
	`
	result, err := s.db.ExecContext(ctx, query, id, domain.JobStatusPending, domain.JobStatusFailed)
	if err != nil {
		log.Error("failed to reset job for retry",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return s.stateErrorFor(ctx, id)
	}

	log.Info("job reset for retry", slog.String("job_id", id.String()))
	return nil
}

// Delete implements store.JobStore.Delete
func (s *PostgresJobStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete job",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return store.ErrJobNotFound
	}

	log.Info("job deleted", slog.String("job_id", id.String()))
	return nil
}

// fencedExec runs an update that is conditional on status = processing and
// maps a zero-row result to ErrJobNotProcessing (or ErrJobNotFound). Running
// stages rely on this to observe cooperative cancellation.
func (s *PostgresJobStore) fencedExec(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("fenced job update failed",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrJobNotFound
		}
		return store.ErrJobNotProcessing
	}

	return nil
}

// stateErrorFor distinguishes "wrong state" from "missing row" after a
// conditional update touched zero rows.
func (s *PostgresJobStore) stateErrorFor(ctx context.Context, id uuid.UUID) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: status is %s", store.ErrInvalidJobState, status)
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob maps one jobs row onto a domain.Job.
func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job          domain.Job
		userID       sql.Null[uuid.UUID]
		params       []byte
		title        sql.NullString
		duration     sql.NullInt64
		transcript   sql.NullString
		summary      sql.NullString
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&userID,
		&job.SourceKind,
		&job.Source,
		&params,
		&job.Status,
		&job.Progress,
		&title,
		&duration,
		&transcript,
		&summary,
		&errorMessage,
		&job.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(params, &job.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job params: %w", err)
	}

	if userID.Valid {
		job.UserID = &userID.V
	}
	if title.Valid {
		job.Title = &title.String
	}
	if duration.Valid {
		d := int(duration.Int64)
		job.DurationSeconds = &d
	}
	if transcript.Valid {
		job.Transcript = &transcript.String
	}
	if summary.Valid {
		job.Summary = &summary.String
	}
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}
