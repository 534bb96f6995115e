package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
)

// JobStore defines the interface for job data persistence. Each mutation is
// its own atomic read-modify-write; no long-lived transaction spans multiple
// pipeline stages. Writes that are only meaningful while a job is processing
// (progress, stage results, terminal transitions out of processing) are
// fenced on status = processing and return ErrJobNotProcessing when the fence
// rejects the write — that is how a running stage observes cooperative
// cancellation.
// Version: 1.0
type JobStore interface {
	// Create saves a new job to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// FindBySource retrieves the most recently created job for the given
	// primary input. This is the duplicate-submission guard: resubmitting
	// the same input returns the existing job rather than creating a new one.
	// Returns ErrJobNotFound if no job exists for the source.
	FindBySource(ctx context.Context, source string) (*domain.Job, error)

	// List retrieves jobs ordered by creation time descending. When userID is
	// non-nil the result is scoped to that user. Returns the page of jobs and
	// the total count matching the scope.
	List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*domain.Job, int, error)

	// ClaimPending atomically transitions a job from pending to processing
	// with progress reset to zero. This conditional update is the
	// authoritative admission gate for execution: at most one caller can win
	// the claim. Returns ErrInvalidJobState if the job is not pending, or
	// ErrJobNotFound if it does not exist.
	ClaimPending(ctx context.Context, id uuid.UUID) error

	// UpdateProgress writes a new progress value, fenced on processing.
	UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) error

	// SetSourceMetadata persists the acquired title and duration, fenced on processing.
	SetSourceMetadata(ctx context.Context, id uuid.UUID, title string, durationSeconds int) error

	// SetTranscript persists the extracted text, fenced on processing.
	SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error

	// SetSummary persists the generated summary, fenced on processing.
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error

	// MarkCompleted transitions processing -> completed, forces progress to
	// 100 and sets completed_at. Fenced on processing.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// MarkFailed transitions processing -> failed, stores the error message
	// and sets completed_at. Progress is left at its last value. Fenced on
	// processing.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error

	// Cancel transitions pending|processing -> cancelled. Returns
	// ErrInvalidJobState when the job is already terminal.
	Cancel(ctx context.Context, id uuid.UUID) error

	// ResetForRetry reopens a failed job: status back to pending, progress
	// zero, error message, completion timestamp and stage-specific result
	// fields cleared. Only valid from failed; returns ErrInvalidJobState
	// otherwise.
	ResetForRetry(ctx context.Context, id uuid.UUID) error

	// Delete removes a job (and, via cascade, its quiz questions).
	// Returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new JobStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) JobStore
}

// QuestionStore defines the interface for quiz question persistence.
// Version: 1.0
type QuestionStore interface {
	// CreateBatch saves all questions inside a single transaction.
	CreateBatch(ctx context.Context, questions []*domain.QuizQuestion) error

	// FindByJobID retrieves all questions generated for the given job,
	// ordered by creation time. Returns an empty slice when none exist.
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*domain.QuizQuestion, error)

	// DeleteByJobID removes all questions for the given job. Used when a
	// failed job is reset for retry so the regenerated quiz replaces the old
	// one. Deleting zero rows is not an error.
	DeleteByJobID(ctx context.Context, jobID uuid.UUID) error

	// WithTx returns a new QuestionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) QuestionStore
}
