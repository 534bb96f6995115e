package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/store"
)

// Submitter schedules jobs for background execution.
type Submitter interface {
	// Submit hands a pending job to the processor.
	Submit(job *domain.Job) error

	// IsRunning reports whether the job is currently executing.
	IsRunning(id uuid.UUID) bool
}

// JobService provides job lifecycle operations for the API layer.
type JobService interface {
	// Submit creates a job for the source and schedules it. Submission
	// is idempotent by source: when a job already exists for the same
	// source the existing job is returned and created is false.
	Submit(ctx context.Context, userID *uuid.UUID, kind domain.SourceKind, source string, params domain.ProcessingParams) (job *domain.Job, created bool, err error)

	// Get retrieves a job by ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// GetCompleted retrieves a job and verifies it finished successfully.
	// Returns ErrJobNotCompleted otherwise.
	GetCompleted(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// List pages through jobs, newest first, optionally scoped to a user.
	List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*domain.Job, int, error)

	// Results returns a completed job together with its quiz questions.
	Results(ctx context.Context, id uuid.UUID) (*domain.Job, []*domain.QuizQuestion, error)

	// Quiz returns the questions generated for a completed job.
	Quiz(ctx context.Context, jobID uuid.UUID) ([]*domain.QuizQuestion, error)

	// Retry reopens a failed job and schedules it again with its
	// originally stored parameters. Questions from the failed run are
	// discarded.
	Retry(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Cancel requests cooperative cancellation of a pending or
	// processing job.
	Cancel(ctx context.Context, id uuid.UUID) error

	// Delete removes a job and its questions. Processing jobs must be
	// cancelled first.
	Delete(ctx context.Context, id uuid.UUID) error
}

type jobServiceImpl struct {
	tx        store.TxRunner
	jobs      store.JobStore
	questions store.QuestionStore
	processor Submitter
	logger    *slog.Logger
}

var _ JobService = (*jobServiceImpl)(nil)

// NewJobService creates a JobService. All dependencies are required.
func NewJobService(
	tx store.TxRunner,
	jobs store.JobStore,
	questions store.QuestionStore,
	processor Submitter,
	logger *slog.Logger,
) (JobService, error) {
	if tx == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "transaction runner cannot be nil"}
	}
	if jobs == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "jobs store cannot be nil"}
	}
	if questions == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "questions store cannot be nil"}
	}
	if processor == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "processor cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		tx:        tx,
		jobs:      jobs,
		questions: questions,
		processor: processor,
		logger:    logger.With(slog.String("component", "job_service")),
	}, nil
}

func (s *jobServiceImpl) Submit(
	ctx context.Context,
	userID *uuid.UUID,
	kind domain.SourceKind,
	source string,
	params domain.ProcessingParams,
) (*domain.Job, bool, error) {
	if !domain.IsValidSourceKind(kind) {
		return nil, false, ErrUnsupportedSource
	}

	// Duplicate guard: the same source maps to the same job.
	existing, err := s.jobs.FindBySource(ctx, source)
	if err == nil {
		s.logger.Info("returning existing job for duplicate submission",
			slog.String("job_id", existing.ID.String()),
			slog.String("status", string(existing.Status)))
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrJobNotFound) {
		return nil, false, &JobServiceError{Operation: "submit", Message: "duplicate lookup failed", Err: err}
	}

	job, err := domain.NewJob(userID, kind, source, params)
	if err != nil {
		return nil, false, &JobServiceError{Operation: "submit", Message: "invalid job", Err: err}
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		// A concurrent submission of the same source may have won.
		if errors.Is(err, store.ErrDuplicate) {
			if existing, findErr := s.jobs.FindBySource(ctx, source); findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, &JobServiceError{Operation: "submit", Message: "failed to create job", Err: err}
	}

	if err := s.processor.Submit(job); err != nil {
		return nil, false, &JobServiceError{Operation: "submit", Message: "failed to schedule job", Err: err}
	}

	s.logger.Info("job submitted",
		slog.String("job_id", job.ID.String()),
		slog.String("source_kind", string(kind)))
	return job, true, nil
}

func (s *jobServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, &JobServiceError{Operation: "get", Message: "lookup failed", Err: err}
	}
	return job, nil
}

func (s *jobServiceImpl) GetCompleted(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, ErrJobNotCompleted
	}
	return job, nil
}

func (s *jobServiceImpl) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*domain.Job, int, error) {
	jobs, total, err := s.jobs.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, &JobServiceError{Operation: "list", Message: "listing failed", Err: err}
	}
	return jobs, total, nil
}

func (s *jobServiceImpl) Results(ctx context.Context, id uuid.UUID) (*domain.Job, []*domain.QuizQuestion, error) {
	job, err := s.GetCompleted(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.questions.FindByJobID(ctx, id)
	if err != nil {
		return nil, nil, &JobServiceError{Operation: "results", Message: "question lookup failed", Err: err}
	}
	return job, questions, nil
}

func (s *jobServiceImpl) Quiz(ctx context.Context, jobID uuid.UUID) ([]*domain.QuizQuestion, error) {
	_, questions, err := s.Results(ctx, jobID)
	return questions, err
}

func (s *jobServiceImpl) Retry(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusFailed {
		return nil, ErrJobNotRetryable
	}

	// Reopen the job and drop the failed run's questions atomically so
	// the regenerated quiz fully replaces the old one.
	err = s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.jobs.WithTx(tx).ResetForRetry(ctx, id); err != nil {
			return err
		}
		return s.questions.WithTx(tx).DeleteByJobID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidJobState) {
			return nil, ErrJobNotRetryable
		}
		return nil, &JobServiceError{Operation: "retry", Message: "failed to reset job", Err: err}
	}

	reopened, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.processor.Submit(reopened); err != nil {
		return nil, &JobServiceError{Operation: "retry", Message: "failed to schedule job", Err: err}
	}

	s.logger.Info("job resubmitted after failure", slog.String("job_id", id.String()))
	return reopened, nil
}

func (s *jobServiceImpl) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.jobs.Cancel(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrJobNotFound):
			return ErrJobNotFound
		case errors.Is(err, store.ErrInvalidJobState):
			return ErrJobNotCancellable
		default:
			return &JobServiceError{Operation: "cancel", Message: "failed to cancel job", Err: err}
		}
	}

	s.logger.Info("job cancelled", slog.String("job_id", id.String()))
	return nil
}

func (s *jobServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == domain.JobStatusProcessing || s.processor.IsRunning(id) {
		return ErrJobStillProcessing
	}

	if err := s.jobs.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return ErrJobNotFound
		}
		return &JobServiceError{Operation: "delete", Message: "failed to delete job", Err: err}
	}

	s.logger.Info("job deleted", slog.String("job_id", id.String()))
	return nil
}
