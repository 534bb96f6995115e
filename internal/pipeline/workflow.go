package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/store"
)

// maxErrorMessageLen bounds the error text persisted on failed jobs.
const maxErrorMessageLen = 500

// Workflow runs an ordered list of stages for one source kind. The
// workflow is the only place that translates stage outcomes into
// terminal job states; stages themselves never mark a job failed.
type Workflow struct {
	name     string
	stages   []Stage
	jobs     store.JobStore
	notifier Notifier
	logger   *slog.Logger
}

// NewWorkflow creates a workflow from an ordered list of stages.
func NewWorkflow(name string, stages []Stage, jobs store.JobStore, notifier Notifier, logger *slog.Logger) *Workflow {
	return &Workflow{
		name:     name,
		stages:   stages,
		jobs:     jobs,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "workflow"), slog.String("workflow", name)),
	}
}

// Name returns the workflow's identifier.
func (w *Workflow) Name() string {
	return w.name
}

// Run claims the job and executes every stage in order. On success the
// job is marked completed and a completion event is broadcast. On stage
// failure the job is marked failed with the stage's error. When the job
// is cancelled mid-run the workflow stops quietly: the cancel operation
// already wrote the terminal state.
func (w *Workflow) Run(ctx context.Context, job *domain.Job) error {
	log := w.logger.With(slog.String("job_id", job.ID.String()))

	if err := w.jobs.ClaimPending(ctx, job.ID); err != nil {
		if errors.Is(err, store.ErrInvalidJobState) {
			log.InfoContext(ctx, "job no longer pending, skipping execution")
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	start := time.Now()
	log.InfoContext(ctx, "job processing started",
		slog.String("source_kind", string(job.SourceKind)))

	pctx := Context{Source: job.Source, SourceKind: job.SourceKind, Params: job.Params}
	for _, stage := range w.stages {
		stageStart := time.Now()

		next, err := stage.Execute(ctx, job.ID, pctx)
		if err != nil {
			return w.finishWithError(ctx, log, job.ID, stage, err)
		}
		pctx = next

		log.InfoContext(ctx, "stage completed",
			slog.String("stage", stage.Name()),
			slog.Duration("elapsed", time.Since(stageStart)))
	}

	if err := w.jobs.MarkCompleted(ctx, job.ID); err != nil {
		if errors.Is(err, store.ErrJobNotProcessing) {
			log.InfoContext(ctx, "job cancelled before completion could be recorded")
			return nil
		}
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	log.InfoContext(ctx, "job completed",
		slog.Duration("elapsed", time.Since(start)))

	w.notifier.BroadcastToJob(job.ID, NewCompletionEvent(job.ID))
	return nil
}

// finishWithError records a stage failure, unless the error signals the
// job was cancelled while the stage ran.
func (w *Workflow) finishWithError(ctx context.Context, log *slog.Logger, jobID uuid.UUID, stage Stage, err error) error {
	if errors.Is(err, ErrCancelled) || errors.Is(err, store.ErrJobNotProcessing) {
		log.InfoContext(ctx, "job cancelled during stage",
			slog.String("stage", stage.Name()))
		return nil
	}

	log.ErrorContext(ctx, "stage failed",
		slog.String("stage", stage.Name()),
		slog.String("error", err.Error()))

	message := truncate(fmt.Sprintf("%s failed: %v", stage.Name(), err), maxErrorMessageLen)

	// The terminal write must land even when the run context is gone.
	markCtx := context.WithoutCancel(ctx)
	if markErr := w.jobs.MarkFailed(markCtx, jobID, message); markErr != nil {
		if !errors.Is(markErr, store.ErrJobNotProcessing) {
			log.ErrorContext(ctx, "failed to mark job failed",
				slog.String("error", markErr.Error()))
		}
	}

	return fmt.Errorf("stage %s: %w", stage.Name(), err)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
