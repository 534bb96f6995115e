package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/store"
)

// Reporter persists progress milestones and fans them out to realtime
// subscribers. Because the store write is fenced on the processing
// status, reporting progress is also how stages observe cancellation.
type Reporter struct {
	jobs     store.JobStore
	notifier Notifier
	logger   *slog.Logger
}

// NewReporter creates a progress reporter.
func NewReporter(jobs store.JobStore, notifier Notifier, logger *slog.Logger) *Reporter {
	return &Reporter{
		jobs:     jobs,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "progress_reporter")),
	}
}

// Report records a progress milestone for the job and broadcasts it.
// Returns ErrCancelled when the job is no longer processing.
func (r *Reporter) Report(ctx context.Context, jobID uuid.UUID, progress float64, message string) error {
	if err := r.jobs.UpdateProgress(ctx, jobID, progress); err != nil {
		if errors.Is(err, store.ErrJobNotProcessing) {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return fmt.Errorf("failed to update progress: %w", err)
	}

	r.logger.DebugContext(ctx, "job progress",
		slog.String("job_id", jobID.String()),
		slog.Float64("progress", progress),
		slog.String("message", message))

	r.notifier.BroadcastToJob(jobID, NewProgressEvent(jobID, progress, message))
	return nil
}
