// Package processor runs job workflows in the background with a
// bounded level of concurrency. It owns the in-memory active set used
// to deduplicate submissions and the goroutine handles needed for a
// clean shutdown.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/config"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/pipeline"
)

var (
	// ErrShuttingDown indicates the service no longer accepts jobs.
	ErrShuttingDown = errors.New("processor is shutting down")

	// ErrNoWorkflow indicates no workflow is registered for the job's
	// source kind.
	ErrNoWorkflow = errors.New("no workflow registered for source kind")
)

// Service executes workflows for submitted jobs. Each submission runs
// in its own goroutine; a semaphore bounds how many run concurrently
// while the rest wait their turn.
type Service struct {
	workflows map[domain.SourceKind]*pipeline.Workflow
	logger    *slog.Logger

	// baseCtx is the parent context of every job execution. Cancelling
	// it aborts in-flight work during a forced shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc

	sem chan struct{}
	wg  sync.WaitGroup

	mu           sync.Mutex
	active       map[uuid.UUID]struct{}
	shuttingDown bool
}

// NewService creates a processor bounded by cfg.MaxConcurrentJobs.
func NewService(logger *slog.Logger, cfg config.ProcessorConfig) *Service {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		workflows: make(map[domain.SourceKind]*pipeline.Workflow),
		logger:    logger.With(slog.String("component", "processor")),
		baseCtx:   baseCtx,
		cancel:    cancel,
		sem:       make(chan struct{}, cfg.MaxConcurrentJobs),
		active:    make(map[uuid.UUID]struct{}),
	}
}

// Register associates a workflow with a source kind. Called once during
// startup before any submissions arrive.
func (s *Service) Register(kind domain.SourceKind, w *pipeline.Workflow) {
	s.workflows[kind] = w
}

// Submit schedules a job for background execution. Submitting a job
// that is already active is a no-op: the store-level claim is the
// authoritative guard, this check just avoids spawning a goroutine
// that would lose the claim anyway.
func (s *Service) Submit(job *domain.Job) error {
	workflow, ok := s.workflows[job.SourceKind]
	if !ok {
		return ErrNoWorkflow
	}

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return ErrShuttingDown
	}
	if _, running := s.active[job.ID]; running {
		s.mu.Unlock()
		s.logger.Warn("job already active, ignoring duplicate submission",
			slog.String("job_id", job.ID.String()))
		return nil
	}
	s.active[job.ID] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(job, workflow)
	return nil
}

// IsRunning reports whether the job is currently in the active set.
func (s *Service) IsRunning(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

// CountRunning returns the number of jobs in the active set, including
// those waiting on the concurrency semaphore.
func (s *Service) CountRunning() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Shutdown stops accepting submissions and waits for in-flight jobs to
// finish. When ctx expires first, the base context is cancelled to
// abort the remaining work and Shutdown still waits for the goroutines
// to exit before returning ctx's error.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached, aborting in-flight jobs")
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// run executes one job's workflow once a semaphore slot frees up.
func (s *Service) run(job *domain.Job, workflow *pipeline.Workflow) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.active, job.ID)
		s.mu.Unlock()
	}()

	select {
	case s.sem <- struct{}{}:
	case <-s.baseCtx.Done():
		// Never got a slot; the job stays pending for a later restart.
		return
	}
	defer func() { <-s.sem }()

	if err := workflow.Run(s.baseCtx, job); err != nil {
		s.logger.Error("job execution failed",
			slog.String("job_id", job.ID.String()),
			slog.String("workflow", workflow.Name()),
			slog.String("error", err.Error()))
	}
}
