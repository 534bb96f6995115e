package processor

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/config"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/pipeline"
	"github.com/phrazzld/lectern-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memJobStore is the minimal JobStore the workflow touches during these
// tests: claim, progress fencing, and terminal transitions.
type memJobStore struct {
	mu     sync.Mutex
	status map[uuid.UUID]domain.JobStatus
}

func newMemJobStore() *memJobStore {
	return &memJobStore{status: make(map[uuid.UUID]domain.JobStatus)}
}

func (m *memJobStore) add(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[id] = domain.JobStatusPending
}

func (m *memJobStore) get(id uuid.UUID) domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[id]
}

func (m *memJobStore) Create(ctx context.Context, job *domain.Job) error { return nil }

func (m *memJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return nil, store.ErrJobNotFound
}

func (m *memJobStore) FindBySource(ctx context.Context, source string) (*domain.Job, error) {
	return nil, store.ErrJobNotFound
}

func (m *memJobStore) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*domain.Job, int, error) {
	return nil, 0, nil
}

func (m *memJobStore) ClaimPending(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status[id] != domain.JobStatusPending {
		return store.ErrInvalidJobState
	}
	m.status[id] = domain.JobStatusProcessing
	return nil
}

func (m *memJobStore) fenced(id uuid.UUID) error {
	if m.status[id] != domain.JobStatusProcessing {
		return store.ErrJobNotProcessing
	}
	return nil
}

func (m *memJobStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fenced(id)
}

func (m *memJobStore) SetSourceMetadata(ctx context.Context, id uuid.UUID, title string, durationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fenced(id)
}

func (m *memJobStore) SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fenced(id)
}

func (m *memJobStore) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fenced(id)
}

func (m *memJobStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.status[id] = domain.JobStatusCompleted
	return nil
}

func (m *memJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.status[id] = domain.JobStatusFailed
	return nil
}

func (m *memJobStore) Cancel(ctx context.Context, id uuid.UUID) error { return nil }

func (m *memJobStore) ResetForRetry(ctx context.Context, id uuid.UUID) error { return nil }

func (m *memJobStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (m *memJobStore) WithTx(tx *sql.Tx) store.JobStore { return m }

type noopNotifier struct{}

func (noopNotifier) BroadcastToJob(jobID uuid.UUID, event any) {}

// funcStage adapts a function to the Stage interface.
type funcStage struct {
	fn func(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error)
}

func (s *funcStage) Name() string { return "test stage" }

func (s *funcStage) Execute(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error) {
	return s.fn(ctx, jobID, pctx)
}

func newVideoJob(t *testing.T, jobs *memJobStore) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(nil, domain.SourceKindVideo, "https://example.com/watch?v="+uuid.NewString(), domain.ProcessingParams{})
	require.NoError(t, err)
	jobs.add(job.ID)
	return job
}

func newService(jobs *memJobStore, stage pipeline.Stage, maxConcurrent int) *Service {
	svc := NewService(testLogger(), config.ProcessorConfig{MaxConcurrentJobs: maxConcurrent})
	w := pipeline.NewWorkflow("video", []pipeline.Stage{stage}, jobs, noopNotifier{}, testLogger())
	svc.Register(domain.SourceKindVideo, w)
	return svc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestServiceSubmit(t *testing.T) {
	t.Run("runs a job to completion", func(t *testing.T) {
		jobs := newMemJobStore()
		stage := &funcStage{fn: func(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error) {
			return pctx, nil
		}}
		svc := newService(jobs, stage, 2)
		job := newVideoJob(t, jobs)

		require.NoError(t, svc.Submit(job))
		waitFor(t, func() bool { return jobs.get(job.ID) == domain.JobStatusCompleted })
		waitFor(t, func() bool { return !svc.IsRunning(job.ID) })
	})

	t.Run("deduplicates active submissions", func(t *testing.T) {
		jobs := newMemJobStore()
		var executions atomic.Int32
		release := make(chan struct{})
		stage := &funcStage{fn: func(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error) {
			executions.Add(1)
			<-release
			return pctx, nil
		}}
		svc := newService(jobs, stage, 2)
		job := newVideoJob(t, jobs)

		require.NoError(t, svc.Submit(job))
		waitFor(t, func() bool { return svc.IsRunning(job.ID) })

		require.NoError(t, svc.Submit(job))
		assert.Equal(t, 1, svc.CountRunning())

		close(release)
		waitFor(t, func() bool { return jobs.get(job.ID) == domain.JobStatusCompleted })
		assert.Equal(t, int32(1), executions.Load())
	})

	t.Run("bounds concurrent executions", func(t *testing.T) {
		jobs := newMemJobStore()
		var concurrent, peak atomic.Int32
		release := make(chan struct{})
		stage := &funcStage{fn: func(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error) {
			now := concurrent.Add(1)
			if now > peak.Load() {
				peak.Store(now)
			}
			<-release
			concurrent.Add(-1)
			return pctx, nil
		}}
		svc := newService(jobs, stage, 1)

		first := newVideoJob(t, jobs)
		second := newVideoJob(t, jobs)
		require.NoError(t, svc.Submit(first))
		require.NoError(t, svc.Submit(second))

		waitFor(t, func() bool { return concurrent.Load() == 1 })
		assert.Equal(t, 2, svc.CountRunning(), "the waiting job is still active")

		close(release)
		waitFor(t, func() bool {
			return jobs.get(first.ID) == domain.JobStatusCompleted &&
				jobs.get(second.ID) == domain.JobStatusCompleted
		})
		assert.Equal(t, int32(1), peak.Load())
	})

	t.Run("rejects unknown source kinds", func(t *testing.T) {
		jobs := newMemJobStore()
		svc := NewService(testLogger(), config.ProcessorConfig{MaxConcurrentJobs: 1})
		job := newVideoJob(t, jobs)

		assert.ErrorIs(t, svc.Submit(job), ErrNoWorkflow)
	})
}

func TestServiceShutdown(t *testing.T) {
	t.Run("waits for in-flight jobs", func(t *testing.T) {
		jobs := newMemJobStore()
		release := make(chan struct{})
		stage := &funcStage{fn: func(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error) {
			<-release
			return pctx, nil
		}}
		svc := newService(jobs, stage, 2)
		job := newVideoJob(t, jobs)
		require.NoError(t, svc.Submit(job))
		waitFor(t, func() bool { return svc.IsRunning(job.ID) })

		done := make(chan error, 1)
		go func() { done <- svc.Shutdown(context.Background()) }()

		select {
		case <-done:
			t.Fatal("shutdown returned while a job was still running")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, domain.JobStatusCompleted, jobs.get(job.ID))
	})

	t.Run("rejects submissions after shutdown begins", func(t *testing.T) {
		jobs := newMemJobStore()
		stage := &funcStage{fn: func(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error) {
			return pctx, nil
		}}
		svc := newService(jobs, stage, 1)
		require.NoError(t, svc.Shutdown(context.Background()))

		job := newVideoJob(t, jobs)
		assert.ErrorIs(t, svc.Submit(job), ErrShuttingDown)
	})

	t.Run("deadline aborts stuck jobs", func(t *testing.T) {
		jobs := newMemJobStore()
		stage := &funcStage{fn: func(ctx context.Context, jobID uuid.UUID, pctx pipeline.Context) (pipeline.Context, error) {
			<-ctx.Done()
			return pctx, ctx.Err()
		}}
		svc := newService(jobs, stage, 1)
		job := newVideoJob(t, jobs)
		require.NoError(t, svc.Submit(job))
		waitFor(t, func() bool { return svc.IsRunning(job.ID) })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, svc.Shutdown(ctx), context.DeadlineExceeded)
		assert.Equal(t, 0, svc.CountRunning())
	})
}
