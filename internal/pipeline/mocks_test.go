package pipeline

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/phrazzld/lectern-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockJobStore is an in-memory JobStore that enforces the same status
// fencing as the real store.
type mockJobStore struct {
	mu          sync.Mutex
	status      map[uuid.UUID]domain.JobStatus
	progress    map[uuid.UUID]float64
	titles      map[uuid.UUID]string
	transcripts map[uuid.UUID]string
	summaries   map[uuid.UUID]string
	failures    map[uuid.UUID]string
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{
		status:      make(map[uuid.UUID]domain.JobStatus),
		progress:    make(map[uuid.UUID]float64),
		titles:      make(map[uuid.UUID]string),
		transcripts: make(map[uuid.UUID]string),
		summaries:   make(map[uuid.UUID]string),
		failures:    make(map[uuid.UUID]string),
	}
}

func (m *mockJobStore) addJob(id uuid.UUID, status domain.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[id] = status
}

func (m *mockJobStore) jobStatus(id uuid.UUID) domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[id]
}

func (m *mockJobStore) jobProgress(id uuid.UUID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress[id]
}

func (m *mockJobStore) fenced(id uuid.UUID) error {
	status, ok := m.status[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if status != domain.JobStatusProcessing {
		return store.ErrJobNotProcessing
	}
	return nil
}

func (m *mockJobStore) Create(ctx context.Context, job *domain.Job) error {
	m.addJob(job.ID, job.Status)
	return nil
}

func (m *mockJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.status[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return &domain.Job{ID: id, Status: status, Progress: m.progress[id]}, nil
}

func (m *mockJobStore) FindBySource(ctx context.Context, source string) (*domain.Job, error) {
	return nil, store.ErrJobNotFound
}

func (m *mockJobStore) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*domain.Job, int, error) {
	return nil, 0, nil
}

func (m *mockJobStore) ClaimPending(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.status[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if status != domain.JobStatusPending {
		return store.ErrInvalidJobState
	}
	m.status[id] = domain.JobStatusProcessing
	m.progress[id] = 0
	return nil
}

func (m *mockJobStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.progress[id] = progress
	return nil
}

func (m *mockJobStore) SetSourceMetadata(ctx context.Context, id uuid.UUID, title string, durationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.titles[id] = title
	return nil
}

func (m *mockJobStore) SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.transcripts[id] = transcript
	return nil
}

func (m *mockJobStore) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.summaries[id] = summary
	return nil
}

func (m *mockJobStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.status[id] = domain.JobStatusCompleted
	m.progress[id] = 100
	return nil
}

func (m *mockJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fenced(id); err != nil {
		return err
	}
	m.status[id] = domain.JobStatusFailed
	m.failures[id] = errorMessage
	return nil
}

func (m *mockJobStore) Cancel(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.status[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if status != domain.JobStatusPending && status != domain.JobStatusProcessing {
		return store.ErrInvalidJobState
	}
	m.status[id] = domain.JobStatusCancelled
	return nil
}

func (m *mockJobStore) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status[id] != domain.JobStatusFailed {
		return store.ErrInvalidJobState
	}
	m.status[id] = domain.JobStatusPending
	m.progress[id] = 0
	return nil
}

func (m *mockJobStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.status, id)
	return nil
}

func (m *mockJobStore) WithTx(tx *sql.Tx) store.JobStore { return m }

// mockNotifier records broadcast events in order.
type mockNotifier struct {
	mu     sync.Mutex
	events []any
}

func (m *mockNotifier) BroadcastToJob(jobID uuid.UUID, event any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockNotifier) recorded() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.events...)
}

// mockQuestionStore records the batch it was asked to persist.
type mockQuestionStore struct {
	mu      sync.Mutex
	created []*domain.QuizQuestion
	err     error
}

func (m *mockQuestionStore) CreateBatch(ctx context.Context, questions []*domain.QuizQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, questions...)
	return nil
}

func (m *mockQuestionStore) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*domain.QuizQuestion, error) {
	return nil, nil
}

func (m *mockQuestionStore) DeleteByJobID(ctx context.Context, jobID uuid.UUID) error {
	return nil
}

func (m *mockQuestionStore) WithTx(tx *sql.Tx) store.QuestionStore { return m }
