package pipeline

import (
	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/domain"
)

// Notifier delivers job events to interested realtime subscribers.
// Delivery is best-effort; a notifier never blocks the pipeline.
type Notifier interface {
	BroadcastToJob(jobID uuid.UUID, event any)
}

// ProgressEvent is pushed to subscribers while a job is processing.
type ProgressEvent struct {
	Type     string  `json:"type"`
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// CompletionEvent is pushed to subscribers once, when a job completes
// successfully. Failures are not broadcast; clients poll the status
// endpoint for terminal states.
type CompletionEvent struct {
	Type     string  `json:"type"`
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// NewProgressEvent builds a progress event for the given job.
func NewProgressEvent(jobID uuid.UUID, progress float64, message string) ProgressEvent {
	return ProgressEvent{
		Type:     "progress",
		JobID:    jobID.String(),
		Status:   string(domain.JobStatusProcessing),
		Progress: progress,
		Message:  message,
	}
}

// NewCompletionEvent builds the terminal success event for the given job.
func NewCompletionEvent(jobID uuid.UUID) CompletionEvent {
	return CompletionEvent{
		Type:     "completion",
		JobID:    jobID.String(),
		Status:   string(domain.JobStatusCompleted),
		Progress: 100,
		Message:  "Processing completed",
	}
}
