package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing state of a job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// SourceKind identifies how a job's content is acquired.
type SourceKind string

// Supported source kinds
const (
	SourceKindVideo      SourceKind = "video"
	SourceKindPDF        SourceKind = "pdf"
	SourceKindDocx       SourceKind = "docx"
	SourceKindWeb        SourceKind = "web"
	SourceKindCollection SourceKind = "collection"
)

// Common validation errors for Job
var (
	ErrEmptyJobID        = errors.New("job ID cannot be empty")
	ErrEmptyJobSource    = errors.New("job source cannot be empty")
	ErrInvalidJobStatus  = errors.New("invalid job status")
	ErrInvalidSourceKind = errors.New("invalid source kind")
)

// Job represents one end-to-end request to turn a source (video URL or
// document) into a transcript, summary, and quiz. It tracks the input,
// the processing state, and the incrementally persisted results.
type Job struct {
	ID              uuid.UUID        `json:"id"`
	UserID          *uuid.UUID       `json:"user_id,omitempty"`
	SourceKind      SourceKind       `json:"source_kind"`
	Source          string           `json:"source"`
	Params          ProcessingParams `json:"params"`
	Status          JobStatus        `json:"status"`
	Progress        float64          `json:"progress"`
	Title           *string          `json:"title,omitempty"`
	DurationSeconds *int             `json:"duration_seconds,omitempty"`
	Transcript      *string          `json:"transcript,omitempty"`
	Summary         *string          `json:"summary,omitempty"`
	ErrorMessage    *string          `json:"error_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// NewJob creates a new Job in the pending state for the given source.
// userID may be nil for anonymous submissions.
// Returns an error if validation fails.
func NewJob(userID *uuid.UUID, kind SourceKind, source string, params ProcessingParams) (*Job, error) {
	job := &Job{
		ID:         uuid.New(),
		UserID:     userID,
		SourceKind: kind,
		Source:     source,
		Params:     params.withDefaults(),
		Status:     JobStatusPending,
		Progress:   0,
		CreatedAt:  time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
// Returns an error if any field fails validation.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if j.Source == "" {
		return ErrEmptyJobSource
	}

	if !IsValidSourceKind(j.SourceKind) {
		return ErrInvalidSourceKind
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	return nil
}

// IsTerminal reports whether the status permits no further stage execution.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the allowed job state machine edges.
func (s JobStatus) CanTransitionTo(to JobStatus) bool {
	switch s {
	case JobStatusPending:
		return to == JobStatusProcessing || to == JobStatusCancelled
	case JobStatusProcessing:
		return to == JobStatusCompleted || to == JobStatusFailed || to == JobStatusCancelled
	case JobStatusFailed:
		// Explicit retry reopens a failed job.
		return to == JobStatusPending
	default:
		return false
	}
}

// IsValidSourceKind checks if the given kind is a supported SourceKind.
func IsValidSourceKind(kind SourceKind) bool {
	switch kind {
	case SourceKindVideo, SourceKindPDF, SourceKindDocx, SourceKindWeb, SourceKindCollection:
		return true
	default:
		return false
	}
}

func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}
