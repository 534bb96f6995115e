// Package service provides the application-level operations over jobs
// and their generated artifacts.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the job service. The API layer maps these
// to HTTP status codes.
var (
	// ErrJobNotFound indicates the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotCompleted indicates results were requested for a job that
	// has not finished successfully. Maps to HTTP 409 Conflict.
	ErrJobNotCompleted = errors.New("job has not completed")

	// ErrJobNotRetryable indicates a retry was requested for a job that
	// is not in the failed state. Maps to HTTP 409 Conflict.
	ErrJobNotRetryable = errors.New("only failed jobs can be retried")

	// ErrJobNotCancellable indicates a cancel was requested for a job
	// already in a terminal state. Maps to HTTP 409 Conflict.
	ErrJobNotCancellable = errors.New("job is already in a terminal state")

	// ErrJobStillProcessing indicates a delete was requested for a job
	// that is currently running. Cancel it first. Maps to HTTP 409.
	ErrJobStillProcessing = errors.New("job is still processing")

	// ErrUnsupportedSource indicates the submitted source cannot be
	// handled by any registered workflow. Maps to HTTP 400.
	ErrUnsupportedSource = errors.New("unsupported source")
)

// JobServiceError wraps unexpected errors from the job service with the
// operation that failed.
type JobServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap supports errors.Is/errors.As on the wrapped error.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}
