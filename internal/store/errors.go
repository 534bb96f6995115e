package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidJobState is returned when a state-changing operation is not
	// valid for the job's current status (cancel a terminal job, retry a
	// non-failed job, claim a job that is not pending).
	ErrInvalidJobState = errors.New("operation not valid for current job state")

	// ErrJobNotProcessing is returned by fenced writes (progress and stage
	// results) when the job is no longer in the processing state, typically
	// because it was cancelled while a stage was in flight.
	ErrJobNotProcessing = errors.New("job is not processing")

	// Entity-specific "not found" errors

	// ErrJobNotFound indicates that the requested job does not exist in the store.
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// ErrQuestionNotFound indicates that the requested quiz question does not exist.
	ErrQuestionNotFound = fmt.Errorf("%w: quiz question", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "job", "quiz question")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
