package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/lectern-api/internal/api/shared"
	"github.com/phrazzld/lectern-api/internal/service"
	"github.com/phrazzld/lectern-api/internal/service/auth"
	"github.com/phrazzld/lectern-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound

	// Lifecycle conflicts
	case errors.Is(err, service.ErrJobNotCompleted),
		errors.Is(err, service.ErrJobNotRetryable),
		errors.Is(err, service.ErrJobNotCancellable),
		errors.Is(err, service.ErrJobStillProcessing),
		errors.Is(err, store.ErrInvalidJobState):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrUnsupportedSource):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, service.ErrJobNotCompleted):
		return "Job has not completed yet"

	case errors.Is(err, service.ErrJobNotRetryable):
		return "Only failed jobs can be retried"

	case errors.Is(err, service.ErrJobNotCancellable):
		return "Job has already finished"

	case errors.Is(err, service.ErrJobStillProcessing):
		return "Job is still processing; cancel it first"

	case errors.Is(err, store.ErrInvalidJobState):
		return "Job is not in a valid state for this operation"

	case errors.Is(err, service.ErrUnsupportedSource):
		return "Unsupported source type"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'ProcessVideoRequest.URL' Error:Field validation for 'URL' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url":
		return "invalid URL format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gte":
		return "too small"
	case "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes an error response with the mapped status code and a
// sanitized message, logging the full error server side. An empty message
// falls back to the safe message derived from the error type.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
