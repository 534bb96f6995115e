package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/google/uuid"
)

// ContextKey is the type for context values set by the API layer.
type ContextKey string

const (
	// UserIDContextKey is the context key for the authenticated user ID.
	UserIDContextKey ContextKey = "userID"

	// TraceIDKey is the key for the trace ID in the request context.
	TraceIDKey ContextKey = "traceID"

	// traceIDBytes is the number of random bytes in a trace ID.
	traceIDBytes = 16
)

// SetTraceID adds a fresh trace ID to the context, used to correlate
// logs with error responses.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" when the
// context carries none.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID returns a 32-character hex trace ID. If the random
// source fails it falls back to a UUID so the ID is still unique.
func generateTraceID() string {
	b := make([]byte, traceIDBytes)
	if n, err := rand.Read(b); err != nil || n != traceIDBytes {
		slog.Error("failed to generate random trace ID, falling back to uuid",
			"error", err, "bytes_read", n)
		id := uuid.New()
		return hex.EncodeToString(id[:])
	}
	return hex.EncodeToString(b)
}
