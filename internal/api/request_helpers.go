package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/api/shared"
)

var errInvalidPathID = errors.New("invalid path parameter")

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, errInvalidPathID
	}
	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, errInvalidPathID
	}
	return id, nil
}

// parseUUIDParam parses a UUID from a query parameter value.
func parseUUIDParam(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errInvalidPathID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errInvalidPathID
	}
	return id, nil
}

// requirePathUUID extracts a UUID path parameter, writing a 400 response
// when the parameter is missing or malformed.
func requirePathUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	id, err := getPathUUID(r, paramName)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+paramName)
		return uuid.Nil, false
	}
	return id, true
}

// optionalUserID returns the authenticated user's ID, or nil for
// anonymous requests.
func optionalUserID(r *http.Request) *uuid.UUID {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return nil
	}
	return &userID
}

// parsePagination reads limit/offset query parameters, clamping them to
// sane bounds.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
