package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/api/shared"
	"github.com/phrazzld/lectern-api/internal/service/auth"
)

// AuthMiddleware attaches the authenticated user to the request context.
// Authentication is optional for most routes: submissions without a token
// run as anonymous jobs, while a valid bearer token scopes jobs and
// listings to the user.
type AuthMiddleware struct {
	verifier auth.TokenVerifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates an AuthMiddleware. A nil verifier disables
// token verification entirely, meaning every request is anonymous.
func NewAuthMiddleware(verifier auth.TokenVerifier, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "auth_middleware")),
	}
}

// Optional resolves the bearer token when one is present. A missing
// Authorization header leaves the request anonymous; a present but
// invalid token is rejected with 401 so clients never silently lose
// their identity.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if errors.Is(err, auth.ErrMissingToken) || m.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.respondVerifyError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects requests that do not carry a valid bearer token.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.verifier == nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication is not configured")
			return
		}

		token, err := bearerToken(r)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.respondVerifyError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondVerifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
	case errors.Is(err, auth.ErrTokenNotYetValid):
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Token not yet valid")
	case errors.Is(err, auth.ErrInvalidToken):
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
	default:
		m.logger.Error("token verification failed", slog.Any("error", err))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
