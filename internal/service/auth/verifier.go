// Package auth verifies the JWT bearer tokens that attach an identity
// to API requests. Authentication is optional: requests without a valid
// token proceed anonymously and their jobs carry no owner.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/lectern-api/internal/config"
)

// Claims is the verified identity extracted from a token.
type Claims struct {
	// UserID is the unique identifier of the token's subject.
	UserID uuid.UUID
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	// Verify checks the token's signature and validity window and
	// returns its claims.
	Verify(ctx context.Context, tokenString string) (*Claims, error)
}

// hmacVerifier verifies HMAC-SHA256 signed tokens.
type hmacVerifier struct {
	signingKey []byte
	clockSkew  time.Duration
}

// tokenClaims is the wire structure of the tokens we accept.
type tokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

var _ TokenVerifier = (*hmacVerifier)(nil)

// NewVerifier creates a TokenVerifier from the auth config.
func NewVerifier(cfg config.AuthConfig) (TokenVerifier, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &hmacVerifier{
		signingKey: []byte(cfg.JWTSecret),
		clockSkew:  2 * time.Minute,
	}, nil
}

// Verify implements TokenVerifier.
func (v *hmacVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.clockSkew),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: claims.UserID}, nil
}

// GenerateToken mints a signed token for the given user. Tokens are
// normally issued by the identity provider in front of this API; this
// helper exists for local development and tests.
func GenerateToken(cfg config.AuthConfig, userID uuid.UUID, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
