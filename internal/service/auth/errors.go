package auth

import "errors"

// Token verification errors
var (
	// ErrInvalidToken indicates the token is malformed or its signature
	// does not match.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token's exp claim is in the past.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates no token was provided where one was expected.
	ErrMissingToken = errors.New("authentication token is missing")
)
