// Package common defines shared constants and sentinel errors used across
// client and server layers of authkeeper. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Conflict details; both match ErrorConflict.
	ErrEmailTaken    = fmt.Errorf("email %w", ErrorConflict)
	ErrUsernameTaken = fmt.Errorf("username %w", ErrorConflict)

	// Collaborator failures.
	ErrorTimeout     = errors.New("storage timeout")
	ErrorUnavailable = errors.New("storage unavailable")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrorValidation         = errors.New("validation error")
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorUnauthenticated    = errors.New("unauthenticated")

	// Token validation stages.
	ErrMissingToken     = errors.New("missing token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
)

// IsTokenError reports whether err comes from any token validation stage or
// from resolving the token subject.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrorUnauthenticated)
}

// Kind returns a short stable label for err, used for log fields and metric
// labels. Unknown errors are reported as "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrorUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrorInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrorNotFound):
		return "not_found"
	case errors.Is(err, ErrorConflict):
		return "conflict"
	case errors.Is(err, ErrorValidation):
		return "validation"
	case errors.Is(err, ErrorTimeout):
		return "timeout"
	case errors.Is(err, ErrorUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
