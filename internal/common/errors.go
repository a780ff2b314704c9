package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrStoreUnavailable marks failures of the backing store itself, as
	// opposed to the semantic errors below. Callers may retry the request.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Credential errors.
	ErrInvalidCredential = errors.New("invalid credential")

	// Access token errors.
	ErrMalformed        = errors.New("malformed token")
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token expired")

	// Refresh and action token lifecycle errors.
	ErrRevoked     = errors.New("token revoked")
	ErrMismatch    = errors.New("token mismatch")
	ErrAlreadyUsed = errors.New("token already used")

	// Authorization errors.
	ErrForbidden = errors.New("forbidden")
)
