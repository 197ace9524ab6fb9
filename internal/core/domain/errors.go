package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCacheMiss indicates a cache entry is absent or older than CacheTTL.
	ErrCacheMiss = errors.New("cache miss")

	// Session Errors.

	// ErrCredentialsMissing indicates no credentials are stored.
	// It is the only error that aborts a refresh cycle before any remote call.
	ErrCredentialsMissing = errors.New("credentials missing")

	// ErrAlreadyAuthenticated indicates login was attempted with an active session.
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrNotAuthenticated indicates an operation requires an authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// Gateway Errors.

	// ErrNetwork indicates the remote service could not be reached.
	ErrNetwork = errors.New("network error")

	// ErrDecodePayload indicates the remote service returned a payload that could not be decoded.
	ErrDecodePayload = errors.New("decode payload")

	// Settings Errors.

	// ErrPreferenceRead indicates a stored preference exists but could not be read.
	ErrPreferenceRead = errors.New("preference read failed")
)

// HTTPStatusError reports a non-success HTTP status from the remote service.
type HTTPStatusError struct {
	// Code is the HTTP status code.
	Code int
	// Endpoint is the request path that produced the status.
	Endpoint string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.Code, e.Endpoint)
}

// IsUnauthorised reports whether the status indicates rejected credentials.
func (e *HTTPStatusError) IsUnauthorised() bool {
	return e.Code == 401 || e.Code == 403
}
