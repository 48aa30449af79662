package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means every source of a provider chain failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNoMatch means no vehicle survived the matcher filters.
	ErrNoMatch = errors.New("no matching vehicle")
	// ErrSessionExpired means a turn referenced a session past its TTL.
	ErrSessionExpired = errors.New("session expired")
	// ErrCacheUnavailable means the cache store could not be reached.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// ValidationError reports a malformed or out of range request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
