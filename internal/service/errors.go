package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both an unknown nickname and a wrong
	// password, so callers cannot probe which nicknames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUpstreamUnavailable marks an I/O failure against the record or
	// blob store. The whole operation is safe to retry from the caller.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError reports a missing required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
