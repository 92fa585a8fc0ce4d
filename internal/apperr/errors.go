// Package apperr defines the error taxonomy shared by the catalog and order services.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrStore       = errors.New("store error")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrForbidden   = errors.New("forbidden")
)

// Validation reports a missing or malformed input, or an illegal target state.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound reports a well-formed identifier with no matching, visible record.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflict reports a transition rejected by the current-state guard.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Forbidden reports an operation disabled by policy.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// Store wraps a persistence failure. Errors already classified by the taxonomy
// pass through unchanged.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// Classified reports whether err carries one of the taxonomy sentinels.
func Classified(err error) bool {
	for _, target := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrStore, ErrRateLimited, ErrForbidden} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
