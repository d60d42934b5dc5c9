// Package errs defines the error taxonomy shared by the ingestion and
// query pipelines: transient failures are retried, invalid ones are
// terminal, and missing records surface as not-found.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures worth retrying: timeouts, rate limits,
	// temporarily unavailable adapters.
	ErrTransient = errors.New("transient failure")

	// ErrInvalid marks terminal failures: malformed model output, empty
	// content where content is required, mismatched vector shapes.
	ErrInvalid = errors.New("invalid")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

// Transient wraps err so IsTransient reports true. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Transientf formats a new transient error.
func Transientf(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrTransient, fmt.Errorf(format, args...))
}

// Invalid wraps err so IsInvalid reports true. Returns nil for nil.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// Invalidf formats a new invalid error.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrInvalid, fmt.Errorf(format, args...))
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsInvalid reports whether err is classified as invalid.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
