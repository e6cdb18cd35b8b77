// Package errs defines the failure taxonomy shared by every settlement
// component. Handlers wrap these sentinels with context so callers can
// classify rejections with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound signals that a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized signals that the caller lacks the required capability.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvariant signals a state precondition violation. Events that hit
	// this are rejected without side effects.
	ErrInvariant = errors.New("invariant violation")

	// ErrBounds signals an input outside its permitted range (field length,
	// coordinates, quantities).
	ErrBounds = errors.New("out of bounds")

	// ErrInsufficientValue signals a payment below the required threshold.
	ErrInsufficientValue = errors.New("insufficient value")
)
