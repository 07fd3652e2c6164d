// Package fault defines the error kinds surfaced by the policy engine.
//
// Domain packages declare their own sentinels wrapping one of these kinds,
// so callers can match either the specific error or the broad category:
//
//	if errors.Is(err, fault.ErrNotFound) { ... }
package fault

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrNotFound indicates a policy, user, approval or version id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness or cardinality rule would be broken.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState indicates the record is not in a state that permits the operation.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput indicates a required argument was missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// Infrastructure failures. They are not kinds: Kind returns nil for them.
var (
	// ErrConnectionFailed indicates the backing store could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrOperationTimeout indicates a store call exceeded its deadline.
	ErrOperationTimeout = errors.New("operation timed out")

	// ErrUnavailable indicates the store guard rejected the call.
	ErrUnavailable = errors.New("store unavailable")
)

// New returns a sentinel error with the given message that matches kind under errors.Is.
func New(kind error, msg string) error {
	return fmt.Errorf("%s: %w", msg, kind)
}

// Kind returns the error kind err belongs to, or nil if it carries none.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrInvalidState, ErrInvalidInput} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
