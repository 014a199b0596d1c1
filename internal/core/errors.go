package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error leaving this package wraps one of these
// sentinels (or is a *PartialError), so the web layer can map to HTTP
// status codes with errors.Is.
var (
	// ErrNotFound: a referenced workspace node, profile, scan run, or
	// record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument: malformed input such as a missing array, empty
	// label, or unknown enum value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidParent: a node operation targeted a file where a folder
	// is required.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrConflict: a unique field (profile name, key-value key) already
	// exists.
	ErrConflict = errors.New("conflict")

	// ErrCapacityExceeded: a single batch write exceeds the store's size
	// ceiling. Signals "reduce batch size", not total failure.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// PartialError reports a bulk replace that aborted mid-insert. Batches
// before BatchIndex are committed; the failed batch and everything after it
// are not. Removed and Committed let the caller reconcile instead of
// re-submitting blindly.
type PartialError struct {
	BatchIndex int   // zero-based index of the batch that failed
	Batches    int   // total batches planned
	Removed    int   // records removed before inserting began
	Committed  int   // records committed by earlier batches
	Err        error // underlying storage failure
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("bulk replace aborted at batch %d/%d (%d committed, %d removed): %v",
		e.BatchIndex, e.Batches, e.Committed, e.Removed, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// AsPartial extracts a *PartialError from an error chain, if present.
func AsPartial(err error) (*PartialError, bool) {
	var pe *PartialError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}
