package store

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrBatchFailed wraps every commit failure; inspect *BatchError for the class.
	ErrBatchFailed = errors.New("batch failed")

	// ErrNotFound is returned by Get when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrBatchClosed is returned when a committed or rolled back batch is reused.
	ErrBatchClosed = errors.New("batch closed")

	// ErrUnknownField is returned for fields outside the collection schema.
	ErrUnknownField = errors.New("unknown field")
)

// FailureKind classifies a batch failure.
type FailureKind int

const (
	// FailureTransport covers timeouts, I/O errors, and anything not otherwise classified.
	FailureTransport FailureKind = iota
	// FailureConstraint is a uniqueness violation.
	FailureConstraint
	// FailureReferential is an operation on a missing record or a dangling reference.
	FailureReferential
)

func (k FailureKind) String() string {
	switch k {
	case FailureConstraint:
		return "constraint"
	case FailureReferential:
		return "referential"
	default:
		return "transport"
	}
}

// BatchError reports which operation of a batch failed and why.
// Index is -1 when the failure is not tied to one operation (begin or commit).
type BatchError struct {
	BatchID string
	Kind    FailureKind
	Index   int
	Op      Op
	Err     error
}

func (e *BatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("batch %s: %s failure: %v", e.BatchID, e.Kind, e.Err)
	}
	return fmt.Sprintf("batch %s: op %d (%s): %s failure: %v", e.BatchID, e.Index, e.Op, e.Kind, e.Err)
}

// Unwrap exposes both ErrBatchFailed and the driver error.
func (e *BatchError) Unwrap() []error { return []error{ErrBatchFailed, e.Err} }

// FailureOf returns the failure class of err if it is a batch failure.
func FailureOf(err error) (FailureKind, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// IsConstraint reports whether err is a uniqueness violation from a batch.
func IsConstraint(err error) bool {
	k, ok := FailureOf(err)
	return ok && k == FailureConstraint
}

// IsReferential reports whether err is a missing-record failure from a batch.
func IsReferential(err error) bool {
	k, ok := FailureOf(err)
	return ok && k == FailureReferential
}
