// Package errs defines the typed error taxonomy shared by the front-desk
// domain aggregates and the check-in orchestration layer.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports a construction-time invariant violation on an
// aggregate. It is fatal for the offending snapshot and is never retried.
type ValidationError struct {
	Entity string // "patient", "appointment", "waiting_queue"
	Field  string // the field or rule that failed
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s validation failed on %s: %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Entity, e.Reason)
}

// InvalidStateError reports a transition that is not legal from the entity's
// current state. The caller must re-fetch current state before retrying.
type InvalidStateError struct {
	Entity    string
	ID        string
	Operation string
	Current   string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot %s from state %q", e.Entity, e.ID, e.Operation, e.Current)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NotFoundError reports a referenced patient or appointment that does not
// exist in the backing store.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConsistencyError reports a cross-entity mismatch discovered during
// orchestration, such as an appointment that belongs to a different patient.
type ConsistencyError struct {
	Entity  string
	ID      string
	Related string
	Reason  string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s %s inconsistent with %s: %s", e.Entity, e.ID, e.Related, e.Reason)
}

// PartialFailureError reports a check-in whose patient write committed but
// whose appointment write did not (or vice versa). The succeeded side is
// named so the caller can retry only the failed write; nothing is rolled
// back automatically.
type PartialFailureError struct {
	Operation string
	Succeeded string // which write committed, e.g. "patient"
	Failed    string // which write did not, e.g. "appointment"
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s partially failed: %s write committed, %s write failed: %v",
		e.Operation, e.Succeeded, e.Failed, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidState reports whether err is (or wraps) an InvalidStateError.
func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsConsistency reports whether err is (or wraps) a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// IsPartialFailure reports whether err is (or wraps) a PartialFailureError.
func IsPartialFailure(err error) bool {
	var pe *PartialFailureError
	return errors.As(err, &pe)
}
