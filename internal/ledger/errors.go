package ledger

import (
	"errors"
	"fmt"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Sentinel errors returned (possibly wrapped) by every ledger operation.
// Handlers use errors.Is on these to pick a status code; the structured
// error types below carry the detail for the response body.
var (
	// ErrNotFound is returned for an unknown table or reservation id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariantViolation is returned when a request is well formed but
	// would break a reservation invariant.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrConflict is returned when the requested interval overlaps a
	// confirmed reservation on the same table and date.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the requester does not own the
	// reservation.
	ErrForbidden = errors.New("forbidden")
)

// Violation names the invariant an InvariantError refers to.
type Violation string

const (
	EndBeforeStart      Violation = "end_before_start"
	SeatsExceedCapacity Violation = "seats_exceed_capacity"
	PastDateTime        Violation = "past_date_time"
)

// InputError reports a malformed or missing field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

// InvariantError reports which invariant a request would violate.
type InvariantError struct {
	Violation Violation
	Detail    string
}

func (e *InvariantError) Error() string {
	if e.Detail == "" {
		return string(e.Violation)
	}
	return fmt.Sprintf("%s: %s", e.Violation, e.Detail)
}
func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// ConflictError carries the confirmed reservation the request collided
// with so it can be shown to the user.
type ConflictError struct {
	With model.Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("table %d already reserved on %s from %s to %s (reservation %d)",
		e.With.TableID, e.With.Date, e.With.StartTime, e.With.EndTime, e.With.ID)
}
func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsViolation reports whether err is an InvariantError for v.
func IsViolation(err error, v Violation) bool {
	var ie *InvariantError
	return errors.As(err, &ie) && ie.Violation == v
}
