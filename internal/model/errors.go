package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuth     = errors.New("model: not authorized")
	ErrNotFound = errors.New("model: appointment not found")
)

// ValidationError rejects input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid %s: %s", e.Field, e.Reason)
}

// ConflictError blocks a save. It carries the overlapping appointments for
// display rather than signalling a failure.
type ConflictError struct {
	Conflicts []Appointment
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, c.ID)
	}
	return fmt.Sprintf("model: time slot conflicts with %d appointment(s): %s", len(e.Conflicts), strings.Join(ids, ", "))
}

// StaleEventError reports an incoming copy older than the one held. It is
// routine traffic and is never shown to the user.
type StaleEventError struct {
	ID       string
	Held     Marker
	Incoming Marker
}

func (e *StaleEventError) Error() string {
	return fmt.Sprintf("model: stale copy of %s: held %s, incoming %s", e.ID, e.Held, e.Incoming)
}

// MirrorSyncError is logged and never fails the primary operation.
type MirrorSyncError struct {
	Op  string
	ID  string
	Err error
}

func (e *MirrorSyncError) Error() string {
	return fmt.Sprintf("model: mirror %s for %s: %v", e.Op, e.ID, e.Err)
}

func (e *MirrorSyncError) Unwrap() error { return e.Err }

// NetworkError wraps a failed call to the appointment service. The store is
// left untouched when one is returned.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("model: %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func IsStale(err error) bool {
	var se *StaleEventError
	return errors.As(err, &se)
}
