package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidEventKind = errors.New("model: invalid event kind")

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	default:
		return false
	}
}

// Event is one entry of the appointment change stream. Created and updated
// events carry Appointment; deleted events carry only ID. Seq is the
// publisher's sequence number and is informational.
type Event struct {
	Kind        EventKind
	Appointment *Appointment
	ID          string
	Seq         uint64
}

func (e Event) AppointmentID() string {
	if e.Appointment != nil && e.Appointment.ID != "" {
		return e.Appointment.ID
	}
	return e.ID
}

func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventKind, e.Kind)
	}
	if strings.TrimSpace(e.AppointmentID()) == "" {
		return errors.New("model: event has no appointment id")
	}
	if e.Kind != EventDeleted && e.Appointment == nil {
		return fmt.Errorf("model: %s event without appointment", e.Kind)
	}
	return nil
}

func Created(a Appointment) Event {
	return Event{Kind: EventCreated, Appointment: &a, ID: a.ID}
}

func Updated(a Appointment) Event {
	return Event{Kind: EventUpdated, Appointment: &a, ID: a.ID}
}

func Deleted(id string) Event {
	return Event{Kind: EventDeleted, ID: id}
}
