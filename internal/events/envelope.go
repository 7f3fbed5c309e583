package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yigitselcuk/apptcal/internal/model"
)

// Envelope is the wire form of a change event shared by every bus.
type Envelope struct {
	ID            string       `json:"id"`
	Kind          string       `json:"kind"`
	Seq           uint64       `json:"seq"`
	AppointmentID string       `json:"appointment_id"`
	Partial       bool         `json:"partial,omitempty"`
	Appointment   model.Record `json:"appointment,omitempty"`
	Origin        string       `json:"origin,omitempty"`
	SentAt        time.Time    `json:"sent_at"`
}

func Wrap(ev model.Event, origin string) Envelope {
	env := Envelope{
		ID:            uuid.NewString(),
		Kind:          string(ev.Kind),
		Seq:           ev.Seq,
		AppointmentID: ev.AppointmentID(),
		Origin:        origin,
		SentAt:        time.Now().UTC(),
	}
	if ev.Appointment != nil {
		env.Appointment = model.Encode(*ev.Appointment)
		env.Partial = ev.Appointment.IsPartial()
	}
	return env
}

// Unwrap validates env and normalizes its payload back into an event.
func (env Envelope) Unwrap() (model.Event, error) {
	ev := model.Event{Kind: model.EventKind(env.Kind), ID: env.AppointmentID, Seq: env.Seq}
	if env.Appointment != nil && ev.Kind != model.EventDeleted {
		a, err := model.Normalize(env.Appointment, env.Partial)
		if err != nil {
			return model.Event{}, fmt.Errorf("events: envelope %s: %w", env.ID, err)
		}
		ev.Appointment = &a
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("events: envelope %s: %w", env.ID, err)
	}
	return ev, nil
}

func Marshal(ev model.Event, origin string) ([]byte, error) {
	return json.Marshal(Wrap(ev, origin))
}

func Unmarshal(data []byte) (model.Event, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Event{}, Envelope{}, fmt.Errorf("events: decode envelope: %w", err)
	}
	ev, err := env.Unwrap()
	return ev, env, err
}
