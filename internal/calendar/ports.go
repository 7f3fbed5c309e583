package calendar

import (
	"context"
	"time"

	"github.com/yigitselcuk/apptcal/internal/conflict"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

// AppointmentService is the authoritative side of the calendar. Its
// overlap check gates every save; its responses are folded into the
// session as change events.
type AppointmentService interface {
	FetchAppointments(ctx context.Context, r timerange.DateRange) ([]model.Appointment, error)
	CheckConflict(ctx context.Context, slot timerange.TimeRange, scope conflict.Scope) ([]model.Appointment, error)
	CreateAppointment(ctx context.Context, d model.Draft) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, d model.Draft) (model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
	ResendReminder(ctx context.Context, id string, at *time.Time) (model.Reminder, error)
	RescheduleReminder(ctx context.Context, id string, value int, unit model.ReminderUnit) (model.Reminder, error)
}

// EventSource delivers every remote mutation, including the ones this
// session made itself.
type EventSource interface {
	Subscribe(ctx context.Context, handler func(model.Event)) error
}
