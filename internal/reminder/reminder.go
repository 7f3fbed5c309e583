package reminder

import (
	"errors"
	"fmt"
	"time"

	"github.com/yigitselcuk/apptcal/internal/model"
)

var (
	ErrNoReminder = errors.New("reminder: appointment has no reminder")
	ErrDisabled   = errors.New("reminder: reminder is disabled")
)

// TransitionError rejects a move the state machine does not allow.
type TransitionError struct {
	From model.ReminderStatus
	To   model.ReminderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("reminder: cannot move from %s to %s", e.From, e.To)
}

var transitions = map[model.ReminderStatus][]model.ReminderStatus{
	model.ReminderScheduled: {model.ReminderSending, model.ReminderCancelled, model.ReminderScheduled},
	model.ReminderSending:   {model.ReminderSent, model.ReminderFailed},
	model.ReminderSent:      {model.ReminderScheduled},
	model.ReminderFailed:    {model.ReminderScheduled},
	model.ReminderCancelled: {},
}

func CanTransition(from, to model.ReminderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func move(r *model.Reminder, to model.ReminderStatus) error {
	if r == nil {
		return ErrNoReminder
	}
	if !CanTransition(r.Status, to) {
		return &TransitionError{From: r.Status, To: to}
	}
	r.Status = to
	return nil
}

// StartOf is the instant an appointment begins in loc. All-day appointments
// begin at local midnight.
func StartOf(a model.Appointment, loc *time.Location) time.Time {
	if a.AllDay {
		return a.Date.In(loc)
	}
	return a.Date.At(a.Start, loc)
}

// DueAt is when the reminder for a should go out.
func DueAt(a model.Appointment, loc *time.Location) (time.Time, error) {
	if a.Reminder == nil {
		return time.Time{}, ErrNoReminder
	}
	return StartOf(a, loc).Add(-a.Reminder.Offset()), nil
}

// Arm puts a newly enabled reminder into the scheduled state with its due
// time filled in.
func Arm(a model.Appointment, loc *time.Location) (*model.Reminder, error) {
	if a.Reminder == nil {
		return nil, ErrNoReminder
	}
	r := *a.Reminder
	if !r.Enabled {
		return nil, ErrDisabled
	}
	due, err := DueAt(a, loc)
	if err != nil {
		return nil, err
	}
	r.Status = model.ReminderScheduled
	r.ScheduledAt = &due
	r.SentAt = nil
	r.LastError = ""
	return &r, nil
}

// Resend schedules a sent or failed reminder again at at.
func Resend(r model.Reminder, at time.Time) (model.Reminder, error) {
	if r.Status != model.ReminderSent && r.Status != model.ReminderFailed {
		return r, &TransitionError{From: r.Status, To: model.ReminderScheduled}
	}
	if err := move(&r, model.ReminderScheduled); err != nil {
		return r, err
	}
	r.Enabled = true
	r.ScheduledAt = &at
	r.LastError = ""
	return r, nil
}

// Reschedule changes the offset of a reminder and recomputes its due time
// from the appointment start.
func Reschedule(a model.Appointment, value int, unit model.ReminderUnit, loc *time.Location) (model.Reminder, error) {
	if a.Reminder == nil {
		return model.Reminder{}, ErrNoReminder
	}
	r := *a.Reminder
	if err := move(&r, model.ReminderScheduled); err != nil {
		return *a.Reminder, err
	}
	r.Enabled = true
	r.Value = value
	r.Unit = unit
	if err := r.Validate(); err != nil {
		return *a.Reminder, err
	}
	due := StartOf(a, loc).Add(-r.Offset())
	r.ScheduledAt = &due
	r.SentAt = nil
	r.LastError = ""
	return r, nil
}

func Begin(r model.Reminder) (model.Reminder, error) {
	err := move(&r, model.ReminderSending)
	return r, err
}

func Complete(r model.Reminder, at time.Time) (model.Reminder, error) {
	if err := move(&r, model.ReminderSent); err != nil {
		return r, err
	}
	r.SentAt = &at
	r.LastError = ""
	return r, nil
}

func Fail(r model.Reminder, cause error) (model.Reminder, error) {
	if err := move(&r, model.ReminderFailed); err != nil {
		return r, err
	}
	if cause != nil {
		r.LastError = cause.Error()
	}
	return r, nil
}

func Cancel(r model.Reminder) (model.Reminder, error) {
	err := move(&r, model.ReminderCancelled)
	return r, err
}

// Label is the short form shown next to an appointment.
func Label(r *model.Reminder) string {
	if r == nil || !r.Enabled {
		return ""
	}
	unit := string(r.Unit)
	if r.Value == 1 && len(unit) > 1 {
		unit = unit[:len(unit)-1]
	}
	s := fmt.Sprintf("%d %s before", r.Value, unit)
	if r.Status != "" {
		s += " (" + string(r.Status) + ")"
	}
	return s
}
