package model

import (
	"strings"

	"github.com/yigitselcuk/apptcal/internal/timerange"
)

// Draft is the user-editable part of an appointment, sent on create and
// update. Repeat optionally holds an RRULE for series creation.
type Draft struct {
	OwnerID     string
	Date        timerange.Date
	Start       timerange.Clock
	End         timerange.Clock
	AllDay      bool
	Title       string
	Description string
	Location    string
	Color       string
	Status      Status
	Visibility  Visibility
	Invitees    []Invitee
	Reminder    *Reminder
	Repeat      string
}

func DraftOf(a Appointment) Draft {
	c := a.Clone()
	return Draft{
		OwnerID:     c.OwnerID,
		Date:        c.Date,
		Start:       c.Start,
		End:         c.End,
		AllDay:      c.AllDay,
		Title:       c.Title,
		Description: c.Description,
		Location:    c.Location,
		Color:       c.Color,
		Status:      c.Status,
		Visibility:  c.Visibility,
		Invitees:    c.Invitees,
		Reminder:    c.Reminder,
	}
}

func (d Draft) Range() timerange.TimeRange {
	return timerange.TimeRange{Date: d.Date, Start: d.Start, End: d.End, AllDay: d.AllDay}
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.OwnerID) == "" {
		return &ValidationError{Field: "owner_id", Reason: "is required"}
	}
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if d.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if !d.AllDay && d.End <= d.Start {
		return &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	if d.Status != "" && !d.Status.IsValid() {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(d.Status)}
	}
	if d.Visibility.All && len(d.Visibility.UserIDs) > 0 {
		return &ValidationError{Field: "visibility", Reason: "user ids must be empty when visible to all"}
	}
	if d.Reminder != nil {
		return d.Reminder.Validate()
	}
	return nil
}

// Appointment materializes the draft under id. Status defaults to
// scheduled and an enabled reminder starts in the scheduled state.
func (d Draft) Appointment(id string) Appointment {
	a := Appointment{
		ID:          id,
		OwnerID:     d.OwnerID,
		Date:        d.Date,
		Start:       d.Start,
		End:         d.End,
		AllDay:      d.AllDay,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Location:    d.Location,
		Color:       d.Color,
		Status:      d.Status,
		Visibility:  d.Visibility,
		Invitees:    d.Invitees,
		Reminder:    d.Reminder,
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.AllDay {
		a.Start, a.End = 0, 0
	}
	a = a.Clone()
	if a.Reminder != nil && a.Reminder.Enabled && a.Reminder.Status == "" {
		a.Reminder.Status = ReminderScheduled
	}
	return a
}

// ParseSlot turns raw form input into a validated TimeRange. Parse failures
// come back as *ValidationError naming the offending field.
func ParseSlot(date, start, end string, allDay bool) (timerange.TimeRange, error) {
	d, err := timerange.ParseDate(date)
	if err != nil {
		return timerange.TimeRange{}, &ValidationError{Field: "date", Reason: err.Error()}
	}
	out := timerange.TimeRange{Date: d, AllDay: allDay}
	if allDay {
		return out, nil
	}
	if out.Start, err = timerange.ParseClock(start); err != nil {
		return timerange.TimeRange{}, &ValidationError{Field: "start_time", Reason: err.Error()}
	}
	if out.End, err = timerange.ParseClock(end); err != nil {
		return timerange.TimeRange{}, &ValidationError{Field: "end_time", Reason: err.Error()}
	}
	if out.End <= out.Start {
		return timerange.TimeRange{}, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	return out, nil
}
