package update

import (
	"fmt"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/reminder"
)

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func reminderSummary(r *model.Reminder) string {
	if s := reminder.Label(r); s != "" {
		return s
	}
	return "off"
}

func describeEvent(ev model.Event) string {
	switch ev.Kind {
	case model.EventDeleted:
		return fmt.Sprintf("appointment %s removed", shortID(ev.AppointmentID()))
	case model.EventCreated:
		if ev.Appointment != nil && ev.Appointment.Title != "" {
			return fmt.Sprintf("%s added on %s", ev.Appointment.Title, ev.Appointment.Date)
		}
	}
	if ev.Appointment != nil && ev.Appointment.Title != "" {
		return fmt.Sprintf("%s changed", ev.Appointment.Title)
	}
	return fmt.Sprintf("appointment %s changed", shortID(ev.AppointmentID()))
}
