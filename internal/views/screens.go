package views

import (
	"fmt"
	"strings"

	"github.com/yigitselcuk/apptcal/internal/compose"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/reminder"
)

type CalendarPanelData struct {
	View       compose.CalendarView
	SelectedID string
	Fetching   string
}

type DetailData struct {
	Appointment *model.Appointment
	Description string
}

type DraftPanelData struct {
	Editing   string
	Draft     model.Draft
	Advisory  []model.Appointment
	Conflicts []model.Appointment
	Checking  bool
	Saving    bool
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

// RenderCalendarPanel draws the composed view: columns for day and week
// frames, a compact date list for months, and per-month counts for years.
func RenderCalendarPanel(data CalendarPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (%d)", data.View.Frame.Title(), data.View.Total))
	if data.Fetching != "" {
		b.WriteString(" " + data.Fetching)
	}
	b.WriteString("\n")

	switch data.View.Frame.Granularity {
	case compose.Year:
		renderYear(&b, data)
	case compose.Month:
		renderMonth(&b, data)
	default:
		renderColumns(&b, data)
	}
	return strings.TrimSpace(b.String())
}

func renderColumns(b *strings.Builder, data CalendarPanelData) {
	for _, col := range data.View.Columns {
		b.WriteString("\n" + dayTitleStyle.Render(fmt.Sprintf("%s %s", col.Date.Weekday().String()[:3], col.Date)) + "\n")
		if len(col.Entries) == 0 {
			b.WriteString(mutedStyle.Render("  (free)") + "\n")
			continue
		}
		for _, e := range col.Entries {
			b.WriteString(entryLine(e.Appointment, data.SelectedID) + "\n")
		}
	}
}

func renderMonth(b *strings.Builder, data CalendarPanelData) {
	empty := 0
	for _, col := range data.View.Columns {
		if len(col.Entries) == 0 {
			empty++
			continue
		}
		b.WriteString("\n" + dayTitleStyle.Render(fmt.Sprintf("%s %s", col.Date.Weekday().String()[:3], col.Date)) + "\n")
		for _, e := range col.Entries {
			b.WriteString(entryLine(e.Appointment, data.SelectedID) + "\n")
		}
	}
	if empty == len(data.View.Columns) {
		b.WriteString(mutedStyle.Render("(no appointments this month)"))
	}
}

func renderYear(b *strings.Builder, data CalendarPanelData) {
	for _, m := range data.View.Months {
		if m.Count == 0 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("%-10s -", m.Month)) + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf("%-10s %d\n", m.Month, m.Count))
		for _, a := range m.Items {
			b.WriteString(fmt.Sprintf("  %s %s\n", a.Date, a.Title))
		}
		if m.More > 0 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  +%d more", m.More)) + "\n")
		}
	}
}

func entryLine(a model.Appointment, selectedID string) string {
	cursor := " "
	if a.ID == selectedID {
		cursor = ">"
	}
	when := "all day    "
	if !a.AllDay {
		when = fmt.Sprintf("%s-%s", a.Start, a.End)
	}
	line := fmt.Sprintf("%s %s %s", cursor, when, swatch(a.Color).Render(a.Title))
	if a.Status != model.StatusScheduled {
		line += mutedStyle.Render(" [" + string(a.Status) + "]")
	}
	return line
}

func RenderDetail(data DetailData) string {
	a := data.Appointment
	if a == nil {
		return "details:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("details:\n")
	b.WriteString(fmt.Sprintf("title: %s\n", a.Title))
	when := a.Date.String() + " all day"
	if !a.AllDay {
		when = fmt.Sprintf("%s %s-%s", a.Date, a.Start, a.End)
	}
	b.WriteString(fmt.Sprintf("when: %s\n", when))
	b.WriteString(fmt.Sprintf("status: %s\n", a.Status))
	if a.Location != "" {
		b.WriteString(fmt.Sprintf("location: %s\n", a.Location))
	}
	if a.Visibility.All {
		b.WriteString("visible: everyone\n")
	} else {
		b.WriteString(fmt.Sprintf("visible: %s\n", strings.Join(a.Visibility.UserIDs, ",")))
	}
	if len(a.Invitees) > 0 {
		names := make([]string, 0, len(a.Invitees))
		for _, inv := range a.Invitees {
			names = append(names, inv.Name)
		}
		b.WriteString(fmt.Sprintf("invitees: %s\n", strings.Join(names, ", ")))
	}
	if label := reminder.Label(a.Reminder); label != "" {
		b.WriteString(fmt.Sprintf("reminder: %s\n", label))
		if a.Reminder.LastError != "" {
			b.WriteString(warnStyle.Render("last error: "+a.Reminder.LastError) + "\n")
		}
	}
	if a.GoogleEventID != "" {
		b.WriteString(mutedStyle.Render("google: "+a.GoogleEventID) + "\n")
	}
	b.WriteString(mutedStyle.Render("id: "+a.ID) + "\n")
	if data.Description != "" {
		b.WriteString("\n" + data.Description)
	}
	return strings.TrimSpace(b.String())
}

func RenderDraftPanel(data DraftPanelData) string {
	var b strings.Builder
	title := "new appointment"
	if data.Editing != "" {
		title = "editing " + data.Editing
	}
	b.WriteString(title + ":\n")
	d := data.Draft
	when := d.Date.String() + " all day"
	if !d.AllDay {
		when = fmt.Sprintf("%s %s-%s", d.Date, d.Start, d.End)
	}
	b.WriteString(fmt.Sprintf("%s | %s\n", when, d.Title))
	if d.Repeat != "" {
		b.WriteString(fmt.Sprintf("repeat: %s\n", d.Repeat))
	}
	switch {
	case data.Saving:
		b.WriteString("saving...\n")
	case data.Checking:
		b.WriteString(mutedStyle.Render("checking availability...") + "\n")
	}
	if len(data.Conflicts) > 0 {
		b.WriteString(errorStyle.Render("conflicts with:") + "\n")
		for _, c := range data.Conflicts {
			b.WriteString(fmt.Sprintf("  %s %s-%s %s\n", c.Date, c.Start, c.End, c.Title))
		}
	} else if len(data.Advisory) > 0 {
		b.WriteString(warnStyle.Render("may overlap:") + "\n")
		for _, c := range data.Advisory {
			b.WriteString(fmt.Sprintf("  %s %s-%s %s\n", c.Date, c.Start, c.End, c.Title))
		}
	}
	b.WriteString("[enter] save  [esc] discard")
	return b.String()
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: %s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s",
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
