package views

import (
	"strings"
	"testing"

	"github.com/yigitselcuk/apptcal/internal/compose"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
	"github.com/yigitselcuk/apptcal/internal/visibility"
)

func appt(id, date, start, end, title string) model.Appointment {
	return model.Appointment{
		ID:         id,
		OwnerID:    "7",
		Date:       timerange.MustParseDate(date),
		Start:      timerange.MustParseClock(start),
		End:        timerange.MustParseClock(end),
		Title:      title,
		Status:     model.StatusScheduled,
		Visibility: model.VisibleToAll(),
	}
}

func viewOf(g compose.Granularity, list ...model.Appointment) compose.CalendarView {
	frame := compose.Frame{Granularity: g, Anchor: timerange.MustParseDate("2024-01-03")}
	return compose.Compose(list, frame, model.Viewer{ID: "7"}, visibility.DefaultPolicy(), compose.DefaultLayout())
}

func TestRenderWeekPanel(t *testing.T) {
	confirmed := appt("b", "2024-01-03", "13:00", "14:00", "Lab results")
	confirmed.Status = model.StatusConfirmed
	view := viewOf(compose.Week, appt("a", "2024-01-03", "09:00", "09:30", "Checkup"), confirmed)

	out := RenderCalendarPanel(CalendarPanelData{View: view, SelectedID: "a"})
	for _, want := range []string{"Week of 2024-01-01..2024-01-07 (2)", "Wed 2024-01-03", "> 09:00-09:30 Checkup", "[confirmed]", "(free)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in week panel:\n%s", want, out)
		}
	}
}

func TestRenderYearPanel(t *testing.T) {
	view := viewOf(compose.Year, appt("a", "2024-03-05", "09:00", "10:00", "Annual"))
	out := RenderCalendarPanel(CalendarPanelData{View: view})
	if !strings.Contains(out, "March      1") || !strings.Contains(out, "2024-03-05 Annual") {
		t.Fatalf("unexpected year panel:\n%s", out)
	}
}

func TestRenderDetail(t *testing.T) {
	a := appt("a", "2024-01-03", "09:00", "09:30", "Checkup")
	a.Reminder = &model.Reminder{Enabled: true, Value: 1, Unit: model.ReminderHours, Status: model.ReminderFailed, LastError: "gateway down"}
	a.Invitees = []model.Invitee{{Name: "Ayse"}}
	out := RenderDetail(DetailData{Appointment: &a})
	for _, want := range []string{"when: 2024-01-03 09:00-09:30", "visible: everyone", "invitees: Ayse", "1 hour before (failed)", "gateway down"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in detail:\n%s", want, out)
		}
	}
	if RenderDetail(DetailData{}) != "details:\n(no selection)" {
		t.Fatal("unexpected empty detail")
	}
}

func TestRenderDraftPanelPrefersAuthoritativeConflicts(t *testing.T) {
	d := model.Draft{Title: "New", Date: timerange.MustParseDate("2024-01-03"), Start: timerange.MustParseClock("09:00"), End: timerange.MustParseClock("10:00")}
	out := RenderDraftPanel(DraftPanelData{
		Draft:     d,
		Advisory:  []model.Appointment{appt("x", "2024-01-03", "09:00", "09:30", "Local")},
		Conflicts: []model.Appointment{appt("y", "2024-01-03", "09:30", "10:30", "Remote")},
	})
	if !strings.Contains(out, "conflicts with:") || !strings.Contains(out, "Remote") || strings.Contains(out, "Local") {
		t.Fatalf("unexpected draft panel:\n%s", out)
	}
}
