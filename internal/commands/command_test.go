package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

var today = timerange.MustParseDate("2024-01-03")

func parse(t *testing.T, in string) Command {
	t.Helper()
	cmd, err := ParseAt(in, today, time.UTC)
	if err != nil {
		t.Fatalf("parse %q failed: %v", in, err)
	}
	return cmd
}

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/new 2024-01-05 09:00-10:00 dentist", TypeNew},
		{"edit abc at tomorrow 10:00-11:00", TypeEdit},
		{"move abc 2024-01-09", TypeMove},
		{"delete abc", TypeDelete},
		{"cancel abc", TypeCancel},
		{"resend abc now", TypeResend},
		{"reschedule abc 2h", TypeReschedule},
		{"goto today", TypeGoto},
		{"view month", TypeView},
	}

	for _, tc := range cases {
		cmd := parse(t, tc.in)
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseNewWithOptions(t *testing.T) {
	cmd := parse(t, `new tomorrow 09:30-10:15 Annual checkup loc="Room 4" remind=1d visible=3,ali@example.com invite=Ayse,+905551112233 repeat=FREQ=WEEKLY;COUNT=4`)
	a := cmd.New
	if a.Slot.Date.String() != "2024-01-04" || a.Slot.Start.String() != "09:30" || a.Slot.End.String() != "10:15" {
		t.Fatalf("unexpected slot: %+v", a.Slot)
	}
	if a.Title != "Annual checkup" || *a.Options.Location != "Room 4" {
		t.Fatalf("unexpected title or location: %+v", a)
	}
	if r := a.Options.Reminder; r == nil || r.Value != 1 || r.Unit != model.ReminderDays {
		t.Fatalf("unexpected reminder: %+v", r)
	}
	if a.Options.Repeat != "FREQ=WEEKLY;COUNT=4" {
		t.Fatalf("unexpected repeat: %q", a.Options.Repeat)
	}
	if len(a.Options.Invitees) != 2 || a.Options.Invitees[1].Phone != "+905551112233" {
		t.Fatalf("unexpected invitees: %+v", a.Options.Invitees)
	}

	d := a.Draft("7")
	if d.OwnerID != "7" || !d.Visibility.Contains("ali@example.com") || d.Visibility.Contains("7") {
		t.Fatalf("unexpected draft visibility: %+v", d.Visibility)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("draft should validate: %v", err)
	}
}

func TestParseAllDayAndDefaults(t *testing.T) {
	d := parse(t, "new 2024-02-01 allday Holiday").New.Draft("7")
	if !d.AllDay || !d.Visibility.Contains("7") || d.Reminder != nil {
		t.Fatalf("unexpected all-day draft: %+v", d)
	}
}

func TestParseRejectsBadArguments(t *testing.T) {
	for _, in := range []string{
		"new 2024-01-05 10:00-10:00 same",
		"new 2024-01-05 10:00 missing-end",
		"new 05.01.2024 09:00-10:00 wrong date",
		"new 2024-01-05 09:00-10:00 x status=archived",
		"new 2024-01-05 09:00-10:00 x remind=5y",
		`new 2024-01-05 09:00-10:00 "open quote`,
		"edit abc",
		"edit abc repeat=FREQ=DAILY",
		"reschedule abc soon",
		"view decade",
		"delete",
	} {
		_, err := ParseAt(in, today, time.UTC)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("%q: expected invalid argument, got %v", in, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if _, err := Parse("   "); !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
		t.Fatalf("expected empty input error, got %v", err)
	}
}

func TestEditAndMoveApply(t *testing.T) {
	base := model.Draft{
		OwnerID: "7", Title: "Checkup", Date: timerange.MustParseDate("2024-01-05"),
		Start: timerange.MustParseClock("09:00"), End: timerange.MustParseClock("10:00"),
		Location: "Room 1",
		Reminder: &model.Reminder{Enabled: true, Value: 1, Unit: model.ReminderHours, Status: model.ReminderSent},
	}

	d := parse(t, "edit abc Follow up at 2024-01-06 11:00-11:30 remind=off").Edit.Apply(base)
	if d.Title != "Follow up" || d.Date.String() != "2024-01-06" || d.Start.String() != "11:00" {
		t.Fatalf("unexpected edited draft: %+v", d)
	}
	if d.Location != "Room 1" || d.Reminder.Enabled || !base.Reminder.Enabled {
		t.Fatalf("edit must disable only the copy's reminder: %+v", d.Reminder)
	}
}

func TestMoveKeepsTimesWithoutRange(t *testing.T) {
	base := model.Draft{
		Date:  timerange.MustParseDate("2024-01-05"),
		Start: timerange.MustParseClock("09:00"), End: timerange.MustParseClock("10:00"),
	}
	d := parse(t, "move abc 2024-01-08").Move.Apply(base)
	if d.Date.String() != "2024-01-08" || d.Start.String() != "09:00" || d.End.String() != "10:00" {
		t.Fatalf("unexpected moved draft: %+v", d)
	}
	d = parse(t, "move abc yesterday 14:00-15:00").Move.Apply(base)
	if d.Date.String() != "2024-01-02" || d.Start.String() != "14:00" {
		t.Fatalf("unexpected moved draft: %+v", d)
	}
}

func TestParseResendAt(t *testing.T) {
	cmd := parse(t, "resend abc 2024-01-04 08:30")
	want := time.Date(2024, 1, 4, 8, 30, 0, 0, time.UTC)
	if cmd.Resend.At == nil || !cmd.Resend.At.Equal(want) {
		t.Fatalf("unexpected resend time: %v", cmd.Resend.At)
	}
	if parse(t, "resend abc").Resend.At != nil {
		t.Fatal("resend without time means now")
	}
	r := parse(t, "reschedule abc 30 minutes").Reschedule
	if r.Value != 30 || r.Unit != model.ReminderMinutes {
		t.Fatalf("unexpected reschedule: %+v", r)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd := parse(t, "/new 2024-01-05 09:00-10:00 write docs")

	called := false
	res, err := Execute(cmd, Handlers{
		New: func(a NewArgs) (Result, error) {
			called = true
			if a.Title != "write docs" {
				t.Fatalf("unexpected title: %q", a.Title)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd := parse(t, "view week")
	_, err := Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
