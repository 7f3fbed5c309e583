package reminder

import (
	"errors"
	"testing"
	"time"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

func withReminder(status model.ReminderStatus) model.Appointment {
	return model.Appointment{
		ID:     "5",
		Date:   timerange.MustParseDate("2024-01-02"),
		Start:  timerange.MustParseClock("10:00"),
		End:    timerange.MustParseClock("11:00"),
		Status: model.StatusScheduled,
		Reminder: &model.Reminder{
			Enabled: true, Value: 30, Unit: model.ReminderMinutes, Status: status,
		},
	}
}

func TestArmComputesDueTime(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	r, err := Arm(withReminder(""), loc)
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	want := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	if r.Status != model.ReminderScheduled || !r.ScheduledAt.Equal(want) {
		t.Fatalf("unexpected armed reminder: %+v at %v", r, r.ScheduledAt)
	}
}

func TestDeliveryPath(t *testing.T) {
	r := *withReminder(model.ReminderScheduled).Reminder
	r, err := Begin(r)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	now := time.Now()
	r, err = Complete(r, now)
	if err != nil || r.Status != model.ReminderSent || r.SentAt == nil {
		t.Fatalf("complete: %+v err=%v", r, err)
	}
}

func TestSendingCannotBeRescheduled(t *testing.T) {
	a := withReminder(model.ReminderSending)
	_, err := Reschedule(a, 1, model.ReminderHours, time.UTC)
	var te *TransitionError
	if !errors.As(err, &te) || te.From != model.ReminderSending {
		t.Fatalf("expected transition error, got %v", err)
	}
	if _, err := Resend(*a.Reminder, time.Now()); err == nil {
		t.Fatal("resend from sending must fail")
	}
}

func TestResendFromFailed(t *testing.T) {
	r := *withReminder(model.ReminderFailed).Reminder
	r.LastError = "smtp down"
	at := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	out, err := Resend(r, at)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if out.Status != model.ReminderScheduled || !out.ScheduledAt.Equal(at) || out.LastError != "" {
		t.Fatalf("unexpected resent reminder: %+v", out)
	}
	if _, err := Resend(*withReminder(model.ReminderScheduled).Reminder, at); err == nil {
		t.Fatal("resend of a pending reminder must fail")
	}
}

func TestRescheduleRecomputesDue(t *testing.T) {
	out, err := Reschedule(withReminder(model.ReminderSent), 1, model.ReminderDays, time.UTC)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if out.Status != model.ReminderScheduled || !out.ScheduledAt.Equal(want) || out.SentAt != nil {
		t.Fatalf("unexpected rescheduled reminder: %+v", out)
	}
	if _, err := Reschedule(withReminder(model.ReminderSent), 0, model.ReminderDays, time.UTC); err == nil {
		t.Fatal("zero value must be rejected")
	}
}

func TestCancelOnlyFromScheduled(t *testing.T) {
	if _, err := Cancel(*withReminder(model.ReminderScheduled).Reminder); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := Cancel(*withReminder(model.ReminderSent).Reminder); err == nil {
		t.Fatal("sent reminder cannot be cancelled")
	}
}

func TestLabel(t *testing.T) {
	r := &model.Reminder{Enabled: true, Value: 1, Unit: model.ReminderHours, Status: model.ReminderSent}
	if got := Label(r); got != "1 hour before (sent)" {
		t.Fatalf("unexpected label %q", got)
	}
	if Label(nil) != "" {
		t.Fatal("nil reminder has no label")
	}
}

func TestStartOfKeepsWallClockAcrossDST(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("zone data unavailable: %v", err)
	}
	a := model.Appointment{
		Date:  timerange.MustParseDate("2024-03-31"),
		Start: timerange.MustParseClock("10:00"),
		End:   timerange.MustParseClock("11:00"),
	}
	got := StartOf(a, berlin)
	if got.Hour() != 10 || got.Minute() != 0 {
		t.Fatalf("expected 10:00 on the spring-forward day, got %s", got)
	}
	a.Date = timerange.MustParseDate("2024-10-27")
	if got := StartOf(a, berlin); got.Hour() != 10 {
		t.Fatalf("expected 10:00 on the fall-back day, got %s", got)
	}
}
