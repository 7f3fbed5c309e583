package conflict

import (
	"testing"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

func appt(id, owner, start, end string) model.Appointment {
	return model.Appointment{
		ID:      id,
		OwnerID: owner,
		Date:    timerange.MustParseDate("2024-01-02"),
		Start:   timerange.MustParseClock(start),
		End:     timerange.MustParseClock(end),
		Status:  model.StatusScheduled,
	}
}

func slot(start, end string) timerange.TimeRange {
	return timerange.TimeRange{
		Date:  timerange.MustParseDate("2024-01-02"),
		Start: timerange.MustParseClock(start),
		End:   timerange.MustParseClock(end),
	}
}

func TestFindConflictsExcludesSelf(t *testing.T) {
	pool := []model.Appointment{appt("5", "7", "10:00", "11:00")}
	if got := FindConflicts(slot("10:30", "11:30"), Scope{OwnerID: "7", ExcludeID: "5"}, pool); len(got) != 0 {
		t.Fatalf("self edit must not conflict, got %+v", got)
	}
	if got := FindConflicts(slot("10:30", "11:30"), Scope{OwnerID: "7"}, pool); len(got) != 1 {
		t.Fatalf("expected one conflict, got %+v", got)
	}
}

func TestFindConflictsAllDayExempt(t *testing.T) {
	allDay := appt("1", "7", "00:00", "00:00")
	allDay.AllDay = true
	pool := []model.Appointment{allDay}
	if got := FindConflicts(slot("09:00", "10:00"), Scope{OwnerID: "7"}, pool); len(got) != 0 {
		t.Fatalf("all-day pool entry must not conflict, got %+v", got)
	}
	candidate := slot("09:00", "10:00")
	candidate.AllDay = true
	pool = []model.Appointment{appt("2", "7", "09:00", "10:00")}
	if got := FindConflicts(candidate, Scope{OwnerID: "7"}, pool); len(got) != 0 {
		t.Fatalf("all-day candidate must not conflict, got %+v", got)
	}
}

func TestFindConflictsSkipsInactiveAndOtherOwners(t *testing.T) {
	cancelled := appt("1", "7", "09:00", "10:00")
	cancelled.Status = model.StatusCancelled
	done := appt("2", "7", "09:00", "10:00")
	done.Status = model.StatusCompleted
	other := appt("3", "8", "09:00", "10:00")
	touching := appt("4", "7", "10:00", "11:00")
	hit := appt("5", "7", "08:30", "09:15")

	got := FindConflicts(slot("09:00", "10:00"), Scope{OwnerID: "7"},
		[]model.Appointment{cancelled, done, other, touching, hit})
	if len(got) != 1 || got[0].ID != "5" {
		t.Fatalf("expected only appointment 5, got %+v", got)
	}
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer(0)
	scope := Scope{OwnerID: "7"}
	r1 := d.Touch(slot("09:00", "10:00"), scope)
	r2 := d.Touch(slot("09:00", "10:30"), scope)
	r3 := d.Touch(slot("09:00", "11:00"), scope)

	if _, ok := d.Fire(r1.Seq); ok {
		t.Fatal("superseded edit must not fire")
	}
	if _, ok := d.Fire(r2.Seq); ok {
		t.Fatal("superseded edit must not fire")
	}
	req, ok := d.Fire(r3.Seq)
	if !ok {
		t.Fatal("latest edit must fire")
	}
	if req.Candidate.End != timerange.MustParseClock("11:00") {
		t.Fatalf("request must carry the final value, got %s", req.Candidate.End)
	}
	if _, ok := d.Fire(r3.Seq); ok {
		t.Fatal("a request fires once")
	}
	if !d.Accept(r3.Seq) {
		t.Fatal("result for the issued request must be accepted")
	}
}

func TestDebouncerDiscardsSupersededResult(t *testing.T) {
	d := NewDebouncer(DefaultDelay)
	r1 := d.Touch(slot("09:00", "10:00"), Scope{OwnerID: "7"})
	if _, ok := d.Fire(r1.Seq); !ok {
		t.Fatal("expected fire")
	}
	d.Touch(slot("09:00", "09:30"), Scope{OwnerID: "7"})
	if d.Accept(r1.Seq) {
		t.Fatal("result of an older request must be discarded")
	}
	d.Cancel()
	if _, ok := d.Fire(d.Seq()); ok {
		t.Fatal("cancelled debouncer must not fire")
	}
}
