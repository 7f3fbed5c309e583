package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yigitselcuk/apptcal/internal/compose"
	"github.com/yigitselcuk/apptcal/internal/conflict"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

type fakeService struct {
	rows      []model.Appointment
	conflicts []model.Appointment
	saveErr   error
	deleteErr error
	fetches   []timerange.DateRange
	saved     []SaveRequest
}

func (f *fakeService) FetchAppointments(_ context.Context, r timerange.DateRange) ([]model.Appointment, error) {
	f.fetches = append(f.fetches, r)
	var out []model.Appointment
	for _, a := range f.rows {
		if r.Contains(a.Date) {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (f *fakeService) CheckConflict(context.Context, timerange.TimeRange, conflict.Scope) ([]model.Appointment, error) {
	return f.conflicts, nil
}

func (f *fakeService) CreateAppointment(_ context.Context, d model.Draft) (model.Appointment, error) {
	f.saved = append(f.saved, SaveRequest{Draft: d})
	if f.saveErr != nil {
		return model.Appointment{}, f.saveErr
	}
	a := d.Appointment("new-1")
	a.Version = 1
	return a, nil
}

func (f *fakeService) UpdateAppointment(_ context.Context, id string, d model.Draft) (model.Appointment, error) {
	f.saved = append(f.saved, SaveRequest{ID: id, Draft: d})
	if f.saveErr != nil {
		return model.Appointment{}, f.saveErr
	}
	a := d.Appointment(id)
	a.Version = 2
	return a, nil
}

func (f *fakeService) DeleteAppointment(context.Context, string) error {
	return f.deleteErr
}

func (f *fakeService) ResendReminder(_ context.Context, _ string, at *time.Time) (model.Reminder, error) {
	return model.Reminder{Enabled: true, Value: 1, Unit: model.ReminderHours, Status: model.ReminderScheduled, ScheduledAt: at}, nil
}

func (f *fakeService) RescheduleReminder(_ context.Context, _ string, value int, unit model.ReminderUnit) (model.Reminder, error) {
	return model.Reminder{Enabled: true, Value: value, Unit: unit, Status: model.ReminderScheduled}, nil
}

func appt(id, date, start, end string) model.Appointment {
	return model.Appointment{
		ID:         id,
		OwnerID:    "7",
		Date:       timerange.MustParseDate(date),
		Start:      timerange.MustParseClock(start),
		End:        timerange.MustParseClock(end),
		Title:      "Visit " + id,
		Status:     model.StatusScheduled,
		Visibility: model.VisibleTo("7"),
		Version:    1,
	}
}

func week(date string) compose.Frame {
	return compose.Frame{Granularity: compose.Week, Anchor: timerange.MustParseDate(date)}
}

func newSession(t *testing.T, svc *fakeService) *Session {
	t.Helper()
	s := New(svc, model.Viewer{ID: "7"}, week("2024-01-03"), nil, Options{})
	req := s.Refresh()
	if ok, err := s.ApplyFetch(s.Fetch(context.Background(), req)); !ok || err != nil {
		t.Fatalf("initial fetch not applied: ok=%v err=%v", ok, err)
	}
	return s
}

func TestSessionFetchIntoWindow(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{
		appt("a", "2024-01-02", "09:00", "10:00"),
		appt("b", "2024-01-09", "09:00", "10:00"),
		appt("c", "2024-03-01", "09:00", "10:00"),
	}}
	s := newSession(t, svc)

	if got := svc.fetches[0].String(); got != "2023-12-25..2024-01-14" {
		t.Fatalf("unexpected fetch range %s", got)
	}
	if s.Len() != 2 {
		t.Fatalf("expected window plus buffer to hold 2 rows, got %d", s.Len())
	}
	agenda := s.Agenda()
	if len(agenda) != 1 || agenda[0].ID != "a" {
		t.Fatalf("agenda must show only the visible week, got %+v", agenda)
	}
}

func TestSessionDropsStaleGeneration(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{appt("a", "2024-01-02", "09:00", "10:00")}}
	s := New(svc, model.Viewer{ID: "7"}, week("2024-01-03"), nil, Options{})

	first := s.Refresh()
	second := s.Navigate(week("2024-01-10"))
	if ok, _ := s.ApplyFetch(s.Fetch(context.Background(), first)); ok {
		t.Fatal("fetch of superseded generation must be dropped")
	}
	if ok, _ := s.ApplyFetch(s.Fetch(context.Background(), second)); !ok {
		t.Fatal("current fetch must apply")
	}
}

func TestSessionNavigateEvicts(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{appt("a", "2024-01-02", "09:00", "10:00")}}
	s := newSession(t, svc)

	s.Navigate(s.Frame().Step(2))
	if s.Len() != 0 {
		t.Fatalf("moving two weeks forward must evict, store holds %d", s.Len())
	}
}

func TestSessionDeleteDuringFetchStaysDeleted(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{appt("a", "2024-01-02", "09:00", "10:00")}}
	s := newSession(t, svc)

	req := s.Refresh()
	res := s.Fetch(context.Background(), req)
	if _, _, err := s.HandleEvent(model.Deleted("a")); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	s.ApplyFetch(res)
	if _, ok := s.Get("a"); ok {
		t.Fatal("fetch issued before the delete must not resurrect the row")
	}
}

func TestSessionRefreshDropsRowsGoneRemotely(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{
		appt("a", "2024-01-02", "09:00", "10:00"),
		appt("b", "2024-01-03", "09:00", "10:00"),
	}}
	s := newSession(t, svc)

	svc.rows = svc.rows[:1]
	s.ApplyFetch(s.Fetch(context.Background(), s.Refresh()))
	if _, ok := s.Get("b"); ok {
		t.Fatal("row missing from refresh must be removed")
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("row still returned must be kept")
	}
}

func TestSessionEventsAreIdempotentAndVersioned(t *testing.T) {
	s := newSession(t, &fakeService{})
	a := appt("x", "2024-01-04", "13:00", "14:00")
	a.Version = 3

	for i := 0; i < 2; i++ {
		if _, _, err := s.HandleEvent(model.Created(a)); err != nil {
			t.Fatalf("created: %v", err)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("duplicate created must keep one copy, got %d", s.Len())
	}

	old := a
	old.Version = 2
	old.Title = "old"
	if _, _, err := s.HandleEvent(model.Updated(old)); err != nil {
		t.Fatalf("stale update must not error: %v", err)
	}
	if got, _ := s.Get("x"); got.Title != a.Title {
		t.Fatalf("stale update changed the store: %+v", got)
	}
}

func TestSessionDraftDebounceAndConflicts(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{appt("a", "2024-01-02", "09:00", "10:00")}}
	s := newSession(t, svc)

	d := model.Draft{OwnerID: "7", Title: "New", Date: timerange.MustParseDate("2024-01-02")}
	var last conflict.Request
	var local []model.Appointment
	for _, end := range []string{"09:30", "10:30", "11:00"} {
		d.Start = timerange.MustParseClock("09:15")
		d.End = timerange.MustParseClock(end)
		last, local = s.EditDraft("", d)
	}
	if len(local) != 1 || local[0].ID != "a" {
		t.Fatalf("expected local advisory conflict with a, got %+v", local)
	}
	if _, ok := s.FireCheck(last.Seq - 1); ok {
		t.Fatal("superseded edit must not fire")
	}
	req, ok := s.FireCheck(last.Seq)
	if !ok || req.Candidate.End != timerange.MustParseClock("11:00") {
		t.Fatalf("latest edit must fire with final value, got %+v ok=%v", req, ok)
	}

	svc.conflicts = []model.Appointment{appt("a", "2024-01-02", "09:00", "10:00")}
	res := s.Check(context.Background(), req)
	s.EditDraft("", d)
	if s.ApplyConflict(res) {
		t.Fatal("result for an older edit must be discarded")
	}
}

func TestSessionEventOnDraftDayRetriggersCheck(t *testing.T) {
	s := newSession(t, &fakeService{})
	d := model.Draft{
		OwnerID: "7", Title: "New", Date: timerange.MustParseDate("2024-01-04"),
		Start: timerange.MustParseClock("10:00"), End: timerange.MustParseClock("11:00"),
	}
	first, _ := s.EditDraft("", d)

	_, req, err := s.HandleEvent(model.Created(appt("other", "2024-01-04", "10:30", "11:30")))
	if err != nil || req == nil || req.Seq <= first.Seq {
		t.Fatalf("expected a new check request, got %+v err=%v", req, err)
	}
	_, req, _ = s.HandleEvent(model.Created(appt("elsewhere", "2024-01-05", "10:30", "11:30")))
	if req != nil {
		t.Fatal("event on another day must not retrigger the check")
	}
}

func TestSessionSaveFlow(t *testing.T) {
	svc := &fakeService{}
	s := newSession(t, svc)
	d := model.Draft{
		OwnerID: "7", Title: "Checkup", Date: timerange.MustParseDate("2024-01-04"),
		Start: timerange.MustParseClock("10:00"), End: timerange.MustParseClock("11:00"),
		Visibility: model.VisibleTo("7"),
	}

	if _, err := s.PrepareSave("", model.Draft{OwnerID: "7"}); !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req, err := s.PrepareSave("", d)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := s.ApplySave(s.Save(context.Background(), req)); err != nil {
		t.Fatalf("apply save: %v", err)
	}
	if _, ok := s.Get("new-1"); !ok {
		t.Fatal("created appointment must be in the store")
	}

	svc.saveErr = &model.ConflictError{Conflicts: []model.Appointment{appt("z", "2024-01-04", "10:00", "11:00")}}
	req, _ = s.PrepareSave("new-1", d)
	_, err = s.ApplySave(s.Save(context.Background(), req))
	if _, ok := model.AsConflict(err); !ok {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if got := s.Conflicts(); len(got) != 1 || got[0].ID != "z" {
		t.Fatalf("conflicting set must be kept for display, got %+v", got)
	}
}

func TestSessionDeleteFlow(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{appt("a", "2024-01-02", "09:00", "10:00")}}
	s := newSession(t, svc)

	svc.deleteErr = errors.New("offline")
	s.PrepareDelete("a")
	if _, err := s.ApplyDelete("a", s.Delete(context.Background(), "a")); err == nil {
		t.Fatal("expected delete error")
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("failed delete must leave the store unchanged")
	}

	svc.deleteErr = model.ErrNotFound
	if _, err := s.ApplyDelete("a", s.Delete(context.Background(), "a")); err != nil {
		t.Fatalf("not found delete should remove locally: %v", err)
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("appointment must be gone")
	}
}

func TestSessionApplyReminderPatchesHeldCopy(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{appt("a", "2024-01-02", "09:00", "10:00")}}
	s := newSession(t, svc)

	if _, err := s.ApplyReminder(s.Reschedule(context.Background(), "a", 2, model.ReminderHours)); err != nil {
		t.Fatalf("apply reminder: %v", err)
	}
	got, _ := s.Get("a")
	if got.Reminder == nil || got.Reminder.Value != 2 || got.Title != "Visit a" {
		t.Fatalf("unexpected patched appointment: %+v", got)
	}
}

func TestSessionResolve(t *testing.T) {
	svc := &fakeService{rows: []model.Appointment{
		appt("abc-1", "2024-01-02", "09:00", "10:00"),
		appt("abc-2", "2024-01-03", "09:00", "10:00"),
		appt("xyz", "2024-01-04", "09:00", "10:00"),
	}}
	s := newSession(t, svc)

	if a, err := s.Resolve("xy"); err != nil || a.ID != "xyz" {
		t.Fatalf("unique prefix: %+v %v", a, err)
	}
	if _, err := s.Resolve("abc"); !errors.Is(err, ErrAmbiguousRef) {
		t.Fatalf("expected ambiguity, got %v", err)
	}
	if _, err := s.Resolve("nope"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
