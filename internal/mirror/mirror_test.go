package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

func appt(id string) model.Appointment {
	return model.Appointment{
		ID:          id,
		OwnerID:     "7",
		Date:        timerange.MustParseDate("2024-01-02"),
		Start:       timerange.MustParseClock("10:00"),
		End:         timerange.MustParseClock("11:30"),
		Title:       "Dentist " + id,
		Description: "bring x-rays",
		Location:    "Room 4",
		Status:      model.StatusScheduled,
		Version:     3,
	}
}

func TestICSMirrorWritesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror", "calendar.ics")
	m, err := NewICSMirror(path, time.UTC)
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	ctx := context.Background()
	if _, err := m.Upsert(ctx, appt("a")); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	holiday := appt("b")
	holiday.AllDay = true
	if _, err := m.Upsert(ctx, holiday); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ics: %v", err)
	}
	list, err := ParseICS(body, time.UTC)
	if err != nil {
		t.Fatalf("parse ics: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two events, got %d", len(list))
	}
	if list[0].ID != "a" || list[0].Start.String() != "10:00" || list[0].End.String() != "11:30" || list[0].Location != "Room 4" {
		t.Fatalf("unexpected timed event: %+v", list[0])
	}
	if !list[1].AllDay || list[1].Date.String() != "2024-01-02" {
		t.Fatalf("unexpected all-day event: %+v", list[1])
	}

	if err := m.Delete(ctx, appt("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	reopened, err := NewICSMirror(path, time.UTC)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(reopened.events) != 1 {
		t.Fatalf("expected one event after delete, got %d", len(reopened.events))
	}
}

type failingMirror struct{}

func (failingMirror) Name() string { return "failing" }

func (failingMirror) Upsert(context.Context, model.Appointment) (string, error) {
	return "", errors.New("boom")
}

func (failingMirror) Delete(context.Context, model.Appointment) error { return errors.New("boom") }

type refMirror struct{}

func (refMirror) Name() string { return "ref" }

func (refMirror) Upsert(_ context.Context, a model.Appointment) (string, error) {
	return "g-" + a.ID, nil
}

func (refMirror) Delete(context.Context, model.Appointment) error { return nil }

func TestSyncerLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewSyncer(failingMirror{}, zap.New(core), nil)
	s.Upsert(appt("a"))
	s.Delete(appt("a"))
	s.Wait()
	if logs.Len() != 2 {
		t.Fatalf("expected two warnings, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.ContextMap()["mirror"] != "failing" || entry.ContextMap()["error"] == "" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
}

func TestSyncerReportsNewReference(t *testing.T) {
	var mu sync.Mutex
	refs := map[string]string{}
	s := NewSyncer(refMirror{}, nil, func(id, ref string) {
		mu.Lock()
		defer mu.Unlock()
		refs[id] = ref
	})
	s.Upsert(appt("a"))
	known := appt("b")
	known.GoogleEventID = "g-b"
	s.Upsert(known)
	s.Wait()
	if refs["a"] != "g-a" {
		t.Fatalf("expected reference for a, got %v", refs)
	}
	if _, ok := refs["b"]; ok {
		t.Fatal("unchanged reference must not be reported")
	}
}

// gatedMirror records every call and holds the first one until released.
type gatedMirror struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{}
	once    sync.Once
}

func (m *gatedMirror) Name() string { return "gated" }

func (m *gatedMirror) record(call string) {
	m.once.Do(func() { <-m.release })
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *gatedMirror) Upsert(_ context.Context, a model.Appointment) (string, error) {
	if a.GoogleEventID == "" {
		m.record("insert " + a.ID)
		return "g-" + a.ID, nil
	}
	m.record("update " + a.GoogleEventID)
	return a.GoogleEventID, nil
}

func (m *gatedMirror) Delete(_ context.Context, a model.Appointment) error {
	m.record("delete " + a.GoogleEventID)
	return nil
}

func TestSyncerOrdersCallsPerAppointment(t *testing.T) {
	m := &gatedMirror{release: make(chan struct{})}
	var reported []string
	s := NewSyncer(m, nil, func(id, ref string) {
		reported = append(reported, id+"="+ref)
	})
	s.Upsert(appt("a"))
	s.Upsert(appt("a"))
	s.Delete(appt("a"))
	close(m.release)
	s.Wait()

	want := []string{"insert a", "update g-a", "delete g-a"}
	if len(m.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, m.calls)
	}
	for i := range want {
		if m.calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, m.calls)
		}
	}
	if len(reported) != 1 || reported[0] != "a=g-a" {
		t.Fatalf("expected one reference report, got %v", reported)
	}
}

type googleCall struct {
	Method string
	Path   string
	Event  calendar.Event
}

func newGoogleServer(t *testing.T) (*GoogleMirror, *[]googleCall) {
	t.Helper()
	var mu sync.Mutex
	calls := []googleCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := googleCall{Method: r.Method, Path: r.URL.Path}
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			if err := json.NewDecoder(r.Body).Decode(&call.Event); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"g-1"}`))
	}))
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("calendar service: %v", err)
	}
	return NewGoogleMirrorWithService(svc, "", time.Local), &calls
}

func TestGoogleMirrorInsertUpdateDelete(t *testing.T) {
	m, calls := newGoogleServer(t)
	ctx := context.Background()
	a := appt("a")
	a.Invitees = []model.Invitee{{Name: "Ann", Email: "ann@example.com"}, {Name: "No mail"}}

	ref, err := m.Upsert(ctx, a)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ref != "g-1" {
		t.Fatalf("expected ref g-1, got %q", ref)
	}
	a.GoogleEventID = ref
	if _, err := m.Upsert(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := m.Delete(ctx, a); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, appt("never-mirrored")); err != nil {
		t.Fatalf("delete without ref: %v", err)
	}

	got := *calls
	if len(got) != 3 {
		t.Fatalf("expected three requests, got %+v", got)
	}
	if got[0].Method != http.MethodPost || !strings.HasSuffix(got[0].Path, "/calendars/primary/events") {
		t.Fatalf("unexpected insert request: %+v", got[0])
	}
	if got[1].Method != http.MethodPut || !strings.HasSuffix(got[1].Path, "/calendars/primary/events/g-1") {
		t.Fatalf("unexpected update request: %+v", got[1])
	}
	if got[2].Method != http.MethodDelete || !strings.HasSuffix(got[2].Path, "/calendars/primary/events/g-1") {
		t.Fatalf("unexpected delete request: %+v", got[2])
	}

	ev := got[0].Event
	if ev.Summary != "Dentist a" || ev.Location != "Room 4" {
		t.Fatalf("unexpected event body: %+v", ev)
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	if local := start.In(time.Local); local.Hour() != 10 || local.Minute() != 0 {
		t.Fatalf("expected 10:00 local start, got %s", ev.Start.DateTime)
	}
	if ev.Start.TimeZone != "" || ev.End.TimeZone != "" {
		t.Fatalf("time.Local must not be sent as a zone name, got %q", ev.Start.TimeZone)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0].Email != "ann@example.com" {
		t.Fatalf("unexpected attendees: %+v", ev.Attendees)
	}
}

func TestGoogleMirrorAllDayUsesDates(t *testing.T) {
	m := NewGoogleMirrorWithService(nil, "", time.UTC)
	a := appt("a")
	a.AllDay = true
	ev := m.event(a)
	if ev.Start.Date != "2024-01-02" || ev.End.Date != "2024-01-03" || ev.Start.DateTime != "" {
		t.Fatalf("unexpected all-day event: %+v %+v", ev.Start, ev.End)
	}
}

func TestZoneName(t *testing.T) {
	if got := zoneName(time.Local); got != "" {
		t.Fatalf("expected empty zone for time.Local, got %q", got)
	}
	if got := zoneName(time.UTC); got != "UTC" {
		t.Fatalf("expected UTC, got %q", got)
	}
	if got := zoneName(time.FixedZone("X+3", 3*3600)); got != "" {
		t.Fatalf("expected empty zone for a fixed zone, got %q", got)
	}
}
