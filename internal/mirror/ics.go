package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

const uidSuffix = "@apptcal"

// ICSMirror keeps an iCalendar file in step with the appointments it has
// seen. The whole file is rewritten on every change.
type ICSMirror struct {
	mu     sync.Mutex
	path   string
	loc    *time.Location
	events map[string]model.Appointment
}

func NewICSMirror(path string, loc *time.Location) (*ICSMirror, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("mirror: ics path is required")
	}
	if loc == nil {
		loc = time.Local
	}
	m := &ICSMirror{path: path, loc: loc, events: make(map[string]model.Appointment)}
	body, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("mirror: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return m, nil
	}
	list, err := ParseICS(body, loc)
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		m.events[a.ID] = a
	}
	return m, nil
}

func (m *ICSMirror) Name() string { return "ics" }

func (m *ICSMirror) Upsert(_ context.Context, a model.Appointment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[a.ID] = a.Clone()
	return "", m.flushLocked()
}

func (m *ICSMirror) Delete(_ context.Context, a model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[a.ID]; !ok {
		return nil
	}
	delete(m.events, a.ID)
	return m.flushLocked()
}

func (m *ICSMirror) flushLocked() error {
	ids := make([]string, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//apptcal//appointments//EN")
	now := time.Now().UTC()
	for _, id := range ids {
		a := m.events[id]
		ev := cal.AddEvent(id + uidSuffix)
		ev.SetDtStampTime(now)
		ev.SetSummary(a.Title)
		if a.Description != "" {
			ev.SetDescription(a.Description)
		}
		if a.Location != "" {
			ev.SetLocation(a.Location)
		}
		if a.AllDay {
			ev.SetAllDayStartAt(a.Date.In(m.loc))
			ev.SetAllDayEndAt(a.Date.AddDays(1).In(m.loc))
		} else {
			ev.SetStartAt(a.Date.At(a.Start, m.loc))
			ev.SetEndAt(a.Date.At(a.End, m.loc))
		}
		if a.Version > 0 {
			ev.SetProperty(ical.ComponentPropertySequence, strconv.FormatInt(a.Version, 10))
		}
		if !a.IsActive() {
			ev.SetStatus(ical.ObjectStatusCancelled)
		} else {
			ev.SetStatus(ical.ObjectStatusConfirmed)
		}
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mirror: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".apptcal-*.ics")
	if err != nil {
		return fmt.Errorf("mirror: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("mirror: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("mirror: close: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("mirror: rename: %w", err)
	}
	return nil
}

// ParseICS reads the events of an iCalendar payload back into appointments.
// Only the fields the mirror writes are recovered.
func ParseICS(body []byte, loc *time.Location) ([]model.Appointment, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mirror: parse ics: %w", err)
	}
	out := make([]model.Appointment, 0)
	for _, ve := range cal.Events() {
		uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
		if uid == nil || uid.Value == "" {
			continue
		}
		a := model.Appointment{
			ID:         strings.TrimSuffix(uid.Value, uidSuffix),
			Status:     model.StatusScheduled,
			Visibility: model.Visibility{},
		}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			a.Title = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			a.Description = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
			a.Location = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
			a.Version, _ = strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64)
		}
		if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, string(ical.ObjectStatusCancelled)) {
			a.Status = model.StatusCancelled
		}
		dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
		if dtStart == nil {
			continue
		}
		if !strings.Contains(dtStart.Value, "T") {
			d, err := time.ParseInLocation("20060102", strings.TrimSpace(dtStart.Value), loc)
			if err != nil {
				continue
			}
			a.AllDay = true
			a.Date = timerange.DateOf(d)
		} else {
			start, err := ve.GetStartAt()
			if err != nil {
				continue
			}
			end, err := ve.GetEndAt()
			if err != nil {
				continue
			}
			start, end = start.In(loc), end.In(loc)
			a.Date = timerange.DateOf(start)
			a.Start = timerange.NewClock(start.Hour(), start.Minute())
			a.End = timerange.NewClock(end.Hour(), end.Minute())
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
