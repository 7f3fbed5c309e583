package store

import (
	"errors"
	"sort"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

const DefaultBufferDays = 7

var ErrUnknownPartial = errors.New("store: partial update for an appointment not held")

type Outcome int

const (
	Ignored Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "ignored"
	}
}

// Store holds the appointments of the open calendar window plus a buffer on
// each side. It keeps at most one copy per id and hands out deep copies
// only. It is owned by a single goroutine and takes no locks.
type Store struct {
	items  map[string]model.Appointment
	window timerange.DateRange
	buffer int
	rev    uint64
}

func New(bufferDays int) *Store {
	if bufferDays < 0 {
		bufferDays = DefaultBufferDays
	}
	return &Store{items: make(map[string]model.Appointment), buffer: bufferDays}
}

// Upsert inserts a or merges it into the held copy. A copy whose marker is
// older than the held one is rejected with *model.StaleEventError; an equal
// marker is applied so echoes and refetches converge. Full records dated
// outside the buffered window are ignored.
func (s *Store) Upsert(a model.Appointment) (Outcome, error) {
	held, ok := s.items[a.ID]
	if !ok {
		if a.IsPartial() {
			return Ignored, ErrUnknownPartial
		}
		if !s.inBounds(a.Date) {
			return Ignored, nil
		}
		a.Fields = 0
		s.items[a.ID] = a.Clone()
		s.rev++
		return Inserted, nil
	}
	if a.Marker().Compare(held.Marker()) < 0 {
		return Ignored, &model.StaleEventError{ID: a.ID, Held: held.Marker(), Incoming: a.Marker()}
	}
	merged := model.Merge(held, a.Clone())
	if !s.inBounds(merged.Date) {
		delete(s.items, a.ID)
		s.rev++
		return Ignored, nil
	}
	s.items[a.ID] = merged
	s.rev++
	return Updated, nil
}

// Load applies a fetch result. Stale rows are skipped; the count of applied
// rows is returned.
func (s *Store) Load(list []model.Appointment) int {
	n := 0
	for _, a := range list {
		if out, err := s.Upsert(a); err == nil && out != Ignored {
			n++
		}
	}
	return n
}

// Remove deletes id and reports whether it was held. Removing an unknown id
// is a no-op.
func (s *Store) Remove(id string) bool {
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	s.rev++
	return true
}

func (s *Store) Get(id string) (model.Appointment, bool) {
	a, ok := s.items[id]
	if !ok {
		return model.Appointment{}, false
	}
	return a.Clone(), true
}

// All returns a snapshot ordered by date, start, and id. Mutating it does
// not affect the store.
func (s *Store) All() []model.Appointment {
	out := make([]model.Appointment, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a.Clone())
	}
	sortAppointments(out)
	return out
}

func (s *Store) Active() []model.Appointment {
	all := s.All()
	out := all[:0]
	for _, a := range all {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

// SetWindow moves the visible window and evicts everything outside the
// window expanded by the buffer. It returns the number of evicted entries.
func (s *Store) SetWindow(r timerange.DateRange) int {
	s.window = r
	bounds := s.Bounds()
	evicted := 0
	for id, a := range s.items {
		if !bounds.Contains(a.Date) {
			delete(s.items, id)
			evicted++
		}
	}
	s.rev++
	return evicted
}

func (s *Store) Window() timerange.DateRange { return s.window }

// Bounds is the window expanded by the buffer on both sides.
func (s *Store) Bounds() timerange.DateRange { return s.window.Expand(s.buffer) }

// Visible reports whether d falls inside the window proper.
func (s *Store) Visible(d timerange.Date) bool {
	if s.window.Start.IsZero() {
		return true
	}
	return s.window.Contains(d)
}

func (s *Store) Len() int { return len(s.items) }

// Rev increases on every mutation.
func (s *Store) Rev() uint64 { return s.rev }

func (s *Store) inBounds(d timerange.Date) bool {
	if s.window.Start.IsZero() {
		return true
	}
	return s.Bounds().Contains(d)
}

func sortAppointments(list []model.Appointment) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
}
