package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
	"github.com/yigitselcuk/apptcal/internal/visibility"
)

var ErrInvalidGranularity = errors.New("compose: invalid granularity")

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

func (g Granularity) IsValid() bool {
	switch g {
	case Day, Week, Month, Year:
		return true
	default:
		return false
	}
}

func ParseGranularity(raw string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(raw)))
	if !g.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, raw)
	}
	return g, nil
}

// Frame is what the calendar is showing: a granularity anchored on a date.
type Frame struct {
	Granularity Granularity
	Anchor      timerange.Date
}

func (f Frame) Range() timerange.DateRange {
	switch f.Granularity {
	case Day:
		return timerange.DayRange(f.Anchor)
	case Month:
		return timerange.MonthRange(f.Anchor.Year, f.Anchor.Month)
	case Year:
		return timerange.YearRange(f.Anchor.Year)
	default:
		return timerange.WeekOf(f.Anchor).Range()
	}
}

// Step moves the frame n units of its own granularity.
func (f Frame) Step(n int) Frame {
	switch f.Granularity {
	case Day:
		f.Anchor = f.Anchor.AddDays(n)
	case Month:
		f.Anchor = f.Anchor.FirstOfMonth().AddMonths(n)
	case Year:
		f.Anchor = timerange.NewDate(f.Anchor.Year+n, time.January, 1)
	default:
		f.Anchor = timerange.StartOfWeek(f.Anchor).AddDays(7 * n)
	}
	return f
}

func (f Frame) Title() string {
	r := f.Range()
	switch f.Granularity {
	case Day:
		return fmt.Sprintf("%s %s", f.Anchor.Weekday(), f.Anchor)
	case Month:
		return fmt.Sprintf("%s %d", f.Anchor.Month, f.Anchor.Year)
	case Year:
		return fmt.Sprintf("%d", f.Anchor.Year)
	default:
		return fmt.Sprintf("Week of %s", r)
	}
}

type Layout struct {
	HourHeight  float64
	YearListCap int
}

func DefaultLayout() Layout {
	return Layout{HourHeight: 60, YearListCap: 5}
}

// Entry is a placed appointment. Top and Height are in layout units from
// midnight; all-day entries sit in their own lane and carry zero for both.
type Entry struct {
	Appointment model.Appointment
	Top         float64
	Height      float64
}

type Column struct {
	Date    timerange.Date
	Entries []Entry
}

type MonthSummary struct {
	Month time.Month
	Count int
	Items []model.Appointment
	More  int
}

// CalendarView is the composed, render-ready calendar. Columns holds one
// entry per day for day, week and month frames; Months is set for year
// frames.
type CalendarView struct {
	Frame   Frame
	Range   timerange.DateRange
	Columns []Column
	Months  []MonthSummary
	Total   int
}

// Compose derives the view for frame from a store snapshot. It keeps only
// active appointments the viewer may see and is deterministic for equal
// inputs.
func Compose(snapshot []model.Appointment, frame Frame, viewer model.Viewer, policy visibility.Policy, layout Layout) CalendarView {
	if !frame.Granularity.IsValid() {
		frame.Granularity = Week
	}
	if layout.HourHeight <= 0 {
		layout.HourHeight = DefaultLayout().HourHeight
	}
	r := frame.Range()
	view := CalendarView{Frame: frame, Range: r}

	var list []model.Appointment
	for _, a := range snapshot {
		if !a.IsActive() || !r.Contains(a.Date) || !visibility.IsVisible(a, viewer, policy) {
			continue
		}
		list = append(list, a.Clone())
	}
	sortEntries(list)
	view.Total = len(list)

	if frame.Granularity == Year {
		view.Months = summarize(list, frame.Anchor.Year, layout.YearListCap)
		return view
	}

	byDate := make(map[timerange.Date][]model.Appointment)
	for _, a := range list {
		byDate[a.Date] = append(byDate[a.Date], a)
	}
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		col := Column{Date: d}
		for _, a := range byDate[d] {
			col.Entries = append(col.Entries, place(a, layout))
		}
		view.Columns = append(view.Columns, col)
	}
	return view
}

func place(a model.Appointment, layout Layout) Entry {
	e := Entry{Appointment: a}
	if a.AllDay {
		return e
	}
	e.Top = float64(a.Start) / 60 * layout.HourHeight
	e.Height = timerange.RenderHours(a.Start, a.End) * layout.HourHeight
	return e
}

func summarize(list []model.Appointment, year int, limit int) []MonthSummary {
	months := make([]MonthSummary, 12)
	for i := range months {
		months[i].Month = time.Month(i + 1)
	}
	for _, a := range list {
		if a.Date.Year != year {
			continue
		}
		m := &months[a.Date.Month-1]
		m.Count++
		if limit <= 0 || len(m.Items) < limit {
			m.Items = append(m.Items, a)
		} else {
			m.More++
		}
	}
	return months
}

// sortEntries orders by date, all-day first, start time, then id.
func sortEntries(list []model.Appointment) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if !a.AllDay && a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
}
