package timerange

import (
	"errors"
	"time"
)

var ErrEmptyRange = errors.New("timerange: end must be after start")

// WeekWindow is a Monday-first seven day window.
type WeekWindow struct {
	Start Date
}

// WeekOf returns the window containing d.
func WeekOf(d Date) WeekWindow {
	return WeekWindow{Start: StartOfWeek(d)}
}

func (w WeekWindow) End() Date { return w.Start.AddDays(6) }

func (w WeekWindow) Days() [7]Date {
	var out [7]Date
	for i := range out {
		out[i] = w.Start.AddDays(i)
	}
	return out
}

func (w WeekWindow) Range() DateRange {
	return DateRange{Start: w.Start, End: w.End()}
}

func (w WeekWindow) Next(n int) WeekWindow {
	return WeekWindow{Start: w.Start.AddDays(7 * n)}
}

// DayIndex returns the Monday-first index (0..6) of d inside w, or -1 when d
// falls outside the window.
func DayIndex(d Date, w WeekWindow) int {
	idx := w.Start.DaysUntil(d)
	if idx < 0 || idx > 6 {
		return -1
	}
	return idx
}

// weekdayIndex maps Go's Sunday-first weekday numbering onto Monday-first.
func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// DateRange is an inclusive range of dates.
type DateRange struct {
	Start Date
	End   Date
}

func DayRange(d Date) DateRange { return DateRange{Start: d, End: d} }

func MonthRange(year int, month time.Month) DateRange {
	return DateRange{
		Start: NewDate(year, month, 1),
		End:   NewDate(year, month, DaysInMonth(year, month)),
	}
}

func YearRange(year int) DateRange {
	return DateRange{Start: NewDate(year, time.January, 1), End: NewDate(year, time.December, 31)}
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Expand widens the range by days on both sides.
func (r DateRange) Expand(days int) DateRange {
	if days <= 0 {
		return r
	}
	return DateRange{Start: r.Start.AddDays(-days), End: r.End.AddDays(days)}
}

// Covers reports whether o lies entirely inside r.
func (r DateRange) Covers(o DateRange) bool {
	return r.Contains(o.Start) && r.Contains(o.End)
}

func (r DateRange) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// TimeRange is a slot on a single date. All-day ranges ignore Start/End.
type TimeRange struct {
	Date   Date
	Start  Clock
	End    Clock
	AllDay bool
}

func (r TimeRange) Validate() error {
	if r.Date.IsZero() {
		return errors.New("timerange: date is required")
	}
	if !r.AllDay && r.End <= r.Start {
		return ErrEmptyRange
	}
	return nil
}

// Overlaps reports whether a and b share any time on the same date. Touching
// boundaries do not overlap. An all-day range overlaps everything on its date.
func Overlaps(a, b TimeRange) bool {
	if a.Date != b.Date {
		return false
	}
	if a.AllDay || b.AllDay {
		return true
	}
	return !(a.End <= b.Start || a.Start >= b.End)
}
