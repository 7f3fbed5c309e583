package timerange

import (
	"fmt"
	"strings"
)

// MinRenderHours is the smallest height a timed entry is drawn with.
const MinRenderHours = 0.5

// Clock is a local time of day in minutes since midnight.
type Clock int

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock accepts "HH:MM" and "HH:MM:SS" (seconds are dropped).
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ParseError{Kind: "time", Input: raw, Reason: "empty"}
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &ParseError{Kind: "time", Input: raw, Reason: "want HH:MM"}
	}
	h, ok := atoi2(parts[0])
	if !ok || h > 23 {
		return 0, &ParseError{Kind: "time", Input: raw, Reason: "hour out of range"}
	}
	if len(parts[1]) != 2 {
		return 0, &ParseError{Kind: "time", Input: raw, Reason: "want two-digit minutes"}
	}
	m, ok := atoi2(parts[1])
	if !ok || m > 59 {
		return 0, &ParseError{Kind: "time", Input: raw, Reason: "minute out of range"}
	}
	if len(parts) == 3 {
		if sec, ok := atoi2(parts[2]); !ok || sec > 59 {
			return 0, &ParseError{Kind: "time", Input: raw, Reason: "second out of range"}
		}
	}
	return NewClock(h, m), nil
}

func MustParseClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DurationHours is the data answer: (end-start)/60, zero or negative when the
// range is degenerate.
func DurationHours(start, end Clock) float64 {
	return float64(end-start) / 60
}

// RenderHours is DurationHours clamped to MinRenderHours for layout.
func RenderHours(start, end Clock) float64 {
	h := DurationHours(start, end)
	if h < MinRenderHours {
		return MinRenderHours
	}
	return h
}

type ParseError struct {
	Kind   string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timerange: parse %s %q: %s", e.Kind, e.Input, e.Reason)
}
