package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yigitselcuk/apptcal/internal/timerange"
)

var (
	ErrInvalidStatus       = errors.New("model: invalid appointment status")
	ErrInvalidReminderUnit = errors.New("model: invalid reminder unit")
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusPostponed Status = "postponed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusPostponed:
		return true
	default:
		return false
	}
}

// IsActive is false for cancelled and completed appointments, which stay in
// the store for history but never show in active views or conflict checks.
func (s Status) IsActive() bool {
	return s != StatusCancelled && s != StatusCompleted
}

// Visibility is either open to everyone (All) or restricted to UserIDs.
// UserIDs may hold user ids or, for older records, user emails.
type Visibility struct {
	All     bool
	UserIDs []string
}

func VisibleToAll() Visibility { return Visibility{All: true} }

// VisibleTo builds a restricted visibility with a sorted, de-duplicated set.
func VisibleTo(ids ...string) Visibility {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return Visibility{UserIDs: out}
}

func (v Visibility) Contains(id string) bool {
	if id == "" {
		return false
	}
	for _, u := range v.UserIDs {
		if strings.EqualFold(u, id) {
			return true
		}
	}
	return false
}

func (v Visibility) clone() Visibility {
	if v.All {
		return Visibility{All: true}
	}
	return Visibility{UserIDs: append([]string(nil), v.UserIDs...)}
}

type Invitee struct {
	Name  string
	Email string
	Phone string
}

type ReminderUnit string

const (
	ReminderMinutes ReminderUnit = "minutes"
	ReminderHours   ReminderUnit = "hours"
	ReminderDays    ReminderUnit = "days"
	ReminderWeeks   ReminderUnit = "weeks"
)

func (u ReminderUnit) IsValid() bool {
	switch u {
	case ReminderMinutes, ReminderHours, ReminderDays, ReminderWeeks:
		return true
	default:
		return false
	}
}

func (u ReminderUnit) Duration(value int) time.Duration {
	n := time.Duration(value)
	switch u {
	case ReminderHours:
		return n * time.Hour
	case ReminderDays:
		return n * 24 * time.Hour
	case ReminderWeeks:
		return n * 7 * 24 * time.Hour
	default:
		return n * time.Minute
	}
}

type ReminderStatus string

const (
	ReminderScheduled ReminderStatus = "scheduled"
	ReminderSending   ReminderStatus = "sending"
	ReminderSent      ReminderStatus = "sent"
	ReminderFailed    ReminderStatus = "failed"
	ReminderCancelled ReminderStatus = "cancelled"
)

func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderScheduled, ReminderSending, ReminderSent, ReminderFailed, ReminderCancelled:
		return true
	default:
		return false
	}
}

type Reminder struct {
	Enabled     bool
	Value       int
	Unit        ReminderUnit
	Status      ReminderStatus
	ScheduledAt *time.Time
	SentAt      *time.Time
	LastError   string
}

func (r Reminder) Offset() time.Duration {
	return r.Unit.Duration(r.Value)
}

func (r Reminder) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Value <= 0 {
		return &ValidationError{Field: "reminder.value", Reason: "must be positive"}
	}
	if !r.Unit.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReminderUnit, r.Unit)
	}
	if r.Status != "" && !r.Status.IsValid() {
		return &ValidationError{Field: "reminder.status", Reason: fmt.Sprintf("unknown status %q", r.Status)}
	}
	return nil
}

func (r *Reminder) clone() *Reminder {
	if r == nil {
		return nil
	}
	out := *r
	out.ScheduledAt = cloneTime(r.ScheduledAt)
	out.SentAt = cloneTime(r.SentAt)
	return &out
}

// Marker orders copies of the same appointment. Version wins when both
// copies carry one; UpdatedAt breaks ties and covers records without a
// version.
type Marker struct {
	Version   int64
	UpdatedAt time.Time
}

func (m Marker) Compare(o Marker) int {
	if m.Version > 0 && o.Version > 0 && m.Version != o.Version {
		if m.Version < o.Version {
			return -1
		}
		return 1
	}
	if m.UpdatedAt.IsZero() || o.UpdatedAt.IsZero() {
		return 0
	}
	return m.UpdatedAt.Compare(o.UpdatedAt)
}

func (m Marker) String() string {
	return fmt.Sprintf("v%d@%s", m.Version, m.UpdatedAt.UTC().Format(time.RFC3339Nano))
}

type Appointment struct {
	ID            string
	OwnerID       string
	Date          timerange.Date
	Start         timerange.Clock
	End           timerange.Clock
	AllDay        bool
	Title         string
	Description   string
	Location      string
	Color         string
	Status        Status
	Visibility    Visibility
	Invitees      []Invitee
	Reminder      *Reminder
	GoogleEventID string
	Version       int64
	UpdatedAt     time.Time

	// Fields lists the fields this copy carries. Zero means a full record;
	// anything else is a partial update merged field by field.
	Fields FieldMask
}

func (a Appointment) Range() timerange.TimeRange {
	return timerange.TimeRange{Date: a.Date, Start: a.Start, End: a.End, AllDay: a.AllDay}
}

func (a Appointment) Marker() Marker {
	return Marker{Version: a.Version, UpdatedAt: a.UpdatedAt}
}

func (a Appointment) IsActive() bool {
	return a.Status.IsActive()
}

func (a Appointment) IsPartial() bool {
	return a.Fields != 0 && a.Fields != FieldAll
}

// Clone returns a deep copy that shares no slices or pointers with a.
func (a Appointment) Clone() Appointment {
	out := a
	out.Visibility = a.Visibility.clone()
	out.Invitees = append([]Invitee(nil), a.Invitees...)
	out.Reminder = a.Reminder.clone()
	return out
}

func (a Appointment) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if strings.TrimSpace(a.OwnerID) == "" {
		return &ValidationError{Field: "owner_id", Reason: "is required"}
	}
	if a.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if !a.AllDay && a.End <= a.Start {
		return &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, a.Status)
	}
	if a.Visibility.All && len(a.Visibility.UserIDs) > 0 {
		return &ValidationError{Field: "visibility", Reason: "user ids must be empty when visible to all"}
	}
	if a.Reminder != nil {
		if err := a.Reminder.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
