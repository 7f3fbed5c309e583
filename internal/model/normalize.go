package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yigitselcuk/apptcal/internal/timerange"
)

// Record is an appointment as it arrives on the wire: decoded JSON whose
// field spellings vary between the fetch endpoint, the push stream, and
// older rows. Normalize is the only place that knows those spellings.
type Record map[string]any

var (
	idKeys          = []string{"id", "_id", "appointment_id", "appointmentId"}
	ownerKeys       = []string{"owner_id", "ownerId", "user_id", "userId", "created_by", "createdBy"}
	dateKeys        = []string{"date", "appointment_date", "appointmentDate"}
	startKeys       = []string{"start_time", "startTime"}
	endKeys         = []string{"end_time", "endTime"}
	allDayKeys      = []string{"is_all_day", "isAllDay", "all_day", "allDay"}
	titleKeys       = []string{"title", "subject"}
	descriptionKeys = []string{"description", "notes"}
	locationKeys    = []string{"location", "place"}
	colorKeys       = []string{"color", "colour"}
	statusKeys      = []string{"status"}
	visibilityKeys  = []string{"visibility"}
	visibleAllKeys  = []string{"visible_to_all", "visibleToAll", "is_public"}
	visibleIDKeys   = []string{"visible_to_users", "visibleToUsers", "visible_users", "visibleTo"}
	inviteeKeys     = []string{"invitees", "attendees", "guests"}
	reminderKeys    = []string{"reminder"}
	googleKeys      = []string{"google_event_id", "googleEventId"}
	versionKeys     = []string{"version", "rev"}
	updatedKeys     = []string{"updated_at", "updatedAt", "modified_at"}
	inviteeNameKeys = []string{"name", "full_name", "fullName", "contact_name", "display_name", "displayName"}
)

// Normalize converts a wire record into the strict Appointment shape. With
// partial set, only the fields present in r are marked in Fields and
// required-field checks are limited to the id.
func Normalize(r Record, partial bool) (Appointment, error) {
	var a Appointment
	var mask FieldMask

	a.ID = r.str(idKeys...)
	if a.ID == "" {
		return Appointment{}, &ValidationError{Field: "id", Reason: "is required"}
	}

	if r.has(ownerKeys...) {
		a.OwnerID = r.str(ownerKeys...)
		mask |= FieldOwner
	}
	if r.has(dateKeys...) {
		d, err := timerange.ParseDate(r.str(dateKeys...))
		if err != nil {
			return Appointment{}, &ValidationError{Field: "date", Reason: err.Error()}
		}
		a.Date = d
		mask |= FieldDate
	}
	if r.has(startKeys...) || r.has(endKeys...) || r.has(allDayKeys...) {
		a.AllDay = r.boolean(allDayKeys...)
		if !a.AllDay {
			var err error
			if a.Start, err = timerange.ParseClock(r.str(startKeys...)); err != nil {
				return Appointment{}, &ValidationError{Field: "start_time", Reason: err.Error()}
			}
			if a.End, err = timerange.ParseClock(r.str(endKeys...)); err != nil {
				return Appointment{}, &ValidationError{Field: "end_time", Reason: err.Error()}
			}
		}
		mask |= FieldTimes
	}
	if r.has(titleKeys...) {
		a.Title = r.str(titleKeys...)
		mask |= FieldTitle
	}
	if r.has(descriptionKeys...) {
		a.Description = r.str(descriptionKeys...)
		mask |= FieldDescription
	}
	if r.has(locationKeys...) {
		a.Location = r.str(locationKeys...)
		mask |= FieldLocation
	}
	if r.has(colorKeys...) {
		a.Color = r.str(colorKeys...)
		mask |= FieldColor
	}
	if r.has(statusKeys...) {
		a.Status = Status(strings.ToLower(r.str(statusKeys...)))
		if !a.Status.IsValid() {
			return Appointment{}, fmt.Errorf("%w: %q", ErrInvalidStatus, a.Status)
		}
		mask |= FieldStatus
	}
	if r.has(visibilityKeys...) || r.has(visibleAllKeys...) || r.has(visibleIDKeys...) {
		a.Visibility = r.visibility()
		mask |= FieldVisibility
	}
	if r.has(inviteeKeys...) {
		a.Invitees = r.invitees()
		mask |= FieldInvitees
	}
	if r.has(reminderKeys...) || r.has("reminder_enabled") {
		rem, err := r.reminder()
		if err != nil {
			return Appointment{}, err
		}
		a.Reminder = rem
		mask |= FieldReminder
	}
	if r.has(googleKeys...) {
		a.GoogleEventID = r.str(googleKeys...)
		mask |= FieldGoogleEventID
	}
	a.Version = r.integer(versionKeys...)
	a.UpdatedAt = r.timestamp(updatedKeys...)

	if partial {
		if mask != FieldAll {
			a.Fields = mask
		}
		return a, nil
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if err := a.Validate(); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

// Encode renders a in the canonical wire spelling. Normalize(Encode(a))
// yields a again.
func Encode(a Appointment) Record {
	r := Record{
		"id":              a.ID,
		"owner_id":        a.OwnerID,
		"date":            a.Date.String(),
		"is_all_day":      a.AllDay,
		"title":           a.Title,
		"description":     a.Description,
		"location":        a.Location,
		"color":           a.Color,
		"status":          string(a.Status),
		"google_event_id": a.GoogleEventID,
		"version":         a.Version,
	}
	if !a.AllDay {
		r["start_time"] = a.Start.String()
		r["end_time"] = a.End.String()
	}
	if !a.UpdatedAt.IsZero() {
		r["updated_at"] = a.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	ids := make([]any, 0, len(a.Visibility.UserIDs))
	for _, id := range a.Visibility.UserIDs {
		ids = append(ids, id)
	}
	r["visibility"] = map[string]any{"all": a.Visibility.All, "user_ids": ids}
	inv := make([]any, 0, len(a.Invitees))
	for _, i := range a.Invitees {
		inv = append(inv, map[string]any{"name": i.Name, "email": i.Email, "phone": i.Phone})
	}
	r["invitees"] = inv
	if a.Reminder != nil {
		rem := map[string]any{
			"enabled": a.Reminder.Enabled,
			"value":   a.Reminder.Value,
			"unit":    string(a.Reminder.Unit),
			"status":  string(a.Reminder.Status),
		}
		if a.Reminder.ScheduledAt != nil {
			rem["scheduled_at"] = a.Reminder.ScheduledAt.UTC().Format(time.RFC3339Nano)
		}
		if a.Reminder.SentAt != nil {
			rem["sent_at"] = a.Reminder.SentAt.UTC().Format(time.RFC3339Nano)
		}
		if a.Reminder.LastError != "" {
			rem["last_error"] = a.Reminder.LastError
		}
		r["reminder"] = rem
	}
	if a.IsPartial() {
		for _, fn := range fieldNames {
			if a.Fields&fn.f == 0 {
				r.dropField(fn.f)
			}
		}
	}
	return r
}

func (r Record) dropField(f FieldMask) {
	switch f {
	case FieldOwner:
		delete(r, "owner_id")
	case FieldDate:
		delete(r, "date")
	case FieldTimes:
		delete(r, "start_time")
		delete(r, "end_time")
		delete(r, "is_all_day")
	case FieldTitle:
		delete(r, "title")
	case FieldDescription:
		delete(r, "description")
	case FieldLocation:
		delete(r, "location")
	case FieldColor:
		delete(r, "color")
	case FieldStatus:
		delete(r, "status")
	case FieldVisibility:
		delete(r, "visibility")
	case FieldInvitees:
		delete(r, "invitees")
	case FieldReminder:
		delete(r, "reminder")
	case FieldGoogleEventID:
		delete(r, "google_event_id")
	}
}

func (r Record) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r Record) has(keys ...string) bool {
	_, ok := r.lookup(keys...)
	return ok
}

func (r Record) str(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	return scalarString(v)
}

func (r Record) boolean(keys ...string) bool {
	v, ok := r.lookup(keys...)
	if !ok {
		return false
	}
	return truthy(v)
}

func (r Record) integer(keys ...string) int64 {
	v, ok := r.lookup(keys...)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i
	}
	return 0
}

func (r Record) timestamp(keys ...string) time.Time {
	s := r.str(keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// visibility never fails: a payload it cannot read yields an empty
// restricted set, which only the owner and privileged viewers can see.
func (r Record) visibility() Visibility {
	if raw, ok := r.lookup(visibilityKeys...); ok {
		switch v := raw.(type) {
		case map[string]any:
			sub := Record(v)
			if sub.boolean("all", "visible_to_all") {
				return VisibleToAll()
			}
			ids, _ := sub.lookup("user_ids", "userIds", "users")
			return VisibleTo(idList(ids)...)
		case string:
			if strings.EqualFold(v, "all") || strings.EqualFold(v, "public") {
				return VisibleToAll()
			}
			return VisibleTo(strings.Split(v, ",")...)
		case []any:
			return VisibleTo(idList(v)...)
		case bool:
			if v {
				return VisibleToAll()
			}
		}
		return Visibility{}
	}
	if r.boolean(visibleAllKeys...) {
		return VisibleToAll()
	}
	ids, _ := r.lookup(visibleIDKeys...)
	if s, ok := ids.(string); ok {
		var decoded []any
		if json.Unmarshal([]byte(s), &decoded) == nil {
			return VisibleTo(idList(decoded)...)
		}
		return VisibleTo(strings.Split(s, ",")...)
	}
	return VisibleTo(idList(ids)...)
}

func (r Record) invitees() []Invitee {
	raw, _ := r.lookup(inviteeKeys...)
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Invitee, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case map[string]any:
			sub := Record(v)
			inv := Invitee{
				Name:  sub.str(inviteeNameKeys...),
				Email: sub.str("email", "mail"),
				Phone: sub.str("phone", "phone_number", "phoneNumber"),
			}
			if inv.Name == "" {
				inv.Name = strings.TrimSpace(sub.str("first_name") + " " + sub.str("last_name"))
			}
			if inv.Name == "" {
				inv.Name = inv.Email
			}
			out = append(out, inv)
		case string:
			out = append(out, Invitee{Name: v})
		}
	}
	return out
}

func (r Record) reminder() (*Reminder, error) {
	src := r
	if raw, ok := r.lookup(reminderKeys...); ok {
		sub, ok := raw.(map[string]any)
		if !ok {
			return nil, nil
		}
		src = Record(sub)
	} else {
		src = Record{
			"enabled":      r["reminder_enabled"],
			"value":        r["reminder_value"],
			"unit":         r["reminder_unit"],
			"status":       r["reminder_status"],
			"scheduled_at": r["reminder_scheduled_at"],
			"sent_at":      r["reminder_sent_at"],
		}
	}
	rem := &Reminder{
		Enabled:   src.boolean("enabled"),
		Value:     int(src.integer("value")),
		Unit:      ReminderUnit(strings.ToLower(src.str("unit"))),
		Status:    ReminderStatus(strings.ToLower(src.str("status"))),
		LastError: src.str("last_error"),
	}
	if rem.Unit == "" {
		rem.Unit = ReminderMinutes
	}
	if t := src.timestamp("scheduled_at", "scheduledAt"); !t.IsZero() {
		rem.ScheduledAt = &t
	}
	if t := src.timestamp("sent_at", "sentAt"); !t.IsZero() {
		rem.SentAt = &t
	}
	if err := rem.Validate(); err != nil {
		return nil, err
	}
	return rem, nil
}

func idList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch x := item.(type) {
		case map[string]any:
			sub := Record(x)
			if id := sub.str("id", "user_id", "userId"); id != "" {
				out = append(out, id)
			} else if email := sub.str("email"); email != "" {
				out = append(out, email)
			}
		default:
			if s := scalarString(x); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}
