package model

import "strings"

type FieldMask uint32

const (
	FieldOwner FieldMask = 1 << iota
	FieldDate
	FieldTimes
	FieldTitle
	FieldDescription
	FieldLocation
	FieldColor
	FieldStatus
	FieldVisibility
	FieldInvitees
	FieldReminder
	FieldGoogleEventID

	FieldAll = FieldOwner | FieldDate | FieldTimes | FieldTitle | FieldDescription |
		FieldLocation | FieldColor | FieldStatus | FieldVisibility | FieldInvitees |
		FieldReminder | FieldGoogleEventID
)

var fieldNames = []struct {
	f    FieldMask
	name string
}{
	{FieldOwner, "owner"},
	{FieldDate, "date"},
	{FieldTimes, "times"},
	{FieldTitle, "title"},
	{FieldDescription, "description"},
	{FieldLocation, "location"},
	{FieldColor, "color"},
	{FieldStatus, "status"},
	{FieldVisibility, "visibility"},
	{FieldInvitees, "invitees"},
	{FieldReminder, "reminder"},
	{FieldGoogleEventID, "google_event_id"},
}

func (m FieldMask) Has(f FieldMask) bool {
	if m == 0 {
		return true
	}
	return m&f == f
}

func (m FieldMask) String() string {
	if m == 0 || m == FieldAll {
		return "all"
	}
	parts := make([]string, 0, len(fieldNames))
	for _, fn := range fieldNames {
		if m&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, ",")
}

// Merge applies the fields carried by in onto held and returns the result.
// Identity and the version marker always come from in.
func Merge(held, in Appointment) Appointment {
	if !in.IsPartial() {
		out := in.Clone()
		out.Fields = 0
		return out
	}
	out := held.Clone()
	src := in.Clone()
	if in.Fields.Has(FieldOwner) {
		out.OwnerID = src.OwnerID
	}
	if in.Fields.Has(FieldDate) {
		out.Date = src.Date
	}
	if in.Fields.Has(FieldTimes) {
		out.Start, out.End, out.AllDay = src.Start, src.End, src.AllDay
	}
	if in.Fields.Has(FieldTitle) {
		out.Title = src.Title
	}
	if in.Fields.Has(FieldDescription) {
		out.Description = src.Description
	}
	if in.Fields.Has(FieldLocation) {
		out.Location = src.Location
	}
	if in.Fields.Has(FieldColor) {
		out.Color = src.Color
	}
	if in.Fields.Has(FieldStatus) {
		out.Status = src.Status
	}
	if in.Fields.Has(FieldVisibility) {
		out.Visibility = src.Visibility
	}
	if in.Fields.Has(FieldInvitees) {
		out.Invitees = src.Invitees
	}
	if in.Fields.Has(FieldReminder) {
		out.Reminder = src.Reminder
	}
	if in.Fields.Has(FieldGoogleEventID) {
		out.GoogleEventID = src.GoogleEventID
	}
	if in.Version > 0 {
		out.Version = in.Version
	}
	if !in.UpdatedAt.IsZero() {
		out.UpdatedAt = in.UpdatedAt
	}
	out.Fields = 0
	return out
}
