package model

import (
	"encoding/json"
	"testing"
)

func TestNormalizeAlternativeSpellings(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{
		"_id": 42,
		"createdBy": "7",
		"appointment_date": "2024-01-05T00:00:00.000Z",
		"startTime": "09:30:00",
		"endTime": "10:15",
		"subject": "Checkup",
		"status": "Confirmed",
		"visible_to_all": false,
		"visibleToUsers": "[3, \"ali@example.com\"]",
		"attendees": [{"full_name": "Mehmet Y"}, {"email": "x@example.com"}],
		"reminder_enabled": 1,
		"reminder_value": 2,
		"reminder_unit": "hours",
		"googleEventId": "g-1",
		"version": 6,
		"updatedAt": "2024-01-04T08:00:00Z"
	}`), &r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	a, err := Normalize(r, false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if a.ID != "42" || a.OwnerID != "7" || a.Date.String() != "2024-01-05" {
		t.Fatalf("unexpected identity fields: %+v", a)
	}
	if a.Start.String() != "09:30" || a.End.String() != "10:15" || a.Title != "Checkup" {
		t.Fatalf("unexpected slot: %+v", a)
	}
	if a.Status != StatusConfirmed || a.GoogleEventID != "g-1" || a.Version != 6 || a.UpdatedAt.IsZero() {
		t.Fatalf("unexpected status/marker: %+v", a)
	}
	if a.Visibility.All || !a.Visibility.Contains("3") || !a.Visibility.Contains("ali@example.com") {
		t.Fatalf("unexpected visibility: %+v", a.Visibility)
	}
	if len(a.Invitees) != 2 || a.Invitees[0].Name != "Mehmet Y" || a.Invitees[1].Name != "x@example.com" {
		t.Fatalf("unexpected invitees: %+v", a.Invitees)
	}
	if a.Reminder == nil || !a.Reminder.Enabled || a.Reminder.Value != 2 || a.Reminder.Unit != ReminderHours {
		t.Fatalf("unexpected reminder: %+v", a.Reminder)
	}
	if a.Fields != 0 {
		t.Fatalf("full record must have empty mask, got %s", a.Fields)
	}
}

func TestNormalizeMalformedVisibilityIsRestricted(t *testing.T) {
	r := Record{
		"id": "1", "owner_id": "7", "date": "2024-01-05",
		"start_time": "09:00", "end_time": "10:00",
		"visibility": 12.5,
	}
	a, err := Normalize(r, false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if a.Visibility.All || len(a.Visibility.UserIDs) != 0 {
		t.Fatalf("malformed visibility must be empty restricted set, got %+v", a.Visibility)
	}
}

func TestNormalizePartialMarksOnlyPresentFields(t *testing.T) {
	a, err := Normalize(Record{"id": "1", "title": "New title", "version": 9}, true)
	if err != nil {
		t.Fatalf("normalize partial: %v", err)
	}
	if a.Fields != FieldTitle || !a.IsPartial() || a.Version != 9 {
		t.Fatalf("unexpected partial: %+v mask=%s", a, a.Fields)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	cases := []Record{
		{"owner_id": "7"},
		{"id": "1", "owner_id": "7", "date": "2024-01-05", "start_time": "10:00", "end_time": "10:00"},
		{"id": "1", "owner_id": "7", "date": "2024-01-05", "start_time": "1000", "end_time": "11:00"},
		{"id": "1", "owner_id": "7", "date": "05.01.2024", "is_all_day": true},
	}
	for i, r := range cases {
		if _, err := Normalize(r, false); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestEncodeNormalizeRoundTrip(t *testing.T) {
	in := sample()
	out, err := Normalize(Encode(in), false)
	if err != nil {
		t.Fatalf("normalize encoded: %v", err)
	}
	if out.ID != in.ID || out.Range() != in.Range() || out.Version != in.Version {
		t.Fatalf("round trip changed appointment: %+v", out)
	}
	if len(out.Visibility.UserIDs) != 2 || out.Reminder.Value != 15 {
		t.Fatalf("round trip lost nested fields: %+v", out)
	}

	partial := Appointment{ID: "5", Title: "Only title", Fields: FieldTitle, Version: 4}
	got, err := Normalize(Encode(partial), true)
	if err != nil {
		t.Fatalf("normalize partial encoded: %v", err)
	}
	if got.Fields != FieldTitle || got.Title != "Only title" {
		t.Fatalf("partial round trip: %+v mask=%s", got, got.Fields)
	}
}
