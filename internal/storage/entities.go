package storage

import (
	"time"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

// Row is an appointment as stored, with the bookkeeping columns the domain
// type does not carry.
type Row struct {
	model.Appointment
	SeriesID  string
	CreatedAt time.Time
}

type AppointmentFilter struct {
	Range    timerange.DateRange
	OwnerID  string
	Status   model.Status
	SeriesID string
	Limit    int
	Offset   int
}

// OverlapQuery selects active timed appointments of one owner that overlap
// a slot, touching ends excluded.
type OverlapQuery struct {
	OwnerID   string
	Slot      timerange.TimeRange
	ExcludeID string
}
