package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/storage"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

// Occurrences expands d.Repeat into the dates of the series, starting with
// d.Date and capped at limit entries within horizon. A rule firing twice on
// one day is rejected, since those occurrences would overlap.
func Occurrences(d model.Draft, loc *time.Location, limit int, horizon time.Duration) ([]timerange.Date, error) {
	rule, err := rrule.StrToRRule(strings.TrimPrefix(strings.TrimSpace(d.Repeat), "RRULE:"))
	if err != nil {
		return nil, &model.ValidationError{Field: "repeat", Reason: err.Error()}
	}
	start := d.Date.At(d.Start, loc)
	rule.DTStart(start)
	times := rule.Between(start, start.Add(horizon), true)
	if len(times) > limit {
		times = times[:limit]
	}
	out := make([]timerange.Date, 0, len(times))
	for _, t := range times {
		date := timerange.DateOf(t.In(loc))
		if len(out) > 0 && !out[len(out)-1].Before(date) {
			return nil, &model.ValidationError{Field: "repeat", Reason: "rule yields more than one occurrence per day"}
		}
		out = append(out, date)
	}
	if len(out) == 0 {
		return nil, &model.ValidationError{Field: "repeat", Reason: "rule yields no occurrences"}
	}
	return out, nil
}

// CreateSeries creates one appointment per occurrence of d.Repeat. Any
// conflicting occurrence rejects the whole series, and the occurrences are
// stored in a single transaction.
func (b *Backend) CreateSeries(ctx context.Context, d model.Draft) ([]model.Appointment, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	dates, err := Occurrences(d, b.opts.Location, b.opts.SeriesCap, b.opts.SeriesHorizon)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var conflicts []model.Appointment
	for _, date := range dates {
		slot := d.Range()
		slot.Date = date
		hits, err := b.repo.Overlapping(ctx, storage.OverlapQuery{OwnerID: d.OwnerID, Slot: slot})
		if err != nil {
			return nil, &model.NetworkError{Op: "check conflict", Err: err}
		}
		conflicts = append(conflicts, hits...)
	}
	if len(conflicts) > 0 {
		return nil, &model.ConflictError{Conflicts: conflicts}
	}

	seriesID := uuid.NewString()
	rows := make([]storage.Row, 0, len(dates))
	for _, date := range dates {
		occ := d
		occ.Date = date
		occ.Repeat = ""
		rows = append(rows, storage.Row{Appointment: b.materialize(occ, uuid.NewString()), SeriesID: seriesID})
	}
	if err := b.repo.CreateAppointments(ctx, rows); err != nil {
		return nil, &model.NetworkError{Op: fmt.Sprintf("create series of %d", len(rows)), Err: err}
	}
	out := make([]model.Appointment, 0, len(rows))
	for _, row := range rows {
		b.afterWrite(ctx, model.Created(row.Appointment), true)
		out = append(out, row.Appointment)
	}
	return out, nil
}
