package conflict

import (
	"sort"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

// Scope limits a check to one owner's calendar. ExcludeID is the
// appointment being edited, so it never conflicts with itself.
type Scope struct {
	OwnerID   string
	ExcludeID string
}

// FindConflicts returns the entries of pool that collide with candidate,
// ordered by start then id. All-day slots never conflict.
func FindConflicts(candidate timerange.TimeRange, scope Scope, pool []model.Appointment) []model.Appointment {
	if candidate.AllDay {
		return nil
	}
	var out []model.Appointment
	for _, a := range pool {
		if a.AllDay || !a.IsActive() {
			continue
		}
		if a.OwnerID != scope.OwnerID || (scope.ExcludeID != "" && a.ID == scope.ExcludeID) {
			continue
		}
		if timerange.Overlaps(candidate, a.Range()) {
			out = append(out, a.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}
