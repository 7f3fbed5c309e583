package visibility

import (
	"strings"

	"github.com/yigitselcuk/apptcal/internal/model"
)

// Policy names the viewers that see every appointment regardless of its
// visibility set.
type Policy struct {
	PrivilegedRoles     []string
	AllAccessDepartment string
}

func DefaultPolicy() Policy {
	return Policy{PrivilegedRoles: []string{"admin"}}
}

func (p Policy) Privileged(v model.Viewer) bool {
	for _, role := range p.PrivilegedRoles {
		if role != "" && strings.EqualFold(strings.TrimSpace(v.Role), role) {
			return true
		}
	}
	dept := strings.TrimSpace(p.AllAccessDepartment)
	return dept != "" && strings.EqualFold(strings.TrimSpace(v.Department), dept)
}

// IsVisible decides in order: privileged viewer, owner, open visibility, then
// membership of the viewer's id or email in the restricted set.
func IsVisible(a model.Appointment, v model.Viewer, p Policy) bool {
	if p.Privileged(v) {
		return true
	}
	id := strings.TrimSpace(v.ID)
	if id != "" && a.OwnerID == id {
		return true
	}
	if a.Visibility.All {
		return true
	}
	if a.Visibility.Contains(id) {
		return true
	}
	return a.Visibility.Contains(strings.TrimSpace(v.Email))
}

// Filter returns the visible subset of list, keeping order.
func Filter(list []model.Appointment, v model.Viewer, p Policy) []model.Appointment {
	out := make([]model.Appointment, 0, len(list))
	for _, a := range list {
		if IsVisible(a, v, p) {
			out = append(out, a)
		}
	}
	return out
}
