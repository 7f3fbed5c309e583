package visibility

import (
	"testing"

	"github.com/yigitselcuk/apptcal/internal/model"
)

func restricted(ids ...string) model.Appointment {
	return model.Appointment{ID: "a1", OwnerID: "1", Visibility: model.VisibleTo(ids...)}
}

func TestRestrictedVisibility(t *testing.T) {
	p := Policy{PrivilegedRoles: []string{"admin"}, AllAccessDepartment: "Front Desk"}
	a := restricted("7")

	if !IsVisible(a, model.Viewer{ID: "7"}, p) {
		t.Fatal("listed viewer must see the appointment")
	}
	if IsVisible(a, model.Viewer{ID: "8"}, p) {
		t.Fatal("unlisted viewer must not see the appointment")
	}
	if !IsVisible(a, model.Viewer{ID: "8", Role: "Admin"}, p) {
		t.Fatal("privileged role must see everything")
	}
	if !IsVisible(a, model.Viewer{ID: "8", Department: "front desk"}, p) {
		t.Fatal("all-access department must see everything")
	}
	if !IsVisible(a, model.Viewer{ID: "1"}, p) {
		t.Fatal("owner must see their own appointment")
	}
}

func TestEmailVisibility(t *testing.T) {
	a := restricted("Ali@Example.com")
	if !IsVisible(a, model.Viewer{ID: "9", Email: "ali@example.com"}, DefaultPolicy()) {
		t.Fatal("email entry must match viewer email case-insensitively")
	}
}

func TestEmptyRestrictedSetHidesFromOthers(t *testing.T) {
	a := restricted()
	if IsVisible(a, model.Viewer{}, Policy{}) {
		t.Fatal("anonymous viewer must not see restricted appointment")
	}
	a.Visibility = model.VisibleToAll()
	if !IsVisible(a, model.Viewer{ID: "42"}, Policy{}) {
		t.Fatal("open appointment must be visible")
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	list := []model.Appointment{
		{ID: "a", OwnerID: "1", Visibility: model.VisibleToAll()},
		{ID: "b", OwnerID: "1", Visibility: model.VisibleTo("2")},
		{ID: "c", OwnerID: "3", Visibility: model.VisibleTo("3")},
	}
	got := Filter(list, model.Viewer{ID: "3"}, Policy{})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}
