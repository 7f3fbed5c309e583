package model

import "strings"

// Viewer is the resolved identity of whoever is looking at the calendar.
type Viewer struct {
	ID         string
	Email      string
	Role       string
	Department string
}

func (v Viewer) IsZero() bool {
	return strings.TrimSpace(v.ID) == "" && strings.TrimSpace(v.Email) == ""
}
