package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/yigitselcuk/apptcal/internal/model"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenFile    string
	CalendarID   string
}

// GoogleMirror writes appointments to a Google calendar and keys them by
// the event id Google assigns.
type GoogleMirror struct {
	svc        *calendar.Service
	calendarID string
	loc        *time.Location
}

func NewGoogleMirror(ctx context.Context, cfg GoogleConfig, loc *time.Location) (*GoogleMirror, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("mirror: google client id and secret are required")
	}
	tok, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("mirror: google calendar service: %w", err)
	}
	return NewGoogleMirrorWithService(svc, cfg.CalendarID, loc), nil
}

func NewGoogleMirrorWithService(svc *calendar.Service, calendarID string, loc *time.Location) *GoogleMirror {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.Local
	}
	return &GoogleMirror{svc: svc, calendarID: calendarID, loc: loc}
}

func loadToken(path string) (*oauth2.Token, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("mirror: google token file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mirror: read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("mirror: decode token: %w", err)
	}
	return &tok, nil
}

func (m *GoogleMirror) Name() string { return "google" }

func (m *GoogleMirror) Upsert(ctx context.Context, a model.Appointment) (string, error) {
	ev := m.event(a)
	if a.GoogleEventID == "" {
		created, err := m.svc.Events.Insert(m.calendarID, ev).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return created.Id, nil
	}
	updated, err := m.svc.Events.Update(m.calendarID, a.GoogleEventID, ev).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return updated.Id, nil
}

func (m *GoogleMirror) Delete(ctx context.Context, a model.Appointment) error {
	if a.GoogleEventID == "" {
		return nil
	}
	return m.svc.Events.Delete(m.calendarID, a.GoogleEventID).Context(ctx).Do()
}

func (m *GoogleMirror) event(a model.Appointment) *calendar.Event {
	ev := &calendar.Event{
		Summary:     a.Title,
		Description: a.Description,
		Location:    a.Location,
	}
	if a.AllDay {
		ev.Start = &calendar.EventDateTime{Date: a.Date.String()}
		ev.End = &calendar.EventDateTime{Date: a.Date.AddDays(1).String()}
	} else {
		ev.Start = &calendar.EventDateTime{
			DateTime: a.Date.At(a.Start, m.loc).Format(time.RFC3339),
			TimeZone: zoneName(m.loc),
		}
		ev.End = &calendar.EventDateTime{
			DateTime: a.Date.At(a.End, m.loc).Format(time.RFC3339),
			TimeZone: zoneName(m.loc),
		}
	}
	if !a.IsActive() {
		ev.Status = "cancelled"
	}
	for _, inv := range a.Invitees {
		if inv.Email == "" {
			continue
		}
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: inv.Email, DisplayName: inv.Name})
	}
	return ev
}

// zoneName is the IANA name of loc, or empty when loc has none. Google
// rejects "Local", and the RFC 3339 offset already pins the instant.
func zoneName(loc *time.Location) string {
	name := loc.String()
	if name == "" || name == "Local" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}
