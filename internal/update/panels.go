package update

import (
	"strings"
	"time"

	"github.com/yigitselcuk/apptcal/internal/views"
)

const maxNotifications = 40

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.Palette.Input)
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Body)
}

func (m Model) renderDraft() string {
	if m.Draft == nil {
		return ""
	}
	return views.RenderDraftPanel(views.DraftPanelData{
		Editing:   shortID(m.Draft.EditingID),
		Draft:     m.Draft.Draft,
		Advisory:  m.Draft.Advisory,
		Conflicts: m.Session.Conflicts(),
		Checking:  m.Draft.Checking,
		Saving:    m.Draft.Saving,
	})
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	m.Notifications = append(m.Notifications, Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    time.Now().UTC(),
	})
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	m.LastError = err
	m.Status = StatusBar{Text: err.Error(), IsError: true}
	m.notify("Error", err.Error(), "error")
}
