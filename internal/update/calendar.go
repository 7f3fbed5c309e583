package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yigitselcuk/apptcal/internal/compose"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/views"
)

func (m Model) handleCalendarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	frame := m.Session.Frame()
	switch msg.String() {
	case m.Keys.Day:
		frame.Granularity = compose.Day
	case m.Keys.Week:
		frame.Granularity = compose.Week
	case m.Keys.Month:
		frame.Granularity = compose.Month
	case m.Keys.Year:
		frame.Granularity = compose.Year
	case m.Keys.Prev, "left":
		frame = frame.Step(-1)
	case m.Keys.Next, "right":
		frame = frame.Step(1)
	case m.Keys.Today:
		frame.Anchor = m.today()
	case m.Keys.Refresh:
		return m.refresh()
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		m.clampCursor()
		return m, nil
	case "down", "j":
		m.Cursor++
		m.clampCursor()
		return m, nil
	default:
		return m, nil
	}
	return m.navigate(frame)
}

// navigate drops any fetch still in flight.
func (m Model) navigate(frame compose.Frame) (Model, tea.Cmd) {
	req := m.Session.Navigate(frame)
	m.Fetching = true
	m.Cursor = 0
	m.clampCursor()
	m.Status = StatusBar{Text: fmt.Sprintf("showing %s", m.Session.Frame().Title())}
	return m, tea.Batch(fetchCmd(m.ctx, m.Session, req), m.fetchSpinner.Tick)
}

func (m Model) refresh() (Model, tea.Cmd) {
	req := m.Session.Refresh()
	m.Fetching = true
	return m, tea.Batch(fetchCmd(m.ctx, m.Session, req), m.fetchSpinner.Tick)
}

func (m *Model) clampCursor() {
	agenda := m.Session.Agenda()
	if m.Cursor >= len(agenda) {
		m.Cursor = len(agenda) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if len(agenda) == 0 {
		m.SelectedID = ""
		return
	}
	m.SelectedID = agenda[m.Cursor].ID
}

func (m *Model) selectID(id string) {
	for i, a := range m.Session.Agenda() {
		if a.ID == id {
			m.Cursor = i
			m.SelectedID = id
			return
		}
	}
	m.clampCursor()
}

func (m Model) selected() (model.Appointment, bool) {
	if m.SelectedID == "" {
		return model.Appointment{}, false
	}
	return m.Session.Get(m.SelectedID)
}

func (m *Model) syncBubbleData() {
	if m.Session == nil {
		return
	}
	agenda := m.Session.Agenda()
	rows := make([]table.Row, 0, len(agenda))
	for _, a := range agenda {
		when := "all day"
		if !a.AllDay {
			when = fmt.Sprintf("%s-%s", a.Start, a.End)
		}
		rows = append(rows, table.Row{a.Date.String(), when, a.Title})
	}
	m.agendaTable.SetRows(rows)
	if m.Cursor >= 0 && m.Cursor < len(rows) {
		m.agendaTable.SetCursor(m.Cursor)
	}

	detail := views.DetailData{}
	if a, ok := m.selected(); ok {
		detail.Appointment = &a
		detail.Description = views.RenderMarkdown(a.Description)
	}
	m.detailView.SetContent(views.RenderDetail(detail))
}
