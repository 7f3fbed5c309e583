package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yigitselcuk/apptcal/internal/calendar"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/views"
)

func (m Model) Init() tea.Cmd {
	if m.Session == nil {
		return nil
	}
	req := m.Session.Navigate(m.Session.Frame())
	return tea.Batch(
		fetchCmd(m.ctx, m.Session, req),
		m.fetchSpinner.Tick,
		waitForEventCmd(m.ctx, m.Events),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		if m.Draft != nil {
			switch typed.String() {
			case "enter":
				return m.saveDraft()
			case "esc":
				m.discardDraft()
				return m, nil
			}
		}
		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		return m.handleCalendarKey(typed)
	case spinner.TickMsg:
		if m.Fetching {
			var cmd tea.Cmd
			m.fetchSpinner, cmd = m.fetchSpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case RefreshMsg:
		return m.refresh()
	case fetchedMsg:
		applied, err := m.Session.ApplyFetch(typed.Result)
		if typed.Result.Gen == m.Session.Generation() {
			m.Fetching = false
		}
		if err != nil {
			m.setError(fmt.Errorf("fetch %s: %w", typed.Result.Range, err))
			return m, nil
		}
		if applied {
			m.clampCursor()
		}
		return m, nil
	case eventMsg:
		res, req, err := m.Session.HandleEvent(typed.Event)
		var cmds []tea.Cmd
		if err != nil {
			m.setError(err)
		} else if res.Redraw && !res.Echo {
			m.notify("Calendar", describeEvent(typed.Event), "info")
		}
		if req != nil && m.Draft != nil {
			cmds = append(cmds, debounceCmd(req.Seq, m.Session.Delay()))
		}
		m.clampCursor()
		cmds = append(cmds, waitForEventCmd(m.ctx, m.Events))
		return m, tea.Batch(cmds...)
	case eventsClosedMsg:
		m.Status = StatusBar{Text: "event stream closed", IsError: true}
		return m, nil
	case debounceMsg:
		req, ok := m.Session.FireCheck(typed.Seq)
		if !ok || m.Draft == nil {
			return m, nil
		}
		m.Draft.Checking = true
		return m, checkCmd(m.ctx, m.Session, req)
	case conflictMsg:
		if m.Session.ApplyConflict(typed.Result) && m.Draft != nil {
			m.Draft.Checking = false
		}
		return m, nil
	case savedMsg:
		return m.onSaved(typed.Result)
	case deletedMsg:
		if _, err := m.Session.ApplyDelete(typed.ID, typed.Err); err != nil {
			m.setError(err)
			return m, nil
		}
		m.Status = StatusBar{Text: fmt.Sprintf("deleted %s", shortID(typed.ID))}
		m.clampCursor()
		return m, nil
	case reminderMsg:
		if _, err := m.Session.ApplyReminder(typed.Result); err != nil {
			m.setError(err)
			return m, nil
		}
		r := typed.Result.Reminder
		m.Status = StatusBar{Text: fmt.Sprintf("reminder %s", reminderSummary(&r))}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.setError(typed.Err)
		return m, nil
	}
	return m, nil
}

func (m Model) onSaved(res calendar.SaveResult) (Model, tea.Cmd) {
	if _, err := m.Session.ApplySave(res); err != nil {
		if m.Draft != nil {
			m.Draft.Saving = false
			m.Draft.Checking = false
		}
		if ce, ok := model.AsConflict(err); ok {
			m.Status = StatusBar{Text: fmt.Sprintf("not saved: overlaps %d appointment(s)", len(ce.Conflicts)), IsError: true}
			return m, nil
		}
		m.setError(err)
		return m, nil
	}
	m.Draft = nil
	m.SelectedID = res.Appointment.ID
	m.selectID(res.Appointment.ID)
	verb := "created"
	if res.Request.ID != "" {
		verb = "updated"
	}
	m.Status = StatusBar{Text: fmt.Sprintf("%s %s", verb, res.Appointment.Title)}
	return m, nil
}

func (m Model) View() string {
	if m.Session == nil {
		return ""
	}
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	fetching := ""
	if m.Fetching {
		fetching = m.fetchSpinner.View() + " loading"
	}
	left := views.RenderCalendarPanel(views.CalendarPanelData{
		View:       m.Session.View(),
		SelectedID: m.SelectedID,
		Fetching:   fetching,
	})

	right := []string{m.agendaTable.View(), m.detailView.View()}
	if m.Draft != nil {
		right = append(right, m.renderDraft())
	}
	if p := m.renderCommandPalette(); p != "" {
		right = append(right, p)
	}
	if h := m.renderHelpIfVisible(); h != "" {
		right = append(right, h)
	}

	viewer := m.Session.Viewer()
	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("apptcal | %s | viewer: %s", m.Session.Frame().Title(), viewer.ID),
		LeftPane:     left,
		RightPane:    strings.Join(right, "\n\n"),
		StatusLine:   status,
		Notification: m.renderNotificationsView(),
		Footer: fmt.Sprintf("keys: %s/%s/%s/%s views | %s/%s prev/next | %s today | %s refresh | / cmd | %s help | %s quit",
			m.Keys.Day, m.Keys.Week, m.Keys.Month, m.Keys.Year, m.Keys.Prev, m.Keys.Next, m.Keys.Today, m.Keys.Refresh, m.Keys.Help, m.Keys.Quit),
	})
}
