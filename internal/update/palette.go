package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yigitselcuk/apptcal/internal/commands"
	"github.com/yigitselcuk/apptcal/internal/compose"
	"github.com/yigitselcuk/apptcal/internal/model"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	}
	if msg.Type == tea.KeyRunes {
		m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		m.Palette.Input = m.commandInput.Value()
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.ParseAt(raw, m.today(), m.loc)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	var next tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		New: func(a commands.NewArgs) (commands.Result, error) {
			d := a.Draft(m.Session.Viewer().ID)
			next = m.openDraft("", d)
			return commands.Result{Message: fmt.Sprintf("drafting %s on %s", d.Title, d.Date)}, nil
		},
		Edit: func(e commands.EditArgs) (commands.Result, error) {
			a, err := m.target(e.Target)
			if err != nil {
				return commands.Result{}, err
			}
			next = m.openDraft(a.ID, e.Apply(model.DraftOf(a)))
			return commands.Result{Message: fmt.Sprintf("editing %s", a.Title)}, nil
		},
		Move: func(mv commands.MoveArgs) (commands.Result, error) {
			a, err := m.target(mv.Target)
			if err != nil {
				return commands.Result{}, err
			}
			d := mv.Apply(model.DraftOf(a))
			next = m.openDraft(a.ID, d)
			return commands.Result{Message: fmt.Sprintf("moving %s to %s", a.Title, d.Date)}, nil
		},
		Cancel: func(t commands.TargetArgs) (commands.Result, error) {
			a, err := m.target(t.Target)
			if err != nil {
				return commands.Result{}, err
			}
			d := model.DraftOf(a)
			d.Status = model.StatusCancelled
			req, err := m.Session.PrepareSave(a.ID, d)
			if err != nil {
				return commands.Result{}, err
			}
			next = saveCmd(m.ctx, m.Session, req)
			return commands.Result{Message: fmt.Sprintf("cancelling %s", a.Title)}, nil
		},
		Delete: func(t commands.TargetArgs) (commands.Result, error) {
			a, err := m.target(t.Target)
			if err != nil {
				return commands.Result{}, err
			}
			m.Session.PrepareDelete(a.ID)
			next = deleteCmd(m.ctx, m.Session, a.ID)
			return commands.Result{Message: fmt.Sprintf("deleting %s", a.Title)}, nil
		},
		Resend: func(r commands.ResendArgs) (commands.Result, error) {
			a, err := m.target(r.Target)
			if err != nil {
				return commands.Result{}, err
			}
			next = resendCmd(m.ctx, m.Session, a.ID, r.At)
			return commands.Result{Message: fmt.Sprintf("resending reminder for %s", a.Title)}, nil
		},
		Reschedule: func(r commands.RescheduleArgs) (commands.Result, error) {
			a, err := m.target(r.Target)
			if err != nil {
				return commands.Result{}, err
			}
			next = rescheduleCmd(m.ctx, m.Session, a.ID, r.Value, r.Unit)
			return commands.Result{Message: fmt.Sprintf("reminder for %s set to %d %s before", a.Title, r.Value, r.Unit)}, nil
		},
		Goto: func(g commands.GotoArgs) (commands.Result, error) {
			frame := m.Session.Frame()
			frame.Anchor = g.Date
			m, next = m.navigate(frame)
			return commands.Result{Message: fmt.Sprintf("showing %s", frame.Title())}, nil
		},
		View: func(v commands.ViewArgs) (commands.Result, error) {
			g, err := compose.ParseGranularity(v.Granularity)
			if err != nil {
				return commands.Result{}, err
			}
			frame := m.Session.Frame()
			frame.Granularity = g
			m, next = m.navigate(frame)
			return commands.Result{Message: fmt.Sprintf("showing %s", frame.Title())}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	m.notify("Command", res.Message, "info")
	return m, next
}

// "." and "selected" name the appointment under the cursor.
func (m Model) target(ref string) (model.Appointment, error) {
	if ref == "." || strings.EqualFold(ref, "selected") {
		if a, ok := m.selected(); ok {
			return a, nil
		}
		return model.Appointment{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no appointment selected"}
	}
	return m.Session.Resolve(ref)
}

func (m *Model) openDraft(editingID string, d model.Draft) tea.Cmd {
	req, advisory := m.Session.EditDraft(editingID, d)
	m.Draft = &DraftState{EditingID: editingID, Draft: d, Advisory: advisory}
	return debounceCmd(req.Seq, m.Session.Delay())
}

func (m Model) saveDraft() (Model, tea.Cmd) {
	if m.Draft.Saving {
		return m, nil
	}
	req, err := m.Session.PrepareSave(m.Draft.EditingID, m.Draft.Draft)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.Draft.Saving = true
	m.Status = StatusBar{Text: fmt.Sprintf("saving %s", m.Draft.Draft.Title)}
	return m, saveCmd(m.ctx, m.Session, req)
}

func (m *Model) discardDraft() {
	m.Session.CloseDraft()
	m.Draft = nil
	m.Status = StatusBar{Text: "draft discarded"}
}
