package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/yigitselcuk/apptcal/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.paletteBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Day, Action: "day view"},
		{Key: m.Keys.Week, Action: "week view"},
		{Key: m.Keys.Month, Action: "month view"},
		{Key: m.Keys.Year, Action: "year view"},
		{Key: m.Keys.Prev + "/" + m.Keys.Next, Action: "previous/next period"},
		{Key: m.Keys.Today, Action: "jump to today"},
		{Key: m.Keys.Refresh, Action: "refresh"},
		{Key: "j/k", Action: "move agenda cursor"},
		{Key: "/", Action: "open command palette"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) paletteBindings() []KeyBinding {
	out := []KeyBinding{
		{Key: "new <date> <HH:MM-HH:MM|allday> <title>", Action: "draft an appointment"},
		{Key: "edit <ref> [title] [at <date> <range>]", Action: "edit into a draft"},
		{Key: "move <ref> <date> [range]", Action: "move into a draft"},
		{Key: "cancel|delete <ref>", Action: "cancel or delete"},
		{Key: "resend <ref> [now|<date> HH:MM]", Action: "resend the reminder"},
		{Key: "reschedule <ref> <n><m|h|d|w>", Action: "change the reminder offset"},
		{Key: "goto <date>", Action: "jump to a date"},
		{Key: "view day|week|month|year", Action: "switch view"},
		{Key: "k=v", Action: "desc loc color status visible invite remind repeat"},
	}
	if m.Draft != nil {
		out = append(out, KeyBinding{Key: "enter/esc", Action: "save/discard draft"})
	}
	return out
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
