package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/yigitselcuk/apptcal/internal/calendar"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Day     string
	Week    string
	Month   string
	Year    string
	Prev    string
	Next    string
	Today   string
	Refresh string
	Help    string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type DraftState struct {
	EditingID string
	Draft     model.Draft
	Advisory  []model.Appointment
	Checking  bool
	Saving    bool
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type Options struct {
	Location *time.Location
	Today    func() timerange.Date
}

// Model owns the session; only Update touches it.
type Model struct {
	Session       *calendar.Session
	Events        <-chan model.Event
	Palette       CommandPaletteState
	Draft         *DraftState
	SelectedID    string
	Cursor        int
	Fetching      bool
	HelpVisible   bool
	Notifications []Notification
	Status        StatusBar
	Keys          GlobalKeyMap
	Quitting      bool
	LastError     error

	ctx   context.Context
	loc   *time.Location
	today func() timerange.Date

	agendaTable  table.Model
	commandInput textinput.Model
	fetchSpinner spinner.Model
	helpModel    help.Model
	detailView   viewport.Model
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type RefreshMsg struct{}

type fetchedMsg struct {
	Result calendar.FetchResult
}

type eventMsg struct {
	Event model.Event
}

type eventsClosedMsg struct{}

type debounceMsg struct {
	Seq uint64
}

type conflictMsg struct {
	Result calendar.ConflictResult
}

type savedMsg struct {
	Result calendar.SaveResult
}

type deletedMsg struct {
	ID  string
	Err error
}

type reminderMsg struct {
	Result calendar.ReminderResult
}

func NewModel(ctx context.Context, session *calendar.Session, events <-chan model.Event, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Today == nil {
		loc := opts.Location
		opts.Today = func() timerange.Date { return timerange.DateOf(time.Now().In(loc)) }
	}
	m := Model{
		Session: session,
		Events:  events,
		ctx:     ctx,
		loc:     opts.Location,
		today:   opts.Today,
		Keys: GlobalKeyMap{
			Day:     "d",
			Week:    "w",
			Month:   "m",
			Year:    "y",
			Prev:    "h",
			Next:    "l",
			Today:   "t",
			Refresh: "r",
			Help:    "?",
			Quit:    "q",
		},
	}
	m.initBubbleComponents()
	m.syncBubbleData()
	return m
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "Date", Width: 10},
		{Title: "Time", Width: 11},
		{Title: "Title", Width: 22},
	}
	m.agendaTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(8))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 512
	m.commandInput.Width = 48

	m.fetchSpinner = spinner.New()
	m.fetchSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.detailView = viewport.New(48, 10)
}
