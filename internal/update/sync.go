package update

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yigitselcuk/apptcal/internal/calendar"
	"github.com/yigitselcuk/apptcal/internal/conflict"
	"github.com/yigitselcuk/apptcal/internal/model"
)

// Subscribe buffers events from src for the program loop. The channel is
// never closed.
func Subscribe(ctx context.Context, src calendar.EventSource, buffer int) (<-chan model.Event, error) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan model.Event, buffer)
	err := src.Subscribe(ctx, func(ev model.Event) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func waitForEventCmd(ctx context.Context, ch <-chan model.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev := <-ch:
			return eventMsg{Event: ev}
		case <-ctx.Done():
			return eventsClosedMsg{}
		}
	}
}

func fetchCmd(ctx context.Context, s *calendar.Session, req calendar.FetchRequest) tea.Cmd {
	return func() tea.Msg {
		return fetchedMsg{Result: s.Fetch(ctx, req)}
	}
}

func debounceCmd(seq uint64, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return debounceMsg{Seq: seq}
	})
}

func checkCmd(ctx context.Context, s *calendar.Session, req conflict.Request) tea.Cmd {
	return func() tea.Msg {
		return conflictMsg{Result: s.Check(ctx, req)}
	}
}

func saveCmd(ctx context.Context, s *calendar.Session, req calendar.SaveRequest) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{Result: s.Save(ctx, req)}
	}
}

func deleteCmd(ctx context.Context, s *calendar.Session, id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{ID: id, Err: s.Delete(ctx, id)}
	}
}

func resendCmd(ctx context.Context, s *calendar.Session, id string, at *time.Time) tea.Cmd {
	return func() tea.Msg {
		return reminderMsg{Result: s.Resend(ctx, id, at)}
	}
}

func rescheduleCmd(ctx context.Context, s *calendar.Session, id string, value int, unit model.ReminderUnit) tea.Cmd {
	return func() tea.Msg {
		return reminderMsg{Result: s.Reschedule(ctx, id, value, unit)}
	}
}
