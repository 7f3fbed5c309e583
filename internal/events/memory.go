package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/model"
)

const memoryBuffer = 256

type subscriber struct {
	ch   chan model.Event
	done <-chan struct{}
}

// MemoryBus delivers events in publish order to each subscriber on its own
// goroutine. A subscription ends when its context is cancelled.
type MemoryBus struct {
	mu     sync.Mutex
	seq    uint64
	subs   map[*subscriber]struct{}
	closed bool
	done   chan struct{}
	logger *zap.Logger
}

func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryBus{
		subs:   make(map[*subscriber]struct{}),
		done:   make(chan struct{}),
		logger: logger.Named("bus"),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.seq++
	ev.Seq = b.seq
	subs := make([]*subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		out := ev
		if ev.Appointment != nil {
			a := ev.Appointment.Clone()
			out.Appointment = &a
		}
		select {
		case s.ch <- out:
		case <-s.done:
		case <-b.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.logger.Debug("published", zap.String("kind", string(ev.Kind)), zap.String("id", ev.AppointmentID()), zap.Uint64("seq", ev.Seq))
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, handler func(model.Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	s := &subscriber{ch: make(chan model.Event, memoryBuffer), done: ctx.Done()}
	b.subs[s] = struct{}{}
	go func() {
		defer b.unsubscribe(s)
		for {
			select {
			case ev := <-s.ch:
				handler(ev)
			case <-b.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (b *MemoryBus) unsubscribe(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	return nil
}
