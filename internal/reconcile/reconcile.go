package reconcile

import (
	"errors"

	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/store"
)

// Result describes what one event did to the store. Redraw is set when the
// change touched the visible window.
type Result struct {
	Outcome store.Outcome
	Removed bool
	Echo    bool
	Redraw  bool
}

// Engine folds change events into a Store in arrival order. Ordering between
// copies of the same appointment is settled by the store's version check.
type Engine struct {
	store   *store.Store
	logger  *zap.Logger
	pending map[string]int
}

func New(s *store.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: s, logger: logger.Named("reconcile"), pending: make(map[string]int)}
}

// MarkPending records a local mutation of id whose echo is still expected.
func (e *Engine) MarkPending(id string) {
	e.pending[id]++
}

func (e *Engine) Pending(id string) bool {
	return e.pending[id] > 0
}

// Forget drops one pending marker for id after its mutation failed.
func (e *Engine) Forget(id string) {
	e.clearPending(id)
}

func (e *Engine) clearPending(id string) bool {
	n, ok := e.pending[id]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(e.pending, id)
	} else {
		e.pending[id] = n - 1
	}
	return true
}

// Apply folds ev into the store. Stale copies are dropped without error.
func (e *Engine) Apply(ev model.Event) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}
	id := ev.AppointmentID()
	res := Result{Echo: e.clearPending(id)}

	before, held := e.store.Get(id)
	if held && e.store.Visible(before.Date) {
		res.Redraw = true
	}

	if ev.Kind == model.EventDeleted {
		res.Removed = e.store.Remove(id)
		if !res.Removed {
			res.Redraw = false
		}
		return res, nil
	}

	a := ev.Appointment.Clone()
	if a.ID == "" {
		a.ID = id
	}
	out, err := e.store.Upsert(a)
	switch {
	case err == nil:
	case model.IsStale(err):
		e.logger.Debug("dropped stale event", zap.String("id", id), zap.String("kind", string(ev.Kind)), zap.Error(err))
		return Result{Echo: res.Echo}, nil
	case errors.Is(err, store.ErrUnknownPartial):
		e.logger.Debug("dropped partial update for unheld appointment", zap.String("id", id))
		return Result{Echo: res.Echo}, nil
	default:
		return Result{}, err
	}
	res.Outcome = out
	if after, ok := e.store.Get(id); ok && e.store.Visible(after.Date) {
		res.Redraw = true
	}
	if out == store.Ignored && !held {
		res.Redraw = false
	}
	return res, nil
}
