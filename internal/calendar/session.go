package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/compose"
	"github.com/yigitselcuk/apptcal/internal/conflict"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/reconcile"
	"github.com/yigitselcuk/apptcal/internal/store"
	"github.com/yigitselcuk/apptcal/internal/timerange"
	"github.com/yigitselcuk/apptcal/internal/visibility"
)

var (
	ErrAmbiguousRef = errors.New("calendar: reference matches more than one appointment")
	ErrEmptyRef     = errors.New("calendar: empty appointment reference")
)

type Options struct {
	BufferDays int
	Debounce   time.Duration
	Layout     compose.Layout
	Policy     visibility.Policy
}

// FetchRequest asks for the appointments of Range on behalf of window
// generation Gen.
type FetchRequest struct {
	Gen   uint64
	Range timerange.DateRange
}

type FetchResult struct {
	Gen          uint64
	Range        timerange.DateRange
	Appointments []model.Appointment
	Err          error
}

type ConflictResult struct {
	Seq       uint64
	Conflicts []model.Appointment
	Err       error
}

// SaveRequest is a create when ID is empty and an update otherwise.
type SaveRequest struct {
	ID    string
	Draft model.Draft
}

type SaveResult struct {
	Request     SaveRequest
	Appointment model.Appointment
	Err         error
}

type ReminderResult struct {
	ID       string
	Reminder model.Reminder
	Err      error
}

// Session is one open calendar: the store it owns, the window on display,
// the viewer, and the draft conflict check in progress. Every method that
// touches state must run on the program loop. Fetch, Check, Save, Delete,
// Resend and Reschedule only call the service and are safe to run from a
// command goroutine.
type Session struct {
	svc       AppointmentService
	store     *store.Store
	engine    *reconcile.Engine
	debouncer *conflict.Debouncer
	viewer    model.Viewer
	policy    visibility.Policy
	layout    compose.Layout
	frame     compose.Frame
	logger    *zap.Logger

	gen       uint64
	deleted   map[string]struct{}
	touched   map[string]struct{}
	draft     *conflict.Request
	conflicts []model.Appointment
}

func New(svc AppointmentService, viewer model.Viewer, frame compose.Frame, logger *zap.Logger, opts Options) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Layout.HourHeight <= 0 {
		opts.Layout = compose.DefaultLayout()
	}
	if opts.Policy.PrivilegedRoles == nil && opts.Policy.AllAccessDepartment == "" {
		opts.Policy = visibility.DefaultPolicy()
	}
	if opts.BufferDays <= 0 {
		opts.BufferDays = store.DefaultBufferDays
	}
	if !frame.Granularity.IsValid() {
		frame.Granularity = compose.Week
	}
	st := store.New(opts.BufferDays)
	st.SetWindow(frame.Range())
	return &Session{
		svc:       svc,
		store:     st,
		engine:    reconcile.New(st, logger),
		debouncer: conflict.NewDebouncer(opts.Debounce),
		viewer:    viewer,
		policy:    opts.Policy,
		layout:    opts.Layout,
		frame:     frame,
		logger:    logger.Named("session"),
		deleted:   make(map[string]struct{}),
		touched:   make(map[string]struct{}),
	}
}

func (s *Session) Viewer() model.Viewer { return s.viewer }

func (s *Session) Frame() compose.Frame { return s.frame }

func (s *Session) Generation() uint64 { return s.gen }

func (s *Session) Delay() time.Duration { return s.debouncer.Delay }

// Navigate moves the session to frame. The store drops everything outside
// the new buffered window and the returned request supersedes every fetch
// still in flight.
func (s *Session) Navigate(frame compose.Frame) FetchRequest {
	if !frame.Granularity.IsValid() {
		frame.Granularity = s.frame.Granularity
	}
	s.frame = frame
	evicted := s.store.SetWindow(frame.Range())
	if evicted > 0 {
		s.logger.Debug("evicted appointments", zap.Int("count", evicted), zap.String("window", frame.Range().String()))
	}
	return s.Refresh()
}

// Refresh re-fetches the current window under a new generation.
func (s *Session) Refresh() FetchRequest {
	s.gen++
	s.deleted = make(map[string]struct{})
	s.touched = make(map[string]struct{})
	return FetchRequest{Gen: s.gen, Range: s.store.Bounds()}
}

func (s *Session) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	list, err := s.svc.FetchAppointments(ctx, req.Range)
	return FetchResult{Gen: req.Gen, Range: req.Range, Appointments: list, Err: err}
}

// ApplyFetch loads a fetch result into the store. Results from an older
// generation are dropped. Rows deleted by an event since the fetch was
// issued stay deleted, and held rows the fetch no longer returns are
// removed unless an event has touched them since.
func (s *Session) ApplyFetch(res FetchResult) (bool, error) {
	if res.Gen != s.gen {
		s.logger.Debug("dropped stale fetch", zap.Uint64("gen", res.Gen), zap.Uint64("current", s.gen))
		return false, nil
	}
	if res.Err != nil {
		return false, res.Err
	}
	seen := make(map[string]struct{}, len(res.Appointments))
	list := make([]model.Appointment, 0, len(res.Appointments))
	for _, a := range res.Appointments {
		seen[a.ID] = struct{}{}
		if _, gone := s.deleted[a.ID]; gone {
			continue
		}
		list = append(list, a)
	}
	for _, held := range s.store.All() {
		if !res.Range.Contains(held.Date) {
			continue
		}
		if _, ok := seen[held.ID]; ok {
			continue
		}
		if _, ok := s.touched[held.ID]; ok {
			continue
		}
		s.store.Remove(held.ID)
	}
	n := s.store.Load(list)
	s.logger.Debug("fetch applied", zap.Uint64("gen", res.Gen), zap.Int("rows", len(res.Appointments)), zap.Int("applied", n))
	return true, nil
}

// HandleEvent folds a pushed change into the store. When the change lands
// on the owner and date of the draft being edited, a fresh conflict
// request is returned so the advisory check can be redone.
func (s *Session) HandleEvent(ev model.Event) (reconcile.Result, *conflict.Request, error) {
	before, held := s.store.Get(ev.AppointmentID())
	res, err := s.engine.Apply(ev)
	if err != nil {
		return res, nil, err
	}
	id := ev.AppointmentID()
	if ev.Kind == model.EventDeleted {
		s.deleted[id] = struct{}{}
	} else {
		delete(s.deleted, id)
		s.touched[id] = struct{}{}
	}

	if s.draft == nil || (res.Outcome == store.Ignored && !res.Removed) {
		return res, nil, nil
	}
	after, _ := s.store.Get(id)
	if s.affectsDraft(before, held) || s.affectsDraft(after, ev.Kind != model.EventDeleted) {
		req := s.debouncer.Touch(s.draft.Candidate, s.draft.Scope)
		s.draft = &req
		return res, &req, nil
	}
	return res, nil, nil
}

func (s *Session) affectsDraft(a model.Appointment, ok bool) bool {
	if !ok || s.draft == nil {
		return false
	}
	return a.OwnerID == s.draft.Scope.OwnerID && a.Date == s.draft.Candidate.Date
}

// EditDraft records an edit of the draft being composed. It returns the
// debounced request to arm a timer for and the local, advisory conflicts
// against what the store holds.
func (s *Session) EditDraft(excludeID string, d model.Draft) (conflict.Request, []model.Appointment) {
	scope := conflict.Scope{OwnerID: d.OwnerID, ExcludeID: excludeID}
	req := s.debouncer.Touch(d.Range(), scope)
	s.draft = &req
	local := conflict.FindConflicts(req.Candidate, scope, s.store.All())
	return req, local
}

// CloseDraft abandons the draft and any conflict check still pending for it.
func (s *Session) CloseDraft() {
	s.debouncer.Cancel()
	s.draft = nil
	s.conflicts = nil
}

// FireCheck is called when the debounce timer for seq elapses.
func (s *Session) FireCheck(seq uint64) (conflict.Request, bool) {
	return s.debouncer.Fire(seq)
}

func (s *Session) Check(ctx context.Context, req conflict.Request) ConflictResult {
	hits, err := s.svc.CheckConflict(ctx, req.Candidate, req.Scope)
	return ConflictResult{Seq: req.Seq, Conflicts: hits, Err: err}
}

// ApplyConflict keeps res only if it answers the latest edit.
func (s *Session) ApplyConflict(res ConflictResult) bool {
	if !s.debouncer.Accept(res.Seq) {
		return false
	}
	if res.Err != nil {
		s.logger.Warn("conflict check failed", zap.Uint64("seq", res.Seq), zap.Error(res.Err))
		return false
	}
	s.conflicts = cloneAll(res.Conflicts)
	return true
}

func (s *Session) Conflicts() []model.Appointment {
	return cloneAll(s.conflicts)
}

// PrepareSave validates d and marks the target as awaiting its echo.
func (s *Session) PrepareSave(id string, d model.Draft) (SaveRequest, error) {
	if err := d.Validate(); err != nil {
		return SaveRequest{}, err
	}
	if id != "" {
		s.engine.MarkPending(id)
	}
	s.debouncer.Cancel()
	return SaveRequest{ID: id, Draft: d}, nil
}

func (s *Session) Save(ctx context.Context, req SaveRequest) SaveResult {
	var (
		a   model.Appointment
		err error
	)
	if req.ID == "" {
		a, err = s.svc.CreateAppointment(ctx, req.Draft)
	} else {
		a, err = s.svc.UpdateAppointment(ctx, req.ID, req.Draft)
	}
	return SaveResult{Request: req, Appointment: a, Err: err}
}

// ApplySave folds a save response into the store. A conflict rejection
// keeps the draft open with the conflicting set on display.
func (s *Session) ApplySave(res SaveResult) (reconcile.Result, error) {
	if res.Err != nil {
		if res.Request.ID != "" {
			s.engine.Forget(res.Request.ID)
		}
		if ce, ok := model.AsConflict(res.Err); ok {
			s.conflicts = cloneAll(ce.Conflicts)
		}
		return reconcile.Result{}, res.Err
	}
	s.draft = nil
	s.conflicts = nil
	ev := model.Updated(res.Appointment)
	if res.Request.ID == "" {
		ev = model.Created(res.Appointment)
	}
	out, _, err := s.HandleEvent(ev)
	return out, err
}

func (s *Session) PrepareDelete(id string) {
	s.engine.MarkPending(id)
}

func (s *Session) Delete(ctx context.Context, id string) error {
	return s.svc.DeleteAppointment(ctx, id)
}

// ApplyDelete folds a delete response. An appointment the service no
// longer knows is removed locally as well.
func (s *Session) ApplyDelete(id string, err error) (reconcile.Result, error) {
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		s.engine.Forget(id)
		return reconcile.Result{}, err
	}
	out, _, herr := s.HandleEvent(model.Deleted(id))
	return out, herr
}

func (s *Session) Resend(ctx context.Context, id string, at *time.Time) ReminderResult {
	r, err := s.svc.ResendReminder(ctx, id, at)
	return ReminderResult{ID: id, Reminder: r, Err: err}
}

func (s *Session) Reschedule(ctx context.Context, id string, value int, unit model.ReminderUnit) ReminderResult {
	r, err := s.svc.RescheduleReminder(ctx, id, value, unit)
	return ReminderResult{ID: id, Reminder: r, Err: err}
}

// ApplyReminder patches the held copy with the new reminder state. The
// service's own update event settles the version afterwards.
func (s *Session) ApplyReminder(res ReminderResult) (reconcile.Result, error) {
	if res.Err != nil {
		return reconcile.Result{}, res.Err
	}
	held, ok := s.store.Get(res.ID)
	if !ok {
		return reconcile.Result{}, nil
	}
	r := res.Reminder
	patch := model.Appointment{
		ID:        held.ID,
		Reminder:  &r,
		Version:   held.Version,
		UpdatedAt: held.UpdatedAt,
		Fields:    model.FieldReminder,
	}
	out, _, err := s.HandleEvent(model.Updated(patch))
	return out, err
}

// View composes the current frame for the session's viewer.
func (s *Session) View() compose.CalendarView {
	return compose.Compose(s.store.All(), s.frame, s.viewer, s.policy, s.layout)
}

// Agenda lists the visible active appointments of the current frame in
// display order.
func (s *Session) Agenda() []model.Appointment {
	view := s.View()
	var out []model.Appointment
	for _, col := range view.Columns {
		for _, e := range col.Entries {
			out = append(out, e.Appointment)
		}
	}
	for _, m := range view.Months {
		out = append(out, m.Items...)
	}
	return out
}

func (s *Session) Get(id string) (model.Appointment, bool) {
	a, ok := s.store.Get(id)
	if !ok || !visibility.IsVisible(a, s.viewer, s.policy) {
		return model.Appointment{}, false
	}
	return a, true
}

// Resolve finds a held appointment by full id or unique id prefix.
func (s *Session) Resolve(ref string) (model.Appointment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Appointment{}, ErrEmptyRef
	}
	if a, ok := s.Get(ref); ok {
		return a, nil
	}
	var match []model.Appointment
	for _, a := range visibility.Filter(s.store.All(), s.viewer, s.policy) {
		if strings.HasPrefix(a.ID, ref) {
			match = append(match, a)
		}
	}
	switch len(match) {
	case 0:
		return model.Appointment{}, fmt.Errorf("%w: %s", model.ErrNotFound, ref)
	case 1:
		return match[0], nil
	default:
		return model.Appointment{}, fmt.Errorf("%w: %s", ErrAmbiguousRef, ref)
	}
}

func (s *Session) Len() int { return s.store.Len() }

func cloneAll(list []model.Appointment) []model.Appointment {
	if list == nil {
		return nil
	}
	out := make([]model.Appointment, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}
