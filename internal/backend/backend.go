package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/conflict"
	"github.com/yigitselcuk/apptcal/internal/events"
	"github.com/yigitselcuk/apptcal/internal/mirror"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/reminder"
	"github.com/yigitselcuk/apptcal/internal/scheduler"
	"github.com/yigitselcuk/apptcal/internal/storage"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

var ErrClosed = errors.New("backend: closed")

type Options struct {
	Location       *time.Location
	ReminderBuffer int
	SeriesCap      int
	SeriesHorizon  time.Duration
	Now            func() time.Time
}

func (o *Options) normalize() {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.ReminderBuffer <= 0 {
		o.ReminderBuffer = 64
	}
	if o.SeriesCap <= 0 {
		o.SeriesCap = 52
	}
	if o.SeriesHorizon <= 0 {
		o.SeriesHorizon = 366 * 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Notifier hands a due reminder to whatever delivers it.
type Notifier interface {
	Notify(ctx context.Context, a model.Appointment) error
}

// LogNotifier records deliveries in the log only.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, a model.Appointment) error {
	if n.Logger != nil {
		n.Logger.Info("reminder delivered",
			zap.String("id", a.ID),
			zap.String("title", a.Title),
			zap.String("date", a.Date.String()),
			zap.String("start", a.Start.String()),
			zap.Int("invitees", len(a.Invitees)))
	}
	return nil
}

// Backend is the local appointment service: SQLite is the source of truth,
// every mutation is published on the bus, and reminders are delivered by a
// timer engine. Writes are serialized so the overlap check and the write it
// guards happen together.
type Backend struct {
	mu       sync.Mutex
	repo     storage.Repository
	bus      events.Bus
	engine   *scheduler.Engine
	syncer   *mirror.Syncer
	notifier Notifier
	logger   *zap.Logger
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(repo storage.Repository, bus events.Bus, m mirror.Mirror, notifier Notifier, logger *zap.Logger, opts Options) *Backend {
	opts.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger.Named("notifier")}
	}
	b := &Backend{
		repo:     repo,
		bus:      bus,
		engine:   scheduler.NewEngine(opts.ReminderBuffer),
		notifier: notifier,
		logger:   logger.Named("backend"),
		opts:     opts,
		ctx:      context.Background(),
	}
	b.syncer = mirror.NewSyncer(m, logger, b.setMirrorRef)
	return b
}

// Start arms every scheduled reminder found in storage and begins
// delivering them.
func (b *Backend) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})
	b.engine.Start()

	pending, err := b.repo.ScheduledReminders(ctx)
	if err != nil {
		return fmt.Errorf("backend: load reminders: %w", err)
	}
	for _, a := range pending {
		b.schedule(a)
	}
	b.logger.Info("backend started", zap.Int("pending_reminders", len(pending)))

	go b.deliverLoop()
	return nil
}

func (b *Backend) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.engine.Stop()
	if b.done != nil {
		<-b.done
	}
	b.syncer.Wait()
	return nil
}

func (b *Backend) FetchAppointments(ctx context.Context, r timerange.DateRange) ([]model.Appointment, error) {
	rows, err := b.repo.ListAppointments(ctx, storage.AppointmentFilter{Range: r})
	if err != nil {
		return nil, &model.NetworkError{Op: "fetch appointments", Err: err}
	}
	out := make([]model.Appointment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Appointment)
	}
	return out, nil
}

func (b *Backend) CheckConflict(ctx context.Context, slot timerange.TimeRange, scope conflict.Scope) ([]model.Appointment, error) {
	list, err := b.repo.Overlapping(ctx, storage.OverlapQuery{OwnerID: scope.OwnerID, Slot: slot, ExcludeID: scope.ExcludeID})
	if err != nil {
		return nil, &model.NetworkError{Op: "check conflict", Err: err}
	}
	return list, nil
}

func (b *Backend) Subscribe(ctx context.Context, handler func(model.Event)) error {
	return b.bus.Subscribe(ctx, handler)
}

func (b *Backend) CreateAppointment(ctx context.Context, d model.Draft) (model.Appointment, error) {
	if d.Repeat != "" {
		list, err := b.CreateSeries(ctx, d)
		if err != nil {
			return model.Appointment{}, err
		}
		return list[0], nil
	}
	if err := d.Validate(); err != nil {
		return model.Appointment{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkFree(ctx, d.OwnerID, d.Range(), ""); err != nil {
		return model.Appointment{}, err
	}
	row := storage.Row{Appointment: b.materialize(d, uuid.NewString())}
	if err := b.repo.CreateAppointment(ctx, row); err != nil {
		return model.Appointment{}, &model.NetworkError{Op: "create appointment", Err: err}
	}
	b.afterWrite(ctx, model.Created(row.Appointment), true)
	return row.Appointment, nil
}

func (b *Backend) UpdateAppointment(ctx context.Context, id string, d model.Draft) (model.Appointment, error) {
	if err := d.Validate(); err != nil {
		return model.Appointment{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	held, err := b.get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := b.checkFree(ctx, d.OwnerID, d.Range(), id); err != nil {
		return model.Appointment{}, err
	}

	next := d.Appointment(id)
	next.GoogleEventID = held.GoogleEventID
	next.Reminder = b.carryReminder(held.Appointment, next)
	next.Version = held.Version + 1
	next.UpdatedAt = b.opts.Now()
	row := storage.Row{Appointment: next, SeriesID: held.SeriesID, CreatedAt: held.CreatedAt}
	if err := b.repo.UpdateAppointment(ctx, row); err != nil {
		return model.Appointment{}, &model.NetworkError{Op: "update appointment", Err: err}
	}
	b.afterWrite(ctx, model.Updated(next), true)
	return next, nil
}

func (b *Backend) DeleteAppointment(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	held, err := b.get(ctx, id)
	if err != nil {
		return err
	}
	if err := b.repo.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.ErrNotFound
		}
		return &model.NetworkError{Op: "delete appointment", Err: err}
	}
	b.engine.Cancel(id)
	b.publish(ctx, model.Deleted(id))
	b.syncer.Delete(held.Appointment)
	return nil
}

// ResendReminder schedules a sent or failed reminder again, at at or now.
func (b *Backend) ResendReminder(ctx context.Context, id string, at *time.Time) (model.Reminder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	held, err := b.get(ctx, id)
	if err != nil {
		return model.Reminder{}, err
	}
	if held.Reminder == nil {
		return model.Reminder{}, reminder.ErrNoReminder
	}
	when := b.opts.Now()
	if at != nil {
		when = *at
	}
	next, err := reminder.Resend(*held.Reminder, when)
	if err != nil {
		return model.Reminder{}, err
	}
	return next, b.saveReminder(ctx, held, next)
}

func (b *Backend) RescheduleReminder(ctx context.Context, id string, value int, unit model.ReminderUnit) (model.Reminder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	held, err := b.get(ctx, id)
	if err != nil {
		return model.Reminder{}, err
	}
	next, err := reminder.Reschedule(held.Appointment, value, unit, b.opts.Location)
	if err != nil {
		return model.Reminder{}, err
	}
	return next, b.saveReminder(ctx, held, next)
}

func (b *Backend) saveReminder(ctx context.Context, held storage.Row, r model.Reminder) error {
	held.Reminder = &r
	held.Version++
	held.UpdatedAt = b.opts.Now()
	if err := b.repo.UpdateAppointment(ctx, held); err != nil {
		return &model.NetworkError{Op: "update reminder", Err: err}
	}
	b.afterWrite(ctx, model.Updated(held.Appointment), false)
	return nil
}

func (b *Backend) checkFree(ctx context.Context, owner string, slot timerange.TimeRange, excludeID string) error {
	hits, err := b.repo.Overlapping(ctx, storage.OverlapQuery{OwnerID: owner, Slot: slot, ExcludeID: excludeID})
	if err != nil {
		return &model.NetworkError{Op: "check conflict", Err: err}
	}
	if len(hits) > 0 {
		b.logger.Info("save rejected by conflict", zap.String("owner", owner), zap.String("date", slot.Date.String()), zap.Int("conflicts", len(hits)))
		return &model.ConflictError{Conflicts: hits}
	}
	return nil
}

func (b *Backend) get(ctx context.Context, id string) (storage.Row, error) {
	row, err := b.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Row{}, model.ErrNotFound
		}
		return storage.Row{}, &model.NetworkError{Op: "get appointment", Err: err}
	}
	return row, nil
}

func (b *Backend) materialize(d model.Draft, id string) model.Appointment {
	a := d.Appointment(id)
	a.Version = 1
	a.UpdatedAt = b.opts.Now()
	if a.Reminder != nil && a.Reminder.Enabled {
		if armed, err := reminder.Arm(a, b.opts.Location); err == nil {
			a.Reminder = armed
		}
	}
	return a
}

// carryReminder keeps the delivery state of an unchanged reminder and
// re-arms one whose offset or appointment time moved.
func (b *Backend) carryReminder(held, next model.Appointment) *model.Reminder {
	if next.Reminder == nil || !next.Reminder.Enabled {
		if next.Reminder != nil && held.Reminder != nil {
			if r, err := reminder.Cancel(*held.Reminder); err == nil {
				r.Enabled = false
				r.Value, r.Unit = next.Reminder.Value, next.Reminder.Unit
				return &r
			}
		}
		return next.Reminder
	}
	old := held.Reminder
	moved := old == nil || !old.Enabled || old.Value != next.Reminder.Value || old.Unit != next.Reminder.Unit ||
		held.Date != next.Date || held.Start != next.Start || held.AllDay != next.AllDay
	if !moved {
		r := *old
		return &r
	}
	if old != nil && old.Status == model.ReminderSending {
		r := *old
		return &r
	}
	armed, err := reminder.Arm(next, b.opts.Location)
	if err != nil {
		return next.Reminder
	}
	return armed
}

// afterWrite publishes ev, keeps the reminder engine in step, and mirrors
// the change.
func (b *Backend) afterWrite(ctx context.Context, ev model.Event, mirrorIt bool) {
	a := *ev.Appointment
	b.schedule(a)
	b.publish(ctx, ev)
	if mirrorIt {
		b.syncer.Upsert(a)
	}
}

func (b *Backend) schedule(a model.Appointment) {
	r := a.Reminder
	if r == nil || !r.Enabled || r.Status != model.ReminderScheduled || r.ScheduledAt == nil || !a.IsActive() {
		b.engine.Cancel(a.ID)
		return
	}
	if err := b.engine.Schedule(scheduler.Delivery{AppointmentID: a.ID, Due: *r.ScheduledAt}); err != nil {
		b.logger.Warn("reminder not scheduled", zap.String("id", a.ID), zap.Error(err))
	}
}

func (b *Backend) publish(ctx context.Context, ev model.Event) {
	if b.bus == nil {
		return
	}
	if err := b.bus.Publish(ctx, ev); err != nil {
		b.logger.Warn("publish failed", zap.String("kind", string(ev.Kind)), zap.String("id", ev.AppointmentID()), zap.Error(err))
	}
}

func (b *Backend) setMirrorRef(id, ref string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ctx := b.ctx
	held, err := b.get(ctx, id)
	if err != nil {
		return
	}
	held.GoogleEventID = ref
	held.Version++
	held.UpdatedAt = b.opts.Now()
	if err := b.repo.UpdateAppointment(ctx, held); err != nil {
		b.logger.Warn("store mirror reference failed", zap.String("id", id), zap.Error(err))
		return
	}
	b.afterWrite(ctx, model.Updated(held.Appointment), false)
}
