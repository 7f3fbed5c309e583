package backend

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/reminder"
	"github.com/yigitselcuk/apptcal/internal/scheduler"
)

var errAppointmentInactive = errors.New("backend: appointment is no longer active")

func (b *Backend) deliverLoop() {
	defer close(b.done)
	for {
		select {
		case d, ok := <-b.engine.C():
			if !ok {
				return
			}
			b.deliver(b.ctx, d)
		case <-b.ctx.Done():
			return
		}
	}
}

// deliver walks one reminder through sending to sent or failed. A delivery
// whose due time no longer matches the stored reminder has been superseded
// and is ignored.
func (b *Backend) deliver(ctx context.Context, d scheduler.Delivery) {
	b.mu.Lock()
	held, err := b.get(ctx, d.AppointmentID)
	if err != nil {
		b.mu.Unlock()
		b.logger.Debug("reminder target gone", zap.String("id", d.AppointmentID), zap.Error(err))
		return
	}
	r := held.Reminder
	if r == nil || r.Status != model.ReminderScheduled || r.ScheduledAt == nil || !r.ScheduledAt.Equal(d.Due) {
		b.mu.Unlock()
		return
	}
	sending, err := reminder.Begin(*r)
	if err == nil {
		err = b.saveReminder(ctx, held, sending)
	}
	b.mu.Unlock()
	if err != nil {
		b.logger.Warn("reminder not started", zap.String("id", d.AppointmentID), zap.Error(err))
		return
	}

	var sendErr error
	if !held.IsActive() {
		sendErr = errAppointmentInactive
	} else {
		sendErr = b.notifier.Notify(ctx, held.Appointment)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	held, err = b.get(ctx, d.AppointmentID)
	if err != nil || held.Reminder == nil {
		return
	}
	var final model.Reminder
	if sendErr != nil {
		final, err = reminder.Fail(*held.Reminder, sendErr)
	} else {
		final, err = reminder.Complete(*held.Reminder, b.opts.Now())
	}
	if err != nil {
		b.logger.Warn("reminder transition rejected", zap.String("id", d.AppointmentID), zap.Error(err))
		return
	}
	if err := b.saveReminder(ctx, held, final); err != nil {
		b.logger.Warn("reminder result not stored", zap.String("id", d.AppointmentID), zap.Error(err))
		return
	}
	b.logger.Info("reminder finished", zap.String("id", d.AppointmentID), zap.String("status", string(final.Status)))
}
