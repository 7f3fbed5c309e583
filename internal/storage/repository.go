package storage

import (
	"context"
	"errors"

	"github.com/yigitselcuk/apptcal/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateAppointment(ctx context.Context, in Row) error
	CreateAppointments(ctx context.Context, in []Row) error
	GetAppointment(ctx context.Context, id string) (Row, error)
	UpdateAppointment(ctx context.Context, in Row) error
	DeleteAppointment(ctx context.Context, id string) error
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Row, error)

	Overlapping(ctx context.Context, q OverlapQuery) ([]model.Appointment, error)
	ScheduledReminders(ctx context.Context) ([]model.Appointment, error)
}
