package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salon/backend/internal/domain"
)

// AppointmentRepository is the persistent side of scheduling. FindByID returns
// (nil, nil) when the appointment does not exist.
type AppointmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
	// FindByStaffAndRange returns the staff member's appointments whose
	// interval intersects [windowStart, windowEnd).
	FindByStaffAndRange(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, appt domain.Appointment) (domain.Appointment, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status domain.AppointmentStatus) (int, error)

	FindAll(ctx context.Context) ([]domain.Appointment, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error)
	FindByStaff(ctx context.Context, staffID uuid.UUID) ([]domain.Appointment, error)
	FindByService(ctx context.Context, serviceID uuid.UUID) ([]domain.Appointment, error)
	FindByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error)
	// FindStartingBetween returns appointments whose start time lies in
	// [from, to), optionally restricted to one staff member. A zero to leaves
	// the range open ended.
	FindStartingBetween(ctx context.Context, from, to time.Time, staffID *uuid.UUID) ([]domain.Appointment, error)
}
