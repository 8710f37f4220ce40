package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const MaxNotesLength = 500

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "SCHEDULED"
	StatusConfirmed  AppointmentStatus = "CONFIRMED"
	StatusInProgress AppointmentStatus = "IN_PROGRESS"
	StatusCompleted  AppointmentStatus = "COMPLETED"
	StatusCancelled  AppointmentStatus = "CANCELLED"
	StatusNoShow     AppointmentStatus = "NO_SHOW"
)

var AppointmentStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// Valid reports whether s is a known status. Any valid status may replace any
// other; there is no transition graph.
func (s AppointmentStatus) Valid() bool {
	for _, v := range AppointmentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	CustomerID      uuid.UUID         `bun:"customer_id,type:uuid,notnull" json:"customer_id"`
	StaffID         uuid.UUID         `bun:"staff_id,type:uuid,notnull" json:"staff_id"`
	ServiceID       uuid.UUID         `bun:"service_id,type:uuid,notnull" json:"service_id"`
	StartTime       time.Time         `bun:"start_time,notnull" json:"start_time"`
	DurationMinutes int               `bun:"duration_minutes,notnull" json:"duration_minutes"`
	Status          AppointmentStatus `bun:"status,notnull" json:"status"`
	Notes           string            `bun:"notes" json:"notes"`
	CreatedAt       time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// EndTime is the exclusive end of the appointment's interval.
func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether a intersects the half-open interval [start, end).
// Intervals that only touch at a boundary do not overlap.
func (a Appointment) Overlaps(start, end time.Time) bool {
	if a.DurationMinutes <= 0 || !end.After(start) {
		return false
	}
	return a.StartTime.Before(end) && a.EndTime().After(start)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	}
	return nil
}
