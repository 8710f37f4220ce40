// Package events publishes appointment lifecycle notifications after a write
// has been committed to the store.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salon/backend/internal/domain"
)

type Type string

const (
	AppointmentCreated Type = "appointment.created.v1"
	AppointmentUpdated Type = "appointment.updated.v1"
	AppointmentDeleted Type = "appointment.deleted.v1"
)

// AppointmentEvent is the JSON payload of every appointment event. Previous is
// set on updates only.
type AppointmentEvent struct {
	EventID     string              `json:"event_id"`
	Type        Type                `json:"event_type"`
	OccurredAt  time.Time           `json:"occurred_at"`
	Appointment domain.Appointment  `json:"appointment"`
	Previous    *domain.Appointment `json:"previous,omitempty"`
}

func NewAppointmentEvent(t Type, appt domain.Appointment, previous *domain.Appointment, now time.Time) AppointmentEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return AppointmentEvent{
		EventID:     id.String(),
		Type:        t,
		OccurredAt:  now.UTC(),
		Appointment: appt,
		Previous:    previous,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev AppointmentEvent) error
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, AppointmentEvent) error { return nil }
