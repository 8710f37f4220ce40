package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,notnull" json:"email"`
	Phone     string    `bun:"phone" json:"phone"`
	Address   string    `bun:"address" json:"address"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type Staff struct {
	bun.BaseModel `bun:"table:staff"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Email       string    `bun:"email,notnull" json:"email"`
	Phone       string    `bun:"phone" json:"phone"`
	Role        string    `bun:"role" json:"role"`
	Specialties []string  `bun:"specialties,array" json:"specialties"`
	IsActive    bool      `bun:"is_active,notnull" json:"is_active"`
	HireDate    time.Time `bun:"hire_date" json:"hire_date"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Service is a bookable salon service. DurationMinutes is copied onto each
// appointment when it is booked.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	Description     string    `bun:"description" json:"description"`
	Price           float64   `bun:"price,notnull" json:"price"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"duration_minutes"`
	Category        string    `bun:"category" json:"category"`
	IsActive        bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (c *Customer) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *Staff) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func stampModel(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			v, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*id = v
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
