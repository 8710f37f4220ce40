package store

import (
	"context"

	"github.com/google/uuid"

	"salon/backend/internal/domain"
)

// Find* methods return (nil, nil) when the row does not exist.

type CustomerRepository interface {
	FindCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	SaveCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
}

type StaffRepository interface {
	FindStaff(ctx context.Context, id uuid.UUID) (*domain.Staff, error)
	SaveStaff(ctx context.Context, s domain.Staff) (domain.Staff, error)
	DeleteStaff(ctx context.Context, id uuid.UUID) error
}

type ServiceRepository interface {
	FindService(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	SaveService(ctx context.Context, s domain.Service) (domain.Service, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
}
