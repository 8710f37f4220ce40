package appointments

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"salon/backend/internal/domain"
)

// ReferenceLookup resolves the entities an appointment points at. Each method
// returns (nil, nil) when the entity does not exist.
type ReferenceLookup interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*domain.Staff, error)
	GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error)
}

type Validator struct {
	lookup ReferenceLookup
}

func NewValidator(lookup ReferenceLookup) *Validator {
	return &Validator{lookup: lookup}
}

// ValidateReferences checks all three references and returns the resolved
// service. The lookups run concurrently but a missing customer is reported
// before a missing staff member, and a missing staff member before a missing
// service.
func (v *Validator) ValidateReferences(ctx context.Context, customerID, staffID, serviceID uuid.UUID) (*domain.Service, error) {
	var (
		customer *domain.Customer
		staff    *domain.Staff
		service  *domain.Service
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customer, err = v.lookup.GetCustomer(gctx, customerID)
		return err
	})
	g.Go(func() error {
		var err error
		staff, err = v.lookup.GetStaff(gctx, staffID)
		return err
	})
	g.Go(func() error {
		var err error
		service, err = v.lookup.GetService(gctx, serviceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case customer == nil:
		return nil, &ReferenceNotFoundError{Kind: ReferenceCustomer, ID: customerID}
	case staff == nil:
		return nil, &ReferenceNotFoundError{Kind: ReferenceStaff, ID: staffID}
	case service == nil:
		return nil, &ReferenceNotFoundError{Kind: ReferenceService, ID: serviceID}
	}
	return service, nil
}

func (v *Validator) ValidateCustomer(ctx context.Context, id uuid.UUID) error {
	c, err := v.lookup.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return &ReferenceNotFoundError{Kind: ReferenceCustomer, ID: id}
	}
	return nil
}

func (v *Validator) ValidateStaff(ctx context.Context, id uuid.UUID) error {
	s, err := v.lookup.GetStaff(ctx, id)
	if err != nil {
		return err
	}
	if s == nil {
		return &ReferenceNotFoundError{Kind: ReferenceStaff, ID: id}
	}
	return nil
}

func (v *Validator) ValidateService(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	s, err := v.lookup.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &ReferenceNotFoundError{Kind: ReferenceService, ID: id}
	}
	return s, nil
}
