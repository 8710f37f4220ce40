// Package catalog serves the customer, staff and service lookups that
// appointment scheduling validates against. Each entity type has its own cache
// namespace, and writes here never touch appointment keys.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"salon/backend/internal/cache"
	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

const (
	NamespaceCustomers = "customers"
	NamespaceStaff     = "staff"
	NamespaceServices  = "services"
)

type Repository interface {
	store.CustomerRepository
	store.StaffRepository
	store.ServiceRepository
}

type Service struct {
	repo Repository
	log  *slog.Logger

	customers *cache.Cache[*domain.Customer]
	staff     *cache.Cache[*domain.Staff]
	services  *cache.Cache[*domain.Service]
}

// NewService builds the catalog over repo. opts.Namespace is ignored; each
// entity type gets a fixed namespace on backend.
func NewService(repo Repository, backend cache.Backend, opts cache.Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	withNS := func(ns string) cache.Options {
		o := opts
		o.Namespace = ns
		return o
	}
	return &Service{
		repo:      repo,
		log:       log.With(slog.String("component", "catalog")),
		customers: cache.New[*domain.Customer](backend, withNS(NamespaceCustomers)),
		staff:     cache.New[*domain.Staff](backend, withNS(NamespaceStaff)),
		services:  cache.New[*domain.Service](backend, withNS(NamespaceServices)),
	}
}

// GetCustomer returns (nil, nil) when the customer does not exist. Absent
// results are not cached.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return lookup(ctx, s.customers, id, s.repo.FindCustomer)
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	return lookup(ctx, s.staff, id, s.repo.FindStaff)
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	return lookup(ctx, s.services, id, s.repo.FindService)
}

func (s *Service) SaveCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	// A zero UpdatedAt is stamped by the model hook on upsert.
	c.UpdatedAt = time.Time{}
	saved, err := s.repo.SaveCustomer(ctx, c)
	if err != nil {
		return domain.Customer{}, err
	}
	s.customers.Delete(ctx, cache.ByID(saved.ID), cache.All())
	s.log.Debug("customer saved", slog.String("customer_id", saved.ID.String()))
	return saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.customers.Delete(ctx, cache.ByID(id), cache.All())
	return nil
}

func (s *Service) SaveStaff(ctx context.Context, st domain.Staff) (domain.Staff, error) {
	st.UpdatedAt = time.Time{}
	saved, err := s.repo.SaveStaff(ctx, st)
	if err != nil {
		return domain.Staff{}, err
	}
	s.staff.Delete(ctx, cache.ByID(saved.ID), cache.All())
	s.log.Debug("staff saved", slog.String("staff_id", saved.ID.String()))
	return saved, nil
}

func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteStaff(ctx, id); err != nil {
		return err
	}
	s.staff.Delete(ctx, cache.ByID(id), cache.All())
	return nil
}

func (s *Service) SaveService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	svc.UpdatedAt = time.Time{}
	saved, err := s.repo.SaveService(ctx, svc)
	if err != nil {
		return domain.Service{}, err
	}
	s.services.Delete(ctx, cache.ByID(saved.ID), cache.All())
	s.log.Debug("service saved", slog.String("service_id", saved.ID.String()))
	return saved, nil
}

func (s *Service) DeleteService(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteService(ctx, id); err != nil {
		return err
	}
	s.services.Delete(ctx, cache.ByID(id), cache.All())
	return nil
}

func lookup[T any](ctx context.Context, c *cache.Cache[*T], id uuid.UUID, find func(context.Context, uuid.UUID) (*T, error)) (*T, error) {
	return c.GetOrLoad(ctx, cache.ByID(id), func(ctx context.Context) (*T, bool, error) {
		v, err := find(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return v, v != nil, nil
	})
}
