package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

// CatalogRepo stores the customers, staff and services that appointments
// reference.
type CatalogRepo struct {
	db *bun.DB
}

func NewCatalogRepo(db *bun.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

var (
	_ store.CustomerRepository = (*CatalogRepo)(nil)
	_ store.StaffRepository    = (*CatalogRepo)(nil)
	_ store.ServiceRepository  = (*CatalogRepo)(nil)
)

func (r *CatalogRepo) FindCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var c domain.Customer
	if err := r.findByID(ctx, &c, id); err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *CatalogRepo) SaveCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	m := c
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("phone = EXCLUDED.phone").
		Set("address = EXCLUDED.address").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Customer{}, mapError(err)
	}
	return m, nil
}

func (r *CatalogRepo) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, (*domain.Customer)(nil), id)
}

func (r *CatalogRepo) FindStaff(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	var s domain.Staff
	if err := r.findByID(ctx, &s, id); err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *CatalogRepo) SaveStaff(ctx context.Context, s domain.Staff) (domain.Staff, error) {
	m := s
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("phone = EXCLUDED.phone").
		Set("role = EXCLUDED.role").
		Set("specialties = EXCLUDED.specialties").
		Set("is_active = EXCLUDED.is_active").
		Set("hire_date = EXCLUDED.hire_date").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Staff{}, mapError(err)
	}
	return m, nil
}

func (r *CatalogRepo) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, (*domain.Staff)(nil), id)
}

func (r *CatalogRepo) FindService(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	var s domain.Service
	if err := r.findByID(ctx, &s, id); err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *CatalogRepo) SaveService(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := s
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("price = EXCLUDED.price").
		Set("duration_minutes = EXCLUDED.duration_minutes").
		Set("category = EXCLUDED.category").
		Set("is_active = EXCLUDED.is_active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Service{}, mapError(err)
	}
	return m, nil
}

func (r *CatalogRepo) DeleteService(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, (*domain.Service)(nil), id)
}

// findByID leaves model untouched when no row matches.
func (r *CatalogRepo) findByID(ctx context.Context, model any, id uuid.UUID) error {
	err := r.db.NewSelect().
		Model(model).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return mapError(err)
	}
	return nil
}

func (r *CatalogRepo) deleteByID(ctx context.Context, model any, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model(model).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
