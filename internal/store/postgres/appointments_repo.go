package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

var _ store.AppointmentRepository = (*AppointmentRepo)(nil)

func (r *AppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	return &appt, nil
}

func (r *AppointmentRepo) FindByStaffAndRange(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("staff_id = ?", staffID).
		Where("start_time < ?", windowEnd).
		Where("start_time + duration_minutes * INTERVAL '1 minute' > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, id uuid.UUID, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	m.ID = id
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("customer_id", "staff_id", "service_id", "start_time", "duration_minutes", "status", "notes", "updated_at").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (r *AppointmentRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
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

func (r *AppointmentRepo) CountAll(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*domain.Appointment)(nil)).Count(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (r *AppointmentRepo) CountByStatus(ctx context.Context, status domain.AppointmentStatus) (int, error) {
	n, err := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("status = ?", status).
		Count(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (r *AppointmentRepo) FindAll(ctx context.Context) ([]domain.Appointment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

func (r *AppointmentRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("customer_id = ?", customerID)
	})
}

func (r *AppointmentRepo) FindByStaff(ctx context.Context, staffID uuid.UUID) ([]domain.Appointment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("staff_id = ?", staffID)
	})
}

func (r *AppointmentRepo) FindByService(ctx context.Context, serviceID uuid.UUID) ([]domain.Appointment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("service_id = ?", serviceID)
	})
}

func (r *AppointmentRepo) FindByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("status = ?", status)
	})
}

func (r *AppointmentRepo) FindStartingBetween(ctx context.Context, from, to time.Time, staffID *uuid.UUID) ([]domain.Appointment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("start_time >= ?", from)
		if !to.IsZero() {
			q = q.Where("start_time < ?", to)
		}
		if staffID != nil {
			q = q.Where("staff_id = ?", *staffID)
		}
		return q
	})
}

func (r *AppointmentRepo) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := filter(r.db.NewSelect().Model(&rows)).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// mapError translates driver failures into store errors. Connection-level
// failures become store.ErrUnavailable; unique violations become
// store.ErrConflict. Everything else is returned as is.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrConflict
	}
	return err
}
