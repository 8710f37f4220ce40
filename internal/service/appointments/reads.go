package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salon/backend/internal/cache"
	"salon/backend/internal/domain"
)

// GetByID returns (nil, nil) when the appointment does not exist. Misses are
// not cached.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	return s.items.GetOrLoad(ctx, cache.ByID(id), func(ctx context.Context) (*domain.Appointment, bool, error) {
		a, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return a, a != nil, nil
	})
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	return s.list(ctx, cache.All(), s.repo.FindAll)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	return s.list(ctx, cache.ByCustomer(customerID), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindByCustomer(ctx, customerID)
	})
}

func (s *Service) ListByStaff(ctx context.Context, staffID uuid.UUID) ([]domain.Appointment, error) {
	return s.list(ctx, cache.ByStaff(staffID), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindByStaff(ctx, staffID)
	})
}

func (s *Service) ListByService(ctx context.Context, serviceID uuid.UUID) ([]domain.Appointment, error) {
	return s.list(ctx, cache.ByService(serviceID), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindByService(ctx, serviceID)
	})
}

func (s *Service) ListByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error) {
	if !status.Valid() {
		return nil, validationError("invalid status")
	}
	return s.list(ctx, cache.ByStatus(string(status)), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindByStatus(ctx, status)
	})
}

// ListByDateRange returns appointments starting in [from, to).
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	if !to.After(from) {
		return nil, validationError("end must be after start")
	}
	return s.list(ctx, cache.ByDateRange(from, to), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindStartingBetween(ctx, from.UTC(), to.UTC(), nil)
	})
}

// ListByDate returns appointments starting on the calendar day of day in the
// service location.
func (s *Service) ListByDate(ctx context.Context, day time.Time) ([]domain.Appointment, error) {
	from, to := s.dayBounds(day)
	return s.list(ctx, cache.ByDate(from), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindStartingBetween(ctx, from.UTC(), to.UTC(), nil)
	})
}

func (s *Service) ListByDateAndStaff(ctx context.Context, day time.Time, staffID uuid.UUID) ([]domain.Appointment, error) {
	from, to := s.dayBounds(day)
	return s.list(ctx, cache.ByDateAndStaff(from, staffID), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindStartingBetween(ctx, from.UTC(), to.UTC(), &staffID)
	})
}

// ListUpcoming returns every appointment starting from now on, whatever its
// status.
func (s *Service) ListUpcoming(ctx context.Context) ([]domain.Appointment, error) {
	return s.list(ctx, cache.Upcoming(), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindStartingBetween(ctx, s.now().UTC(), time.Time{}, nil)
	})
}

func (s *Service) ListToday(ctx context.Context) ([]domain.Appointment, error) {
	from, to := s.dayBounds(s.now())
	return s.list(ctx, cache.Today(), func(ctx context.Context) ([]domain.Appointment, error) {
		return s.repo.FindStartingBetween(ctx, from.UTC(), to.UTC(), nil)
	})
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.counts.GetOrLoad(ctx, cache.Count(), func(ctx context.Context) (int, bool, error) {
		n, err := s.repo.CountAll(ctx)
		return n, err == nil, err
	})
}

func (s *Service) CountByStatus(ctx context.Context, status domain.AppointmentStatus) (int, error) {
	if !status.Valid() {
		return 0, validationError("invalid status")
	}
	return s.counts.GetOrLoad(ctx, cache.CountByStatus(string(status)), func(ctx context.Context) (int, bool, error) {
		n, err := s.repo.CountByStatus(ctx, status)
		return n, err == nil, err
	})
}

// ClearCache drops every cached appointment read.
func (s *Service) ClearCache(ctx context.Context) {
	s.lists.Clear(ctx)
	s.log.InfoContext(ctx, "appointment cache cleared")
}

func (s *Service) list(ctx context.Context, key cache.Key, load func(context.Context) ([]domain.Appointment, error)) ([]domain.Appointment, error) {
	rows, err := s.lists.GetOrLoad(ctx, key, func(ctx context.Context) ([]domain.Appointment, bool, error) {
		rows, err := load(ctx)
		if err != nil {
			return nil, false, err
		}
		if rows == nil {
			rows = []domain.Appointment{}
		}
		return rows, true, nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// dayBounds returns the start of day's calendar day in the service location
// and the start of the next one.
func (s *Service) dayBounds(day time.Time) (time.Time, time.Time) {
	d := day.In(s.loc)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	return from, from.AddDate(0, 0, 1)
}
