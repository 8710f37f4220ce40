package appointments

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"salon/backend/internal/cache"
	"salon/backend/internal/domain"
	"salon/backend/internal/events"
	"salon/backend/internal/store"
)

// memRepo is an in-memory store.AppointmentRepository. The err fields make a
// method fail before touching data.
type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Appointment

	rangeQueries int
	inserts      int

	findByIDErr error
	rangeErr    error
	insertErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]domain.Appointment)}
}

var _ store.AppointmentRepository = (*memRepo)(nil)

func (r *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findByIDErr != nil {
		return nil, r.findByIDErr
	}
	a, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memRepo) FindByStaffAndRange(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rangeQueries++
	if r.rangeErr != nil {
		return nil, r.rangeErr
	}
	return r.filter(func(a domain.Appointment) bool {
		return a.StaffID == staffID && a.StartTime.Before(windowEnd) && a.EndTime().After(windowStart)
	}), nil
}

func (r *memRepo) Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return domain.Appointment{}, r.insertErr
	}
	appt.ID = uuid.New()
	appt.CreatedAt = time.Now().UTC()
	appt.UpdatedAt = appt.CreatedAt
	r.rows[appt.ID] = appt
	r.inserts++
	return appt, nil
}

func (r *memRepo) Update(ctx context.Context, id uuid.UUID, appt domain.Appointment) (domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	appt.ID = id
	r.rows[id] = appt
	return appt, nil
}

func (r *memRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) CountAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}

func (r *memRepo) CountByStatus(ctx context.Context, status domain.AppointmentStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filter(func(a domain.Appointment) bool { return a.Status == status })), nil
}

func (r *memRepo) FindAll(ctx context.Context) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(domain.Appointment) bool { return true }), nil
}

func (r *memRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a domain.Appointment) bool { return a.CustomerID == customerID }), nil
}

func (r *memRepo) FindByStaff(ctx context.Context, staffID uuid.UUID) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a domain.Appointment) bool { return a.StaffID == staffID }), nil
}

func (r *memRepo) FindByService(ctx context.Context, serviceID uuid.UUID) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a domain.Appointment) bool { return a.ServiceID == serviceID }), nil
}

func (r *memRepo) FindByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a domain.Appointment) bool { return a.Status == status }), nil
}

func (r *memRepo) FindStartingBetween(ctx context.Context, from, to time.Time, staffID *uuid.UUID) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a domain.Appointment) bool {
		if a.StartTime.Before(from) {
			return false
		}
		if !to.IsZero() && !a.StartTime.Before(to) {
			return false
		}
		return staffID == nil || a.StaffID == *staffID
	}), nil
}

func (r *memRepo) filter(keep func(domain.Appointment) bool) []domain.Appointment {
	var out []domain.Appointment
	for _, a := range r.rows {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// fakeLookup serves fixed catalog entries. Maps are read only after setup.
type fakeLookup struct {
	customers map[uuid.UUID]domain.Customer
	staff     map[uuid.UUID]domain.Staff
	services  map[uuid.UUID]domain.Service
	err       error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		customers: map[uuid.UUID]domain.Customer{},
		staff:     map[uuid.UUID]domain.Staff{},
		services:  map[uuid.UUID]domain.Service{},
	}
}

func (f *fakeLookup) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeLookup) GetStaff(ctx context.Context, id uuid.UUID) (*domain.Staff, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.staff[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeLookup) GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.services[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AppointmentEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// fixture is a salon with one customer, two staff members and two services
// of 60 and 30 minutes. The clock reads 2025-01-14 09:00 UTC.
type fixture struct {
	svc       *Service
	repo      *memRepo
	lookup    *fakeLookup
	backend   *cache.MemoryBackend
	publisher *recordingPublisher

	now time.Time

	customer  uuid.UUID
	staff1    uuid.UUID
	staff2    uuid.UUID
	haircut   uuid.UUID // 60 minutes
	blowDry   uuid.UUID // 30 minutes
	consult   uuid.UUID // zero duration
	unknownID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:      newMemRepo(),
		lookup:    newFakeLookup(),
		publisher: &recordingPublisher{},
		now:       time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC),
		customer:  uuid.New(),
		staff1:    uuid.New(),
		staff2:    uuid.New(),
		haircut:   uuid.New(),
		blowDry:   uuid.New(),
		consult:   uuid.New(),
		unknownID: uuid.New(),
	}
	f.lookup.customers[f.customer] = domain.Customer{ID: f.customer, Name: "Dana"}
	f.lookup.staff[f.staff1] = domain.Staff{ID: f.staff1, Name: "S1", IsActive: true}
	f.lookup.staff[f.staff2] = domain.Staff{ID: f.staff2, Name: "S2", IsActive: true}
	f.lookup.services[f.haircut] = domain.Service{ID: f.haircut, Name: "Haircut", DurationMinutes: 60}
	f.lookup.services[f.blowDry] = domain.Service{ID: f.blowDry, Name: "Blow dry", DurationMinutes: 30}
	f.lookup.services[f.consult] = domain.Service{ID: f.consult, Name: "Consultation", DurationMinutes: 0}

	backend, err := cache.NewMemoryBackend(cache.DefaultMaxKeys)
	if err != nil {
		t.Fatalf("NewMemoryBackend error: %v", err)
	}
	f.backend = backend

	f.svc = NewService(f.repo, f.lookup, backend, Options{
		Now:       func() time.Time { return f.now },
		Publisher: f.publisher,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) create(t *testing.T, staffID, serviceID uuid.UUID, start time.Time) (domain.Appointment, error) {
	t.Helper()
	return f.svc.Create(context.Background(), CreateInput{
		CustomerID: f.customer,
		StaffID:    staffID,
		ServiceID:  serviceID,
		StartTime:  start,
	})
}

func (f *fixture) cacheKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.backend.Keys(context.Background(), CacheNamespace+":")
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	sort.Strings(keys)
	return keys
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 1, 15, hour, minute, 0, 0, time.UTC)
}

// stallingPublisher blocks the first Publish call until release is closed
// and lets later calls through.
type stallingPublisher struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func newStallingPublisher() *stallingPublisher {
	return &stallingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *stallingPublisher) Publish(ctx context.Context, ev events.AppointmentEvent) error {
	p.mu.Lock()
	p.calls++
	first := p.calls == 1
	p.mu.Unlock()
	if !first {
		return nil
	}
	close(p.entered)
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// usePublisher rebuilds the service under test around p.
func (f *fixture) usePublisher(p events.Publisher) {
	f.svc = NewService(f.repo, f.lookup, f.backend, Options{
		Now:       func() time.Time { return f.now },
		Publisher: p,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}
