// Package appointments admits, changes and removes salon appointments. Every
// write runs reference validation, a per staff conflict check and the store
// write, then drops the cache keys the write may have made stale.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"salon/backend/internal/cache"
	"salon/backend/internal/domain"
	"salon/backend/internal/events"
	"salon/backend/internal/store"
)

const CacheNamespace = "appointments"

const tracerName = "salon/backend/internal/service/appointments"

type Options struct {
	// Cache carries TTLs; its Namespace is replaced with CacheNamespace.
	Cache cache.Options
	// Location decides calendar days for date and today reads. Defaults to UTC.
	Location  *time.Location
	Now       func() time.Time
	Publisher events.Publisher
	Logger    *slog.Logger
}

type Service struct {
	repo      store.AppointmentRepository
	validator *Validator
	detector  *Detector
	locks     *staffLocks
	publisher events.Publisher

	// All three views share CacheNamespace, so a Delete or Clear through any
	// of them reaches every family.
	items  *cache.Cache[*domain.Appointment]
	lists  *cache.Cache[[]domain.Appointment]
	counts *cache.Cache[int]

	now    func() time.Time
	loc    *time.Location
	log    *slog.Logger
	tracer trace.Tracer
}

func NewService(repo store.AppointmentRepository, lookup ReferenceLookup, backend cache.Backend, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	cacheOpts := opts.Cache
	cacheOpts.Namespace = CacheNamespace
	if cacheOpts.Logger == nil {
		cacheOpts.Logger = log
	}

	return &Service{
		repo:      repo,
		validator: NewValidator(lookup),
		detector:  NewDetector(repo),
		locks:     newStaffLocks(),
		publisher: opts.Publisher,
		items:     cache.New[*domain.Appointment](backend, cacheOpts),
		lists:     cache.New[[]domain.Appointment](backend, cacheOpts),
		counts:    cache.New[int](backend, cacheOpts),
		now:       opts.Now,
		loc:       opts.Location,
		log:       log.With(slog.String("component", "appointments")),
		tracer:    otel.Tracer(tracerName),
	}
}

type CreateInput struct {
	CustomerID uuid.UUID
	StaffID    uuid.UUID
	ServiceID  uuid.UUID
	StartTime  time.Time
	// Status defaults to SCHEDULED.
	Status domain.AppointmentStatus
	Notes  string
}

// UpdateInput is a partial update; nil fields keep their current value.
type UpdateInput struct {
	CustomerID *uuid.UUID
	StaffID    *uuid.UUID
	ServiceID  *uuid.UUID
	StartTime  *time.Time
	Status     *domain.AppointmentStatus
	Notes      *string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Create")
	defer span.End()

	if in.CustomerID == uuid.Nil {
		return domain.Appointment{}, validationError("customer_id is required")
	}
	if in.StaffID == uuid.Nil {
		return domain.Appointment{}, validationError("staff_id is required")
	}
	if in.ServiceID == uuid.Nil {
		return domain.Appointment{}, validationError("service_id is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}
	start := in.StartTime.UTC()
	if !start.After(s.now()) {
		return domain.Appointment{}, validationError("start_time must be in the future")
	}
	status := in.Status
	if status == "" {
		status = domain.StatusScheduled
	}
	if !status.Valid() {
		return domain.Appointment{}, validationError("invalid status")
	}
	if err := validateNotes(in.Notes); err != nil {
		return domain.Appointment{}, err
	}

	op := s.begin(ctx, span, "create")

	op.enter(stateValidatingRefs)
	service, err := s.validator.ValidateReferences(ctx, in.CustomerID, in.StaffID, in.ServiceID)
	if err != nil {
		return domain.Appointment{}, op.fail(err)
	}

	var saved domain.Appointment
	err = s.withStaffLock(ctx, func() error {
		op.enter(stateCheckingConflict)
		if err := s.checkConflict(ctx, in.StaffID, start, service.DurationMinutes, nil); err != nil {
			return err
		}

		op.enter(statePersisting)
		var err error
		saved, err = s.repo.Insert(ctx, domain.Appointment{
			CustomerID:      in.CustomerID,
			StaffID:         in.StaffID,
			ServiceID:       in.ServiceID,
			StartTime:       start,
			DurationMinutes: service.DurationMinutes,
			Status:          status,
			Notes:           in.Notes,
		})
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		op.enter(stateInvalidatingCache)
		s.invalidate(ctx, nil, &saved)
		return nil
	}, in.StaffID)
	if err != nil {
		return domain.Appointment{}, op.fail(err)
	}
	span.SetAttributes(attribute.String("appointment.id", saved.ID.String()))

	op.done()
	s.publish(ctx, events.AppointmentCreated, saved, nil)
	return saved, nil
}

// Update applies in to the appointment with the given id. It returns
// (nil, nil) when the appointment does not exist.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Update",
		trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	if in.Status != nil && !in.Status.Valid() {
		return nil, validationError("invalid status")
	}
	if in.Notes != nil {
		if err := validateNotes(*in.Notes); err != nil {
			return nil, err
		}
	}
	if in.StartTime != nil && in.StartTime.IsZero() {
		return nil, validationError("start_time is required")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	next := *existing
	customerChanged := in.CustomerID != nil && *in.CustomerID != existing.CustomerID
	staffChanged := in.StaffID != nil && *in.StaffID != existing.StaffID
	serviceChanged := in.ServiceID != nil && *in.ServiceID != existing.ServiceID
	startChanged := in.StartTime != nil && !in.StartTime.Equal(existing.StartTime)

	if startChanged && !in.StartTime.After(s.now()) {
		return nil, validationError("start_time must be in the future")
	}

	op := s.begin(ctx, span, "update")

	op.enter(stateValidatingRefs)
	if customerChanged {
		if err := s.validator.ValidateCustomer(ctx, *in.CustomerID); err != nil {
			return nil, op.fail(err)
		}
		next.CustomerID = *in.CustomerID
	}
	if staffChanged {
		if err := s.validator.ValidateStaff(ctx, *in.StaffID); err != nil {
			return nil, op.fail(err)
		}
		next.StaffID = *in.StaffID
	}
	var service *domain.Service
	if serviceChanged {
		if service, err = s.validator.ValidateService(ctx, *in.ServiceID); err != nil {
			return nil, op.fail(err)
		}
		next.ServiceID = *in.ServiceID
	}
	if startChanged {
		next.StartTime = in.StartTime.UTC()
	}
	if in.Status != nil {
		next.Status = *in.Status
	}
	if in.Notes != nil {
		next.Notes = *in.Notes
	}

	recheck := staffChanged || startChanged || serviceChanged
	if recheck && service == nil {
		if service, err = s.validator.ValidateService(ctx, next.ServiceID); err != nil {
			return nil, op.fail(err)
		}
	}
	if service != nil {
		next.DurationMinutes = service.DurationMinutes
	}

	var (
		updated domain.Appointment
		gone    bool
	)
	err = s.withStaffLock(ctx, func() error {
		if recheck {
			op.enter(stateCheckingConflict)
			if err := s.checkConflict(ctx, next.StaffID, next.StartTime, next.DurationMinutes, &id); err != nil {
				return err
			}
		}

		op.enter(statePersisting)
		next.UpdatedAt = s.now().UTC()
		var err error
		updated, err = s.repo.Update(ctx, id, next)
		if errors.Is(err, store.ErrNotFound) {
			gone = true
			return err
		}
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		op.enter(stateInvalidatingCache)
		s.invalidate(ctx, existing, &updated)
		return nil
	}, existing.StaffID, next.StaffID)
	if err != nil {
		op.fail(err)
		if gone {
			return nil, nil
		}
		return nil, err
	}

	op.done()
	s.publish(ctx, events.AppointmentUpdated, updated, existing)
	return &updated, nil
}

// Delete removes the appointment and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Delete",
		trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("find appointment: %w", err)
	}
	if existing == nil {
		return false, nil
	}

	op := s.begin(ctx, span, "delete")

	op.enter(statePersisting)
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			op.fail(err)
			return false, nil
		}
		return false, op.fail(fmt.Errorf("delete appointment: %w", err))
	}

	op.enter(stateInvalidatingCache)
	s.invalidate(ctx, existing, nil)

	op.done()
	s.publish(ctx, events.AppointmentDeleted, *existing, nil)
	return true, nil
}

// withStaffLock runs fn while holding the locks of staffIDs. Events are
// published only after it returns.
func (s *Service) withStaffLock(ctx context.Context, fn func() error, staffIDs ...uuid.UUID) error {
	unlock, err := s.locks.Lock(ctx, staffIDs...)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (s *Service) checkConflict(ctx context.Context, staffID uuid.UUID, start time.Time, durationMinutes int, exclude *uuid.UUID) error {
	conflicts, err := s.detector.Conflicts(ctx, staffID, start, durationMinutes, exclude)
	if err != nil {
		return fmt.Errorf("check conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		s.log.InfoContext(ctx, "scheduling conflict",
			slog.String("staff_id", staffID.String()),
			slog.Time("start_time", start),
			slog.Int("duration_minutes", durationMinutes),
			slog.String("conflicting_id", conflicts[0].ID.String()),
		)
		return ErrSchedulingConflict
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, before, after *domain.Appointment) {
	keys := invalidationKeys(before, after)
	s.lists.Delete(ctx, keys...)
	s.log.DebugContext(ctx, "cache invalidated", slog.Int("keys", len(keys)))
}

// publish is best effort: the store already holds the write.
func (s *Service) publish(ctx context.Context, t events.Type, appt domain.Appointment, previous *domain.Appointment) {
	ev := events.NewAppointmentEvent(t, appt, previous, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "event publish failed",
			slog.String("event_type", string(t)),
			slog.String("appointment_id", appt.ID.String()),
			slog.Any("err", err),
		)
	}
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > domain.MaxNotesLength {
		return validationError(fmt.Sprintf("notes must be at most %d characters", domain.MaxNotesLength))
	}
	return nil
}

type opState string

const (
	stateValidatingRefs    opState = "VALIDATING_REFS"
	stateCheckingConflict  opState = "CHECKING_CONFLICT"
	statePersisting        opState = "PERSISTING"
	stateInvalidatingCache opState = "INVALIDATING_CACHE"
	stateDone              opState = "DONE"
	stateFailed            opState = "FAILED"
)

// operation traces one write through its states as debug logs and span
// events.
type operation struct {
	ctx   context.Context
	name  string
	state opState
	span  trace.Span
	log   *slog.Logger
}

func (s *Service) begin(ctx context.Context, span trace.Span, name string) *operation {
	return &operation{ctx: ctx, name: name, span: span, log: s.log}
}

func (o *operation) enter(st opState) {
	o.state = st
	o.span.AddEvent(string(st))
	o.log.DebugContext(o.ctx, "appointment operation", slog.String("op", o.name), slog.String("state", string(st)))
}

func (o *operation) done() {
	o.enter(stateDone)
}

func (o *operation) fail(err error) error {
	from := o.state
	o.state = stateFailed
	o.span.AddEvent(string(stateFailed), trace.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("reason", err.Error()),
	))
	if !isBusinessError(err) {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.log.DebugContext(o.ctx, "appointment operation",
		slog.String("op", o.name),
		slog.String("state", string(stateFailed)),
		slog.String("from", string(from)),
		slog.Any("err", err),
	)
	return err
}

func isBusinessError(err error) bool {
	var refErr *ReferenceNotFoundError
	var vErr *ValidationError
	return errors.Is(err, ErrSchedulingConflict) || errors.As(err, &refErr) || errors.As(err, &vErr)
}
