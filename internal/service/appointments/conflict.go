package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salon/backend/internal/domain"
)

// StaffSchedule is the store query the detector relies on.
type StaffSchedule interface {
	FindByStaffAndRange(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

// Detector finds double bookings of a staff member. Intervals are half-open,
// so an appointment ending at T never conflicts with one starting at T.
type Detector struct {
	schedule StaffSchedule
}

func NewDetector(schedule StaffSchedule) *Detector {
	return &Detector{schedule: schedule}
}

// Conflicts returns the staff member's appointments overlapping
// [start, start+durationMinutes), skipping exclude when it is set. A
// non-positive duration is an empty interval and never reaches the store.
func (d *Detector) Conflicts(ctx context.Context, staffID uuid.UUID, start time.Time, durationMinutes int, exclude *uuid.UUID) ([]domain.Appointment, error) {
	if durationMinutes <= 0 {
		return nil, nil
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	candidates, err := d.schedule.FindByStaffAndRange(ctx, staffID, start, end)
	if err != nil {
		return nil, err
	}

	var out []domain.Appointment
	for _, a := range candidates {
		if exclude != nil && a.ID == *exclude {
			continue
		}
		if a.StaffID != staffID || !a.Overlaps(start, end) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (d *Detector) HasConflict(ctx context.Context, staffID uuid.UUID, start time.Time, durationMinutes int, exclude *uuid.UUID) (bool, error) {
	conflicts, err := d.Conflicts(ctx, staffID, start, durationMinutes, exclude)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}
