package appointments

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type ReferenceKind string

const (
	ReferenceCustomer ReferenceKind = "customer"
	ReferenceStaff    ReferenceKind = "staff"
	ReferenceService  ReferenceKind = "service"
)

// ReferenceNotFoundError rejects a write whose customer, staff member or
// service does not exist.
type ReferenceNotFoundError struct {
	Kind ReferenceKind
	ID   uuid.UUID
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ErrSchedulingConflict is returned when the staff member already has an
// appointment overlapping the requested slot. The caller has to pick another
// time; the write is never retried.
var ErrSchedulingConflict = errors.New("staff member already has an appointment in this time slot")
