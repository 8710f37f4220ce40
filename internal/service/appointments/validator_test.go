package appointments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"salon/backend/internal/domain"
)

func TestValidator_ReturnsResolvedService(t *testing.T) {
	lookup := newFakeLookup()
	c, s, svc := uuid.New(), uuid.New(), uuid.New()
	lookup.customers[c] = domain.Customer{ID: c}
	lookup.staff[s] = domain.Staff{ID: s}
	lookup.services[svc] = domain.Service{ID: svc, DurationMinutes: 45}

	got, err := NewValidator(lookup).ValidateReferences(context.Background(), c, s, svc)
	if err != nil {
		t.Fatalf("ValidateReferences error: %v", err)
	}
	if got.DurationMinutes != 45 {
		t.Fatalf("service = %+v", got)
	}
}

func TestValidator_SingleReferences(t *testing.T) {
	v := NewValidator(newFakeLookup())
	id := uuid.New()
	ctx := context.Background()

	var refErr *ReferenceNotFoundError
	if err := v.ValidateCustomer(ctx, id); !errors.As(err, &refErr) || refErr.Kind != ReferenceCustomer || refErr.ID != id {
		t.Fatalf("ValidateCustomer err = %v", err)
	}
	if err := v.ValidateStaff(ctx, id); !errors.As(err, &refErr) || refErr.Kind != ReferenceStaff {
		t.Fatalf("ValidateStaff err = %v", err)
	}
	if _, err := v.ValidateService(ctx, id); !errors.As(err, &refErr) || refErr.Kind != ReferenceService {
		t.Fatalf("ValidateService err = %v", err)
	}
}

func TestReferenceNotFoundError_Message(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	err := &ReferenceNotFoundError{Kind: ReferenceStaff, ID: id}
	if err.Error() != "staff 00000000-0000-0000-0000-000000000001 not found" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
