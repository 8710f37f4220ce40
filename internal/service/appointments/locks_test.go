package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStaffLocks_SerialisesSameStaff(t *testing.T) {
	l := newStaffLocks()
	id := uuid.New()

	unlock, err := l.Lock(context.Background(), id)
	if err != nil {
		t.Fatalf("Lock error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(context.Background(), id)
		if err != nil {
			t.Errorf("second Lock error: %v", err)
			return
		}
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatalf("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second lock not acquired after unlock")
	}
}

func TestStaffLocks_DifferentStaffDoNotBlock(t *testing.T) {
	l := newStaffLocks()
	u1, err := l.Lock(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Lock error: %v", err)
	}
	defer u1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u2, err := l.Lock(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Lock on other staff blocked: %v", err)
	}
	u2()
}

func TestStaffLocks_ContextCancelReleasesPartialHold(t *testing.T) {
	l := newStaffLocks()
	a, b := uuid.New(), uuid.New()

	holdB, err := l.Lock(context.Background(), b)
	if err != nil {
		t.Fatalf("Lock error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, a, b); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}

	// a must have been released again.
	ua, err := l.Lock(context.Background(), a)
	if err != nil {
		t.Fatalf("Lock(a) error: %v", err)
	}
	ua()
	holdB()

	if l.size() != 0 {
		t.Fatalf("entries left behind: %d", l.size())
	}
}

func TestStaffLocks_DuplicateIDsLockOnce(t *testing.T) {
	l := newStaffLocks()
	id := uuid.New()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := l.Lock(ctx, id, id)
	if err != nil {
		t.Fatalf("Lock error: %v", err)
	}
	unlock()
	if l.size() != 0 {
		t.Fatalf("entries left behind: %d", l.size())
	}
}
