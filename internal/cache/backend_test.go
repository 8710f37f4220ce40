package cache

import (
	"context"
	"sort"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestMemoryBackend(t *testing.T, maxKeys int) (*MemoryBackend, *fakeClock) {
	t.Helper()
	b, err := NewMemoryBackend(maxKeys)
	if err != nil {
		t.Fatalf("NewMemoryBackend error: %v", err)
	}
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	b.now = clock.Now
	return b, clock
}

func TestMemoryBackend_Expiry(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestMemoryBackend(t, 10)

	if err := b.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	clock.now = clock.now.Add(59 * time.Second)
	if _, ok, _ := b.Get(ctx, "k"); !ok {
		t.Fatalf("entry should still be live before its TTL")
	}

	clock.now = clock.now.Add(time.Second)
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatalf("entry should expire exactly at its TTL")
	}
	if b.Len() != 0 {
		t.Fatalf("expired entry should be removed on read, len = %d", b.Len())
	}
}

func TestMemoryBackend_NoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestMemoryBackend(t, 10)

	_ = b.Set(ctx, "k", []byte("v"), 0)
	clock.now = clock.now.Add(24 * 365 * time.Hour)
	if _, ok, _ := b.Get(ctx, "k"); !ok {
		t.Fatalf("entry without TTL should not expire")
	}
}

func TestMemoryBackend_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestMemoryBackend(t, 2)

	_ = b.Set(ctx, "a", []byte("1"), time.Minute)
	_ = b.Set(ctx, "b", []byte("2"), time.Minute)
	_, _, _ = b.Get(ctx, "a")
	_ = b.Set(ctx, "c", []byte("3"), time.Minute)

	if _, ok, _ := b.Get(ctx, "b"); ok {
		t.Fatalf("least recently used key should be evicted")
	}
	if _, ok, _ := b.Get(ctx, "a"); !ok {
		t.Fatalf("recently used key should survive eviction")
	}
}

func TestMemoryBackend_KeysFiltersPrefixAndExpired(t *testing.T) {
	ctx := context.Background()
	b, clock := newTestMemoryBackend(t, 10)

	_ = b.Set(ctx, "appointments:all", []byte("x"), time.Hour)
	_ = b.Set(ctx, "appointments:today", []byte("x"), time.Minute)
	_ = b.Set(ctx, "services:all", []byte("x"), time.Hour)
	clock.now = clock.now.Add(2 * time.Minute)

	keys, err := b.Keys(ctx, "appointments:")
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 1 || keys[0] != "appointments:all" {
		t.Fatalf("Keys = %v, want [appointments:all]", keys)
	}
}

func TestMemoryBackend_Delete(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestMemoryBackend(t, 10)

	_ = b.Set(ctx, "a", []byte("1"), time.Minute)
	_ = b.Set(ctx, "b", []byte("2"), time.Minute)
	if err := b.Delete(ctx, "a", "b", "missing"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("len = %d, want 0", b.Len())
	}
}
