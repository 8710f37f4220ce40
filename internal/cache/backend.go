package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Backend stores raw values with an expiry. A ttl <= 0 means the entry does
// not expire on its own.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

const DefaultMaxKeys = 1000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryBackend is a bounded in-process backend. The least recently used
// entry is evicted once maxKeys is reached; expiry is checked on read.
type MemoryBackend struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

func NewMemoryBackend(maxKeys int) (*MemoryBackend, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	c, err := lru.New[string, memoryEntry](maxKeys)
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{cache: c, now: time.Now}, nil
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if entry.expired(m.now()) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.cache.Add(key, entry)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		m.cache.Remove(k)
	}
	return nil
}

func (m *MemoryBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []string
	for _, k := range m.cache.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		entry, ok := m.cache.Peek(k)
		if !ok || entry.expired(now) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (m *MemoryBackend) Len() int {
	return m.cache.Len()
}
