package appointments

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// staffLocks serialises conflict check and write per staff member within one
// process. Entries are reference counted and dropped when unused.
type staffLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*staffLock
}

type staffLock struct {
	ch   chan struct{}
	refs int
}

func newStaffLocks() *staffLocks {
	return &staffLocks{entries: make(map[uuid.UUID]*staffLock)}
}

// Lock acquires every id in ascending order and returns the matching unlock.
// Waiting is abandoned when ctx is done.
func (l *staffLocks) Lock(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	ids = sortedUnique(ids)

	held := make([]uuid.UUID, 0, len(ids))
	unlock := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}

	for _, id := range ids {
		e := l.acquireRef(id)
		select {
		case e.ch <- struct{}{}:
			held = append(held, id)
		case <-ctx.Done():
			l.dropRef(id)
			unlock()
			return nil, ctx.Err()
		}
	}
	return unlock, nil
}

func (l *staffLocks) acquireRef(id uuid.UUID) *staffLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &staffLock{ch: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *staffLocks) release(id uuid.UUID) {
	l.mu.Lock()
	e := l.entries[id]
	l.mu.Unlock()
	<-e.ch
	l.dropRef(id)
}

func (l *staffLocks) dropRef(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[id]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

func (l *staffLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
