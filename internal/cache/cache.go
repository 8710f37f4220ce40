// Package cache holds disposable read-side copies of store data. Entries are
// addressed by typed keys inside a per-entity namespace and expire after a
// family-dependent TTL. The store stays authoritative: every cache failure is
// logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 600 * time.Second
	ShortTTL   = 300 * time.Second

	DefaultLoadTimeout = 10 * time.Second
)

type Options struct {
	// Namespace prefixes every key, e.g. "appointments".
	Namespace  string
	DefaultTTL time.Duration
	ShortTTL   time.Duration
	// LoadTimeout bounds a shared GetOrLoad load, which outlives the
	// context of the caller that started it.
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

// Cache is a typed view over a Backend. Values are stored JSON-encoded, so a
// value read from the cache never aliases a value written to it.
type Cache[T any] struct {
	backend     Backend
	prefix      string
	defaultTTL  time.Duration
	shortTTL    time.Duration
	loadTimeout time.Duration
	log         *slog.Logger
	group       singleflight.Group
}

func New[T any](backend Backend, opts Options) *Cache[T] {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.ShortTTL <= 0 {
		opts.ShortTTL = ShortTTL
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Cache[T]{
		backend:     backend,
		prefix:      opts.Namespace + ":",
		defaultTTL:  opts.DefaultTTL,
		shortTTL:    opts.ShortTTL,
		loadTimeout: opts.LoadTimeout,
		log:         log.With(slog.String("component", "cache"), slog.String("namespace", opts.Namespace)),
	}
}

func (c *Cache[T]) Get(ctx context.Context, key Key) (T, bool) {
	var zero T
	raw, ok, err := c.backend.Get(ctx, c.prefix+key.String())
	if err != nil {
		c.log.Warn("cache get failed", slog.String("key", key.String()), slog.Any("err", err))
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warn("cache entry undecodable", slog.String("key", key.String()), slog.Any("err", err))
		return zero, false
	}
	return v, true
}

// Set stores value with the TTL of the key's family.
func (c *Cache[T]) Set(ctx context.Context, key Key, value T) {
	c.SetTTL(ctx, key, value, c.TTLFor(key))
}

func (c *Cache[T]) SetTTL(ctx context.Context, key Key, value T, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache entry unencodable", slog.String("key", key.String()), slog.Any("err", err))
		return
	}
	if err := c.backend.Set(ctx, c.prefix+key.String(), raw, ttl); err != nil {
		c.log.Warn("cache set failed", slog.String("key", key.String()), slog.Any("err", err))
	}
}

func (c *Cache[T]) Delete(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.prefix+k.String())
	}
	if err := c.backend.Delete(ctx, full...); err != nil {
		c.log.Warn("cache delete failed", slog.Int("keys", len(full)), slog.Any("err", err))
	}
}

// Keys lists the keys currently held in this namespace, without the
// namespace prefix.
func (c *Cache[T]) Keys(ctx context.Context) []string {
	full, err := c.backend.Keys(ctx, c.prefix)
	if err != nil {
		c.log.Warn("cache keys failed", slog.Any("err", err))
		return nil
	}
	out := make([]string, 0, len(full))
	for _, k := range full {
		out = append(out, strings.TrimPrefix(k, c.prefix))
	}
	return out
}

// Clear drops every key in this namespace.
func (c *Cache[T]) Clear(ctx context.Context) {
	full, err := c.backend.Keys(ctx, c.prefix)
	if err != nil {
		c.log.Warn("cache keys failed", slog.Any("err", err))
		return
	}
	if err := c.backend.Delete(ctx, full...); err != nil {
		c.log.Warn("cache clear failed", slog.Int("keys", len(full)), slog.Any("err", err))
	}
}

// GetOrLoad returns the cached value for key or calls load and, when load
// reports keep, populates the cache. Concurrent misses on one key share a
// single load. The shared load runs detached from any one caller's
// cancellation, bounded by the load timeout; a caller whose ctx ends stops
// waiting without failing the others.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key Key, load func(ctx context.Context) (value T, keep bool, err error)) (T, error) {
	var zero T
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	ch := c.group.DoChan(c.prefix+key.String(), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		v, keep, err := load(lctx)
		if err != nil {
			return v, err
		}
		if keep {
			c.Set(lctx, key, v)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) TTLFor(key Key) time.Duration {
	if key.Short() {
		return c.shortTTL
	}
	return c.defaultTTL
}
