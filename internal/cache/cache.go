// Package cache is a read-through string cache with caller-chosen TTLs.
//
// Backing-store failures never fail a read: a Get error is treated as a miss
// and a Set error is logged and ignored. Concurrent misses on one key may
// each recompute; compute functions must be idempotent.
package cache

import (
	"context"
	"encoding/json"
	"time"

	appLog "attendbot/internal/log"
)

// Backend is the key/value store behind a Cache.
type Backend interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value for ttl; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	RemoveAll(ctx context.Context, keys []string) error
}

// ComputeFunc produces the true value for a key on a miss.
type ComputeFunc func(ctx context.Context) (string, error)

type Cache struct {
	backend Backend
}

func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// GetOrCompute returns the cached value for key, or runs compute, stores its
// result under ttl and returns it. compute errors are returned unchanged and
// nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (string, error) {
	if v, ok := c.lookup(ctx, key); ok {
		return v, nil
	}

	v, err := compute(ctx)
	if err != nil {
		return "", err
	}
	c.store(ctx, key, v, ttl)
	return v, nil
}

// GetOrComputeJSON is GetOrCompute for JSON payloads. A cached payload that
// no longer decodes into T is treated as a miss and overwritten.
func GetOrComputeJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if raw, ok := c.lookup(ctx, key); ok {
		var out T
		err := json.Unmarshal([]byte(raw), &out)
		if err == nil {
			return out, nil
		}
		appLog.Error("cache payload decode failed; recomputing", err, "key", key)
	}

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		appLog.Error("cache payload encode failed; not storing", err, "key", key)
		return v, nil
	}
	c.store(ctx, key, string(data), ttl)
	return v, nil
}

// Invalidate removes keys immediately.
func (c *Cache) Invalidate(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.backend.RemoveAll(ctx, keys); err != nil {
		return err
	}
	appLog.Info("cache invalidated", "keys", len(keys))
	return nil
}

func (c *Cache) lookup(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		appLog.Error("cache get failed; treating as miss", err, "key", key)
		return "", false
	}
	if !ok {
		appLog.Debug("cache miss", "key", key)
		return "", false
	}
	appLog.Debug("cache hit", "key", key)
	return v, true
}

func (c *Cache) store(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		appLog.Error("cache set failed; ignoring", err, "key", key, "ttl", ttl)
		return
	}
	appLog.Debug("cache populated", "key", key, "ttl", ttl)
}
