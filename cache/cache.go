// Package cache provides the key-value memoization layer used by the
// discovery, extraction, and evaluation engines: a Cache interface with
// per-key expiry, a Redis-backed implementation, an in-process fallback,
// typed key constructors per namespace, and a best-effort write helper.
//
// Cache writes never gate the success path: a failed Set is logged and
// dropped, because every cached value can be re-derived.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a key-value store with per-key expiry. Get returns found=false for
// both absent and expired keys.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Flusher is implemented by caches that support bulk deletion by key
// prefix, used by the admin surface to invalidate one namespace at a time.
type Flusher interface {
	FlushPrefix(ctx context.Context, prefix string) (int, error)
}

// SetBestEffort writes to the cache and swallows any failure. This is the one
// sanctioned way to ignore a cache error: the intent is visible at the call
// site and the enclosing operation never fails on a cache write.
func SetBestEffort(ctx context.Context, c Cache, logger *slog.Logger, key, value string, ttl time.Duration) {
	if c == nil {
		return
	}
	if err := c.Set(ctx, key, value, ttl); err != nil && logger != nil {
		logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}
