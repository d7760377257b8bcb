// Package cache is a small key-value cache port with Redis and in-memory
// adapters. The server uses it for conversation-list responses; a miss or a
// transport error always falls through to the document store.
package cache

import (
	"context"
	"time"
)

// Cache is the contract the rest of the app sees. Implementations must be
// safe for concurrent use. Misses are reported as ErrMiss so callers can
// tell them apart from transport errors.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns the number removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals a cache miss in a typed way.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
