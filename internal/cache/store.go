package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// errUnreachable simulates a down store in the in-memory implementation.
var errUnreachable = errors.New("cache: store unreachable")

// Store is the shared key-value store used both as a cache and as the
// indexing queue's storage medium. All higher components degrade gracefully
// when a Store operation fails: reads recompute, writes are dropped.
type Store interface {
	// Get returns the value stored under key, or ErrMiss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching the glob pattern.
	DeletePattern(ctx context.Context, pattern string) error

	// Incr atomically increments the counter under key and refreshes its TTL.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// GetInt returns the counter under key, or 0 when absent.
	GetInt(ctx context.Context, key string) (int64, error)

	// PushCapped prepends value to the list under key, trims the list to the
	// most recent capacity entries, and refreshes the TTL.
	PushCapped(ctx context.Context, key, value string, capacity int64, ttl time.Duration) error

	// ListPush appends value to the tail of the list under key.
	ListPush(ctx context.Context, key, value string) error

	// ListPopToList atomically moves the head of src to the tail of dst and
	// returns it, or ErrMiss when src is empty. This is the queue's sole
	// cross-consumer synchronization point.
	ListPopToList(ctx context.Context, src, dst string) (string, error)

	// ListRemove removes up to count occurrences of value from the list under
	// key and returns the number removed.
	ListRemove(ctx context.Context, key, value string, count int64) (int64, error)

	// ListRange returns the elements of the list under key in [start, stop].
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ListLen returns the length of the list under key.
	ListLen(ctx context.Context, key string) (int64, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
