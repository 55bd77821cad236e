package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested key does not exist in the store.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable indicates the store backend is unreachable or failing.
	ErrUnavailable = errors.New("store unavailable")
)

// Client is the set of store operations rampguard consumes. Implementations
// must return [ErrNotFound] from Get for absent keys and wrap every
// transport or server failure with [ErrUnavailable] so callers can
// distinguish infrastructure errors from rate-limit outcomes.
//
// All methods honor context cancellation. Each call maps to exactly one
// store-level command.
type Client interface {
	// Get returns the string value at key.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value at key with the given TTL. Zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes value at key with the given TTL only if the key is
	// absent. Returns true when the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Incr atomically increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// ZAdd adds member to the sorted set at key with the given score.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRemRangeByScore removes sorted-set members with scores in
	// [min, max]. Bounds use the store's score syntax ("0", "-inf", ...).
	ZRemRangeByScore(ctx context.Context, key, min, max string) error

	// ZCard returns the cardinality of the sorted set at key. A missing
	// key counts as empty.
	ZCard(ctx context.Context, key string) (int64, error)

	// HGetAll returns all fields of the hash at key. A missing key yields
	// an empty map, not ErrNotFound.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HSet writes the given fields into the hash at key.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// Ping verifies connectivity and reports the round-trip time.
	Ping(ctx context.Context) (time.Duration, error)
}
