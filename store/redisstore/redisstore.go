package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/zestpay/rampguard/store"
)

// Options tunes the adapter. The zero value disables the circuit breaker.
type Options struct {
	// BreakerEnabled guards every data-path call with a circuit breaker.
	BreakerEnabled bool
	// BreakerConsecutiveFailures is the consecutive-failure count that
	// opens the breaker. Defaults to 5.
	BreakerConsecutiveFailures uint32
	// BreakerOpenTimeout is how long the breaker stays open before letting
	// a probe request through. Defaults to 30s.
	BreakerOpenTimeout time.Duration
}

// Store implements [store.Client] on top of a go-redis universal client.
// It works unchanged against single-node, sentinel, and cluster deployments.
type Store struct {
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
}

// New wraps client. Pass Options{} for a plain adapter without a breaker.
func New(client redis.UniversalClient, opts Options) *Store {
	s := &Store{client: client}

	if opts.BreakerEnabled {
		failures := opts.BreakerConsecutiveFailures
		if failures == 0 {
			failures = 5
		}
		timeout := opts.BreakerOpenTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}

		st := gobreaker.Settings{Name: "rampguard-redis"}
		st.Timeout = timeout
		st.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		}
		s.breaker = gobreaker.NewCircuitBreaker(st)
	}

	return s
}

// run executes fn, routing it through the breaker when one is configured.
// fn must report only genuine backend failures as errors; normal misses
// (redis.Nil) are handled inside fn so they never trip the breaker.
func (s *Store) run(fn func() (any, error)) (any, error) {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn)
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

// Get returns the value at key, or store.ErrNotFound for a missing key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	out, err := s.run(func() (any, error) {
		val, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
	if err != nil {
		return "", wrapUnavailable(err)
	}
	if out == nil {
		return "", store.ErrNotFound
	}
	return out.(string), nil
}

// Set writes value at key with the given TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.run(func() (any, error) {
		return nil, s.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// SetNX writes value at key with the given TTL only if the key is absent.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	out, err := s.run(func() (any, error) {
		return s.client.SetNX(ctx, key, value, ttl).Result()
	})
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return out.(bool), nil
}

// Del removes the given keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.run(func() (any, error) {
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// Incr atomically increments the integer at key.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	out, err := s.run(func() (any, error) {
		return s.client.Incr(ctx, key).Result()
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return out.(int64), nil
}

// Expire sets the TTL of an existing key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.run(func() (any, error) {
		return nil, s.client.Expire(ctx, key, ttl).Err()
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ZAdd adds member to the sorted set at key with the given score.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	_, err := s.run(func() (any, error) {
		return nil, s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ZRemRangeByScore removes sorted-set members with scores in [min, max].
func (s *Store) ZRemRangeByScore(ctx context.Context, key, min, max string) error {
	_, err := s.run(func() (any, error) {
		return nil, s.client.ZRemRangeByScore(ctx, key, min, max).Err()
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ZCard returns the cardinality of the sorted set at key.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	out, err := s.run(func() (any, error) {
		return s.client.ZCard(ctx, key).Result()
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return out.(int64), nil
}

// HGetAll returns all fields of the hash at key. Missing keys yield an
// empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	out, err := s.run(func() (any, error) {
		return s.client.HGetAll(ctx, key).Result()
	})
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return out.(map[string]string), nil
}

// HSet writes the given fields into the hash at key.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	_, err := s.run(func() (any, error) {
		return nil, s.client.HSet(ctx, key, fields).Err()
	})
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// Ping verifies connectivity and reports the round-trip time. Ping bypasses
// the breaker so health checks always observe the real backend state.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return 0, wrapUnavailable(err)
	}
	return time.Since(start), nil
}
