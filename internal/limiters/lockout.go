package limiters

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/zestpay/rampguard/store"
)

// LockoutConfig holds configuration for the failed-attempt lockout counter.
type LockoutConfig struct {
	Enabled     bool
	MaxFailures int
	Duration    time.Duration
	FailuresTTL time.Duration
}

// lockoutMarker is the payload stored under the lockout key so operators
// inspecting the store can see when the lockout started.
type lockoutMarker struct {
	LockedAt float64 `json:"locked_at"`
}

// LockoutLimiter tracks consecutive verification failures (wrong OTP codes,
// bad withdrawal confirmations) per identifier and writes a lockout marker
// when the configured cap is reached. Distinct from [ProgressiveLimiter]:
// that one spaces out requests, this one blocks an identifier outright
// until the marker expires.
type LockoutLimiter struct {
	store  store.Client
	config LockoutConfig
	now    func() time.Time
}

// NewLockout creates a [LockoutLimiter] over the given store.
func NewLockout(st store.Client, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{
		store:  st,
		config: cfg,
		now:    time.Now,
	}
}

// RecordFailure increments the failure counter for an identifier. Returns
// true when the cap is reached; at that point the lockout marker has been
// written and [LockoutLimiter.IsLocked] reports true until it expires.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, subject, identifier string) (bool, error) {
	if !l.config.Enabled || identifier == "" {
		return false, nil
	}

	key := failuresKey(subject, identifier)
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 && l.config.FailuresTTL > 0 {
		// TTL on first failure: the counter is a rolling window that
		// clears itself when no new failures arrive.
		if err := l.store.Expire(ctx, key, l.config.FailuresTTL); err != nil {
			return false, err
		}
	}

	if count < int64(l.config.MaxFailures) {
		return false, nil
	}

	marker, err := json.Marshal(lockoutMarker{LockedAt: unixSeconds(l.now())})
	if err != nil {
		return false, err
	}
	if err := l.store.Set(ctx, lockoutKey(subject, identifier), string(marker), l.config.Duration); err != nil {
		return false, err
	}

	return true, nil
}

// IsLocked reports whether the identifier currently has a lockout marker.
func (l *LockoutLimiter) IsLocked(ctx context.Context, subject, identifier string) (bool, error) {
	if !l.config.Enabled || identifier == "" {
		return false, nil
	}

	_, err := l.store.Get(ctx, lockoutKey(subject, identifier))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reset clears the failure counter and any lockout marker (manual unlock or
// successful verification).
func (l *LockoutLimiter) Reset(ctx context.Context, subject, identifier string) error {
	if !l.config.Enabled || identifier == "" {
		return nil
	}
	return l.store.Del(ctx, failuresKey(subject, identifier), lockoutKey(subject, identifier))
}

// FailureCount returns the current failure count for an identifier.
func (l *LockoutLimiter) FailureCount(ctx context.Context, subject, identifier string) (int, error) {
	if !l.config.Enabled || identifier == "" {
		return 0, nil
	}

	raw, err := l.store.Get(ctx, failuresKey(subject, identifier))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0, nil
	}
	return count, nil
}
