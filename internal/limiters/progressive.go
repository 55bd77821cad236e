package limiters

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zestpay/rampguard/store"
)

// ProgressiveConfig holds the escalation ladder for one subject. Delays maps
// an attempt number to the mandatory wait before that attempt; attempt
// numbers beyond the map fall back to DefaultDelay.
type ProgressiveConfig struct {
	Delays       map[int]time.Duration
	DefaultDelay time.Duration
	AttemptsTTL  time.Duration
	LastSeenTTL  time.Duration
}

// ProgressiveLimiter enforces escalating minimum spacing between successive
// attempts by one identifier. The attempts counter increments on every
// check, denied ones included, so hammering climbs the ladder; the
// last-allowed timestamp only advances on an allowed attempt.
type ProgressiveLimiter struct {
	store  store.Client
	config ProgressiveConfig
	now    func() time.Time
}

// NewProgressive creates a [ProgressiveLimiter] over the given store.
func NewProgressive(st store.Client, cfg ProgressiveConfig) *ProgressiveLimiter {
	return &ProgressiveLimiter{
		store:  st,
		config: cfg,
		now:    time.Now,
	}
}

// Check increments the attempt counter, resolves the mandatory wait for the
// new attempt number, and denies when the wait since the last allowed
// attempt has not elapsed. The reported Attempt is set on both outcomes.
func (l *ProgressiveLimiter) Check(ctx context.Context, subject, identifier string) (Decision, error) {
	attempts := attemptsKey(subject, identifier)
	lastSeen := lastAttemptKey(subject, identifier)

	count, err := l.store.Incr(ctx, attempts)
	if err != nil {
		return Decision{}, err
	}
	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.store.Expire(ctx, attempts, l.config.AttemptsTTL); err != nil {
			return Decision{}, err
		}
	}
	attempt := int(count)

	delay, ok := l.config.Delays[attempt]
	if !ok {
		delay = l.config.DefaultDelay
	}

	now := unixSeconds(l.now())

	if delay > 0 {
		raw, err := l.store.Get(ctx, lastSeen)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Decision{}, err
		}
		if err == nil {
			if last, ok := parseSeconds(raw); ok {
				elapsed := now - last
				if elapsed < delay.Seconds() {
					remaining := int(math.Ceil(delay.Seconds() - elapsed))
					return Decision{
						Message: fmt.Sprintf("Please wait %d seconds", remaining),
						Attempt: attempt,
					}, nil
				}
			}
		}
	}

	if err := l.store.Set(ctx, lastSeen, formatSeconds(now), l.config.LastSeenTTL); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true, Attempt: attempt}, nil
}
