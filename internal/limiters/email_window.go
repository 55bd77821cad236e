package limiters

import (
	"context"
	"fmt"
	"time"

	"github.com/zestpay/rampguard/store"
)

// EmailWindowConfig holds the sliding-window policy for one subject.
type EmailWindowConfig struct {
	Count  int
	Window time.Duration
	KeyTTL time.Duration
}

// EmailWindowLimiter caps requests per identifier within a rolling window.
// Request timestamps are kept in a sorted set scored by themselves; entries
// older than the window are trimmed on every check.
type EmailWindowLimiter struct {
	store  store.Client
	config EmailWindowConfig
	now    func() time.Time
}

// NewEmailWindow creates an [EmailWindowLimiter] over the given store.
func NewEmailWindow(st store.Client, cfg EmailWindowConfig) *EmailWindowLimiter {
	return &EmailWindowLimiter{
		store:  st,
		config: cfg,
		now:    time.Now,
	}
}

// Check trims expired entries, counts the remainder, and either denies
// (count at the limit, no mutation) or records the request and allows.
// Trim, count, and add are separate round trips; concurrent checks on one
// identifier can both observe room and both be admitted.
func (l *EmailWindowLimiter) Check(ctx context.Context, subject, identifier string) (Decision, error) {
	key := emailWindowKey(subject, identifier)
	now := unixSeconds(l.now())
	cutoff := now - l.config.Window.Seconds()

	if err := l.store.ZRemRangeByScore(ctx, key, "0", formatSeconds(cutoff)); err != nil {
		return Decision{}, err
	}

	count, err := l.store.ZCard(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if count >= int64(l.config.Count) {
		return Decision{
			Message: fmt.Sprintf("Maximum %d requests per %d seconds for this identifier",
				l.config.Count, int(l.config.Window.Seconds())),
		}, nil
	}

	if err := l.store.ZAdd(ctx, key, now, formatSeconds(now)); err != nil {
		return Decision{}, err
	}
	if err := l.store.Expire(ctx, key, l.config.KeyTTL); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true}, nil
}
