package limiters

import (
	"context"
	"time"

	"github.com/zestpay/rampguard/store"
)

// GlobalConfig holds the subject-wide fixed-window cap.
type GlobalConfig struct {
	Count  int
	Window time.Duration
}

const globalDeniedMessage = "System is experiencing high load"

// GlobalLimiter caps total requests per subject across all identifiers
// within a fixed window. Coarse by design: up to 2×Count requests can pass
// across a window boundary in the worst case.
type GlobalLimiter struct {
	store  store.Client
	config GlobalConfig
}

// NewGlobal creates a [GlobalLimiter] over the given store.
func NewGlobal(st store.Client, cfg GlobalConfig) *GlobalLimiter {
	return &GlobalLimiter{store: st, config: cfg}
}

// Check increments the subject counter and denies once it exceeds the cap.
func (l *GlobalLimiter) Check(ctx context.Context, subject string) (Decision, error) {
	key := globalKey(subject)

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.store.Expire(ctx, key, l.config.Window); err != nil {
			return Decision{}, err
		}
	}

	if count > int64(l.config.Count) {
		return Decision{Message: globalDeniedMessage}, nil
	}

	return Decision{Allowed: true}, nil
}
