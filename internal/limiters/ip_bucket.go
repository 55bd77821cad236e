package limiters

import (
	"context"
	"math"
	"time"

	"github.com/zestpay/rampguard/store"
)

// IPBucketConfig holds the token-bucket policy for one subject.
type IPBucketConfig struct {
	Capacity      int
	RefillPerHour float64
	KeyTTL        time.Duration
}

const (
	bucketTokensField  = "tokens"
	bucketUpdatedField = "last_update"
)

const ipBucketDeniedMessage = "Too many requests from this IP address"

// IPBucketLimiter caps requests per client IP with a continuously refilled
// token bucket. Tokens are fractional floats persisted in a hash together
// with the last refill timestamp; refill is computed from elapsed wall time
// on every check rather than by a background job.
type IPBucketLimiter struct {
	store  store.Client
	config IPBucketConfig
	now    func() time.Time
}

// NewIPBucket creates an [IPBucketLimiter] over the given store.
func NewIPBucket(st store.Client, cfg IPBucketConfig) *IPBucketLimiter {
	return &IPBucketLimiter{
		store:  st,
		config: cfg,
		now:    time.Now,
	}
}

// Check admits the request if the bucket holds at least one token after
// refill. A denial reports how long until a full token has accrued and
// leaves the hash untouched; the TTL is set only when the bucket is first
// created. Read-refill-write is not atomic; concurrent checks on one IP can
// overspend by a bounded amount.
func (l *IPBucketLimiter) Check(ctx context.Context, subject, ip string) (Decision, error) {
	key := ipBucketKey(subject, ip)
	now := unixSeconds(l.now())
	rate := l.config.RefillPerHour / 3600.0

	fields, err := l.store.HGetAll(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	tokens, last, ok := bucketState(fields)
	if !ok {
		// New bucket: start full and consume the admitting token.
		// Unparsable state is treated as absent.
		err := l.store.HSet(ctx, key, map[string]string{
			bucketTokensField:  formatSeconds(float64(l.config.Capacity) - 1),
			bucketUpdatedField: formatSeconds(now),
		})
		if err != nil {
			return Decision{}, err
		}
		if err := l.store.Expire(ctx, key, l.config.KeyTTL); err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: true}, nil
	}

	elapsed := now - last
	if elapsed < 0 {
		elapsed = 0
	}
	tokens = math.Min(float64(l.config.Capacity), tokens+elapsed*rate)

	if tokens < 1 {
		retry := math.Ceil((1 - tokens) / rate)
		return Decision{
			Message:    ipBucketDeniedMessage,
			RetryAfter: time.Duration(retry) * time.Second,
		}, nil
	}

	tokens--
	err = l.store.HSet(ctx, key, map[string]string{
		bucketTokensField:  formatSeconds(tokens),
		bucketUpdatedField: formatSeconds(now),
	})
	if err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true}, nil
}

func bucketState(fields map[string]string) (tokens, last float64, ok bool) {
	if len(fields) == 0 {
		return 0, 0, false
	}
	tokens, ok = parseSeconds(fields[bucketTokensField])
	if !ok {
		return 0, 0, false
	}
	last, ok = parseSeconds(fields[bucketUpdatedField])
	if !ok {
		return 0, 0, false
	}
	return tokens, last, true
}
