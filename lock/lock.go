package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zestpay/rampguard/store"
)

var (
	// ErrHeld indicates the lock is currently held by another owner.
	ErrHeld = errors.New("lock already held")
	// ErrOwnershipMismatch indicates a release with a token that does not
	// match the stored value. The key is never deleted in this case.
	ErrOwnershipMismatch = errors.New("lock ownership mismatch")
)

// DefaultTTL bounds how long a crashed holder can keep a lock.
const DefaultTTL = 30 * time.Second

// Hooks carries optional callbacks fired on lock state transitions. The
// zero value disables all of them. Callbacks run synchronously on the
// calling goroutine and must not block.
type Hooks struct {
	OnAcquired  func()
	OnContended func()
	OnReleased  func()
	OnMismatch  func()
}

func (h Hooks) acquired() {
	if h.OnAcquired != nil {
		h.OnAcquired()
	}
}

func (h Hooks) contended() {
	if h.OnContended != nil {
		h.OnContended()
	}
}

func (h Hooks) released() {
	if h.OnReleased != nil {
		h.OnReleased()
	}
}

func (h Hooks) mismatch() {
	if h.OnMismatch != nil {
		h.OnMismatch()
	}
}

// Lock is a category-scoped distributed lock. Instances are stateless;
// all coordination happens through the store, so one Lock value can be
// shared by any number of goroutines.
type Lock struct {
	store    store.Client
	category string
	ttl      time.Duration
	logger   zerolog.Logger
	hooks    Hooks
}

// New creates a lock for the given category. A non-positive ttl falls back
// to [DefaultTTL].
func New(st store.Client, category string, ttl time.Duration, logger zerolog.Logger) *Lock {
	return NewWithHooks(st, category, ttl, logger, Hooks{})
}

// NewWithHooks is [New] with state-transition callbacks attached.
func NewWithHooks(st store.Client, category string, ttl time.Duration, logger zerolog.Logger, hooks Hooks) *Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{
		store:    st,
		category: category,
		ttl:      ttl,
		logger:   logger,
		hooks:    hooks,
	}
}

// TTL returns the expiry applied to acquired locks.
func (l *Lock) TTL() time.Duration {
	return l.ttl
}

func (l *Lock) key(resourceID string) string {
	return "lock:" + l.category + ":" + resourceID
}

// Acquire attempts to take the lock for resourceID and returns the
// ownership token on success. A held lock returns [ErrHeld] immediately;
// a store failure fails closed (no token, wrapped store error).
func (l *Lock) Acquire(ctx context.Context, resourceID string) (string, error) {
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, l.key(resourceID), token, l.ttl)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("category", l.category).
			Str("resource", resourceID).
			Msg("lock acquire aborted on store failure")
		return "", err
	}
	if !ok {
		l.logger.Debug().
			Str("category", l.category).
			Str("resource", resourceID).
			Msg("lock contended")
		l.hooks.contended()
		return "", ErrHeld
	}

	l.logger.Debug().
		Str("category", l.category).
		Str("resource", resourceID).
		Msg("lock acquired")
	l.hooks.acquired()
	return token, nil
}

// Release frees the lock for resourceID if token still owns it. An absent
// key (expired lock) or a foreign token returns [ErrOwnershipMismatch]
// without touching the key.
func (l *Lock) Release(ctx context.Context, resourceID, token string) error {
	current, err := l.store.Get(ctx, l.key(resourceID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.hooks.mismatch()
			return ErrOwnershipMismatch
		}
		l.logger.Error().
			Err(err).
			Str("category", l.category).
			Str("resource", resourceID).
			Msg("lock release aborted on store failure")
		return err
	}

	if current != token {
		l.logger.Warn().
			Str("category", l.category).
			Str("resource", resourceID).
			Msg("lock release with foreign token")
		l.hooks.mismatch()
		return ErrOwnershipMismatch
	}

	if err := l.store.Del(ctx, l.key(resourceID)); err != nil {
		l.logger.Error().
			Err(err).
			Str("category", l.category).
			Str("resource", resourceID).
			Msg("lock release aborted on store failure")
		return err
	}

	l.hooks.released()
	return nil
}
