package lock

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zestpay/rampguard/store"
)

// Registry caches one [Lock] per category so every caller naming the same
// category shares the same instance. It holds no cross-process state; the
// cache only avoids re-creating identical Lock values.
type Registry struct {
	store  store.Client
	ttl    time.Duration
	logger zerolog.Logger
	hooks  Hooks

	mu    sync.Mutex
	locks map[string]*Lock
}

// NewRegistry creates a registry whose locks all use the given ttl
// (non-positive falls back to [DefaultTTL]).
func NewRegistry(st store.Client, ttl time.Duration, logger zerolog.Logger) *Registry {
	return NewRegistryWithHooks(st, ttl, logger, Hooks{})
}

// NewRegistryWithHooks is [NewRegistry] with state-transition callbacks
// shared by every lock it hands out.
func NewRegistryWithHooks(st store.Client, ttl time.Duration, logger zerolog.Logger, hooks Hooks) *Registry {
	return &Registry{
		store:  st,
		ttl:    ttl,
		logger: logger,
		hooks:  hooks,
		locks:  map[string]*Lock{},
	}
}

// Get returns the lock for category, creating it on first use.
func (r *Registry) Get(category string) *Lock {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.locks[category]; ok {
		return l
	}

	l := NewWithHooks(r.store, category, r.ttl, r.logger, r.hooks)
	r.locks[category] = l
	return l
}
