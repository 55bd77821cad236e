package rampguard

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zestpay/rampguard/internal/limiters"
	"github.com/zestpay/rampguard/lock"
	"github.com/zestpay/rampguard/store"
	"github.com/zestpay/rampguard/store/redisstore"
)

// Builder defines a public type used by rampguard APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	store  store.Client
	logger zerolog.Logger

	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(st store.Client) *Builder {
	b.store = st
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.store = redisstore.New(client, redisstore.Options{})
	return b
}

// WithPolicy describes the withpolicy operation and its observable behavior.
//
// WithPolicy may return an error when input validation, dependency calls, or security checks fail.
// WithPolicy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPolicy(subject string, p Policy) *Builder {
	if b.config.Policies == nil {
		b.config.Policies = make(map[string]Policy)
	}
	b.config.Policies[subject] = clonePolicy(p)
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLockTTL describes the withlockttl operation and its observable behavior.
//
// WithLockTTL may return an error when input validation, dependency calls, or security checks fail.
// WithLockTTL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLockTTL(ttl time.Duration) *Builder {
	b.config.Lock.TTL = ttl
	return b
}

// WithLockout describes the withlockout operation and its observable behavior.
//
// WithLockout may return an error when input validation, dependency calls, or security checks fail.
// WithLockout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLockout(cfg LockoutConfig) *Builder {
	b.config.Lockout = cfg
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.store == nil {
		return nil, errors.New("store client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- PER-SUBJECT LIMITERS --------
	subjects := make(map[string]*subjectLimiters, len(cfg.Policies))
	for name, p := range cfg.Policies {
		subjects[name] = &subjectLimiters{
			email: limiters.NewEmailWindow(b.store, limiters.EmailWindowConfig{
				Count:  p.Email.Count,
				Window: p.Email.Window,
				KeyTTL: p.Email.KeyTTL,
			}),
			ip: limiters.NewIPBucket(b.store, limiters.IPBucketConfig{
				Capacity:      p.IP.Capacity,
				RefillPerHour: p.IP.RefillPerHour,
				KeyTTL:        p.IP.KeyTTL,
			}),
			progressive: limiters.NewProgressive(b.store, limiters.ProgressiveConfig{
				Delays:       p.Progressive.Delays,
				DefaultDelay: p.Progressive.DefaultDelay,
				AttemptsTTL:  p.Progressive.AttemptsTTL,
				LastSeenTTL:  p.Progressive.LastSeenTTL,
			}),
			global: limiters.NewGlobal(b.store, limiters.GlobalConfig{
				Count:  p.Global.Count,
				Window: p.Global.Window,
			}),
		}
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		store:    b.store,
		logger:   b.logger,
		subjects: subjects,
	}

	// -------- LOCK REGISTRY --------
	engine.locks = lock.NewRegistryWithHooks(b.store, cfg.Lock.TTL, b.logger, lock.Hooks{
		OnAcquired:  func() { engine.metricInc(MetricLockAcquired) },
		OnContended: func() { engine.metricInc(MetricLockContended) },
		OnReleased:  func() { engine.metricInc(MetricLockReleased) },
		OnMismatch:  func() { engine.metricInc(MetricLockMismatch) },
	})

	// -------- LOCKOUT --------
	if cfg.Lockout.Enabled {
		engine.lockout = limiters.NewLockout(b.store, limiters.LockoutConfig{
			Enabled:     true,
			MaxFailures: cfg.Lockout.MaxFailures,
			Duration:    cfg.Lockout.Duration,
			FailuresTTL: cfg.Lockout.FailuresTTL,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
