package rampguard

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/zestpay/rampguard/internal/audit"
	"github.com/zestpay/rampguard/internal/limiters"
	"github.com/zestpay/rampguard/lock"
	"github.com/zestpay/rampguard/store"
)

// Engine defines a public type used by rampguard APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config   Config
	store    store.Client
	logger   zerolog.Logger
	subjects map[string]*subjectLimiters
	locks    *lock.Registry
	lockout  *limiters.LockoutLimiter
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
}

// subjectLimiters bundles the four stage limiters built for one subject.
type subjectLimiters struct {
	email       *limiters.EmailWindowLimiter
	ip          *limiters.IPBucketLimiter
	progressive *limiters.ProgressiveLimiter
	global      *limiters.GlobalLimiter
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Locks describes the locks operation and its observable behavior.
//
// Locks may return an error when input validation, dependency calls, or security checks fail.
// Locks does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Locks() *lock.Registry {
	if e == nil {
		return nil
	}
	return e.locks
}

// Ping describes the ping operation and its observable behavior.
//
// Ping may return an error when input validation, dependency calls, or security checks fail.
// Ping does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

// Policy describes the policy operation and its observable behavior.
//
// Policy may return an error when input validation, dependency calls, or security checks fail.
// Policy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Policy(subject string) (Policy, error) {
	if e == nil {
		return Policy{}, ErrEngineNotReady
	}
	p, ok := e.config.Policies[subject]
	if !ok {
		return Policy{}, ErrPolicyNotFound
	}
	return clonePolicy(p), nil
}

// Subjects describes the subjects operation and its observable behavior.
//
// Subjects may return an error when input validation, dependency calls, or security checks fail.
// Subjects does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Subjects() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.subjects))
	for name := range e.subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
