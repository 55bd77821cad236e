package rampguard

import (
	"io"
	"time"

	internalaudit "github.com/zestpay/rampguard/internal/audit"
	internalmetrics "github.com/zestpay/rampguard/internal/metrics"
)

// Stage identifies the limiter stage that produced a decision.
//
//	Order of evaluation: email window, IP bucket, progressive delay, global counter.
type Stage uint8

const (
	// StageNone is an exported constant or variable used by the abuse-prevention engine.
	StageNone Stage = iota
	// StageEmail is an exported constant or variable used by the abuse-prevention engine.
	StageEmail
	// StageIP is an exported constant or variable used by the abuse-prevention engine.
	StageIP
	// StageProgressive is an exported constant or variable used by the abuse-prevention engine.
	StageProgressive
	// StageGlobal is an exported constant or variable used by the abuse-prevention engine.
	StageGlobal
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s Stage) String() string {
	switch s {
	case StageEmail:
		return "email"
	case StageIP:
		return "ip"
	case StageProgressive:
		return "progressive"
	case StageGlobal:
		return "global"
	default:
		return "none"
	}
}

// Result is returned by [Engine.CheckLimit]. Allowed is true when every
// applicable stage admitted the request. On denial, Message carries the
// caller-facing text from the stage that refused, Stage names that stage,
// Attempt is the progressive attempt ordinal (progressive stage only), and
// RetryAfter is a wait hint (IP stage only; zero means no hint).
type Result struct {
	Allowed    bool
	Message    string
	Attempt    int
	RetryAfter time.Duration
	Stage      Stage
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricCheckAllowed is an exported constant or variable used by the abuse-prevention engine.
	MetricCheckAllowed = MetricID(internalmetrics.MetricCheckAllowed)
	// MetricCheckDenied is an exported constant or variable used by the abuse-prevention engine.
	MetricCheckDenied = MetricID(internalmetrics.MetricCheckDenied)
	// MetricEmailDenied is an exported constant or variable used by the abuse-prevention engine.
	MetricEmailDenied = MetricID(internalmetrics.MetricEmailDenied)
	// MetricIPDenied is an exported constant or variable used by the abuse-prevention engine.
	MetricIPDenied = MetricID(internalmetrics.MetricIPDenied)
	// MetricProgressiveDenied is an exported constant or variable used by the abuse-prevention engine.
	MetricProgressiveDenied = MetricID(internalmetrics.MetricProgressiveDenied)
	// MetricGlobalDenied is an exported constant or variable used by the abuse-prevention engine.
	MetricGlobalDenied = MetricID(internalmetrics.MetricGlobalDenied)
	// MetricPolicyMiss is an exported constant or variable used by the abuse-prevention engine.
	MetricPolicyMiss = MetricID(internalmetrics.MetricPolicyMiss)
	// MetricStoreError is an exported constant or variable used by the abuse-prevention engine.
	MetricStoreError = MetricID(internalmetrics.MetricStoreError)
	// MetricLockAcquired is an exported constant or variable used by the abuse-prevention engine.
	MetricLockAcquired = MetricID(internalmetrics.MetricLockAcquired)
	// MetricLockContended is an exported constant or variable used by the abuse-prevention engine.
	MetricLockContended = MetricID(internalmetrics.MetricLockContended)
	// MetricLockReleased is an exported constant or variable used by the abuse-prevention engine.
	MetricLockReleased = MetricID(internalmetrics.MetricLockReleased)
	// MetricLockMismatch is an exported constant or variable used by the abuse-prevention engine.
	MetricLockMismatch = MetricID(internalmetrics.MetricLockMismatch)
	// MetricLockoutTripped is an exported constant or variable used by the abuse-prevention engine.
	MetricLockoutTripped = MetricID(internalmetrics.MetricLockoutTripped)
	// MetricCheckLatency is an exported constant or variable used by the abuse-prevention engine.
	MetricCheckLatency = MetricID(internalmetrics.MetricCheckLatency)

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
