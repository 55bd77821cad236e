package internaldefs

import (
	rampguard "github.com/zestpay/rampguard"
)

// CounterDef defines a public type used by rampguard APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   rampguard.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by rampguard APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   rampguard.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the abuse-prevention engine.
var CounterDefs = []CounterDef{
	{ID: rampguard.MetricCheckAllowed, Name: "rampguard_check_allowed_total", Help: "Rate-limit checks that admitted the request."},
	{ID: rampguard.MetricCheckDenied, Name: "rampguard_check_denied_total", Help: "Rate-limit checks that denied the request."},
	{ID: rampguard.MetricEmailDenied, Name: "rampguard_email_denied_total", Help: "Denials from the per-identifier sliding window stage."},
	{ID: rampguard.MetricIPDenied, Name: "rampguard_ip_denied_total", Help: "Denials from the per-IP token bucket stage."},
	{ID: rampguard.MetricProgressiveDenied, Name: "rampguard_progressive_denied_total", Help: "Denials from the progressive delay stage."},
	{ID: rampguard.MetricGlobalDenied, Name: "rampguard_global_denied_total", Help: "Denials from the global counter stage."},
	{ID: rampguard.MetricPolicyMiss, Name: "rampguard_policy_miss_total", Help: "Checks that failed open because no policy matched the subject."},
	{ID: rampguard.MetricStoreError, Name: "rampguard_store_error_total", Help: "Operations aborted by store failures."},
	{ID: rampguard.MetricLockAcquired, Name: "rampguard_lock_acquired_total", Help: "Distributed lock acquisitions."},
	{ID: rampguard.MetricLockContended, Name: "rampguard_lock_contended_total", Help: "Lock attempts refused because the lock was held."},
	{ID: rampguard.MetricLockReleased, Name: "rampguard_lock_released_total", Help: "Distributed lock releases."},
	{ID: rampguard.MetricLockMismatch, Name: "rampguard_lock_mismatch_total", Help: "Lock releases refused for ownership mismatch."},
	{ID: rampguard.MetricLockoutTripped, Name: "rampguard_lockout_tripped_total", Help: "Identifiers locked out after repeated failures."},
}

// HistogramDefs is an exported constant or variable used by the abuse-prevention engine.
var HistogramDefs = []HistogramDef{
	{ID: rampguard.MetricCheckLatency, Name: "rampguard_check_latency_seconds", Help: "CheckLimit latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the abuse-prevention engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds is an exported constant or variable used by the abuse-prevention engine.
//
// It mirrors [HistogramBounds] as float64 upper bounds, excluding +Inf,
// for exporters that build native histogram values.
var HistogramUpperBounds = []float64{
	0.005,
	0.01,
	0.025,
	0.05,
	0.1,
	0.25,
	0.5,
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
