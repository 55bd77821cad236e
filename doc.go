// Package rampguard provides the abuse-prevention layer of a crypto off-ramp
// platform: a four-stage composed rate limiter (sliding window, token bucket,
// progressive delay, global cap) and a TTL-bounded distributed lock, both
// coordinated through a shared key-value store.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// rampguard is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Result, MetricsSnapshot, AuditEvent, etc.). Sub-limiter
// algorithms and store key layout live under internal/ and are never
// exported. The store capability interface lives in store/ so callers can
// plug any backend; the go-redis adapter lives in store/redisstore/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store key shapes in its public API.
//   - Perform I/O outside of Engine and lock methods (construction via
//     Builder is allocation-only until Build).
//   - Convert a store failure into an allow or deny decision; infrastructure
//     errors always surface to the caller.
//
// # Performance contract
//
// CheckLimit is the hot path. A fully allowed check costs at most eight store
// round-trips (sliding window 3, token bucket 2, progressive delay 3 within
// one window, global counter 1 amortized); every denial short-circuits the
// remaining stages. Lock acquire and release are one and two round-trips.
package rampguard
