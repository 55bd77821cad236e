// Package limiters implements the four rate-limit stages composed by the
// rampguard engine, plus the failed-attempt lockout counter.
//
// # Stages
//
//   - [EmailWindowLimiter] — sliding window over a sorted set of timestamps.
//   - [IPBucketLimiter] — continuously refilled fractional token bucket.
//   - [ProgressiveLimiter] — escalating mandatory wait between attempts.
//   - [GlobalLimiter] — fixed-window cap across all identifiers of a subject.
//   - [LockoutLimiter] — failure counter that trips an identifier lockout.
//
// Every limiter is stateless: all state lives in the store under TTL-bearing
// keys, so instances are safe for concurrent use and state self-heals when a
// caller disappears. Check-then-write sequences are not atomic as a whole;
// bounded races under concurrent load on one identifier are accepted, which
// is fine for abuse mitigation and wrong for exact accounting.
//
// # Architecture boundaries
//
// Each limiter owns its key shapes (keys.go) and depends only on
// store.Client and an injectable clock. Policy numbers come from Config
// structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import rampguard or any sibling internal package.
//   - Decide what a denial means — it reports a [Decision], the engine and
//     its callers decide consequences.
//   - Convert store failures into allow or deny outcomes.
package limiters
