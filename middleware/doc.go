// Package middleware exposes HTTP middleware adapters for rate limit and
// lockout enforcement built on top of rampguard.Engine decisions.
//
// # Guards
//
//   - [RateLimit] — runs Engine.CheckLimit per request, fail-closed on store errors.
//   - [RateLimitWith] — same with explicit [Options] (fail-open, callbacks).
//   - [RequireUnlocked] — rejects identifiers under failed-attempt lockout.
//
// Each guard extracts the identifier and IP via a caller-supplied [Extractor],
// calls the engine, and injects the admitted [rampguard.Result] into the
// request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT make
// limiting decisions itself — all decisions are delegated to Engine.CheckLimit.
//
// # What this package must NOT do
//
//   - Read or write limiter state directly (Engine handles I/O).
//   - Invent denial messages (the Engine’s Result.Message is authoritative).
//   - Trust forwarded-for headers implicitly; IP selection belongs to the Extractor.
package middleware
