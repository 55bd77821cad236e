// Package internal groups helper packages that are intentionally private to
// rampguard.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - limiters — the four rate-limit stages and the failed-attempt lockout
//   - metrics — lock-free counters and latency histograms
//
// # What this package must NOT do
//
//   - Export types that appear in the public rampguard API other than
//     through the root package's aliases.
//   - Be imported by any package outside the rampguard module.
package internal
