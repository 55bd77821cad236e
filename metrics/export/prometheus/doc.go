// Package prometheus provides Prometheus collectors for rampguard metrics.
//
// [NewPrometheusExporter] accepts a [rampguard.Engine] and exposes an [http.Handler]
// that renders all rampguard counters and histograms in Prometheus text exposition
// format. Counter names are prefixed rampguard_*_total; the single histogram is
// rampguard_check_latency_seconds.
//
// [NewCollector] wraps the same snapshot as a client_golang
// [promclient.Collector] for processes that already run a shared registry.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler
//     or register the Collector themselves.
//   - Mutate engine state.
package prometheus
