package prometheus

import (
	promclient "github.com/prometheus/client_golang/prometheus"

	rampguard "github.com/zestpay/rampguard"
	"github.com/zestpay/rampguard/metrics/export/internaldefs"
)

// Collector bridges rampguard metrics into a client_golang registry. Unlike
// [PrometheusExporter], which renders the text format itself, Collector lets
// rampguard share a [promclient.Registry] with other instrumented subsystems.
type Collector struct {
	source   metricsSource
	counters map[rampguard.MetricID]*promclient.Desc
	histos   map[rampguard.MetricID]*promclient.Desc
	dropped  *promclient.Desc
}

var _ promclient.Collector = (*Collector)(nil)

// NewCollector creates a [Collector] reading from the given [rampguard.Engine].
func NewCollector(engine *rampguard.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource creates a [Collector] from a custom metrics source.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:   source,
		counters: make(map[rampguard.MetricID]*promclient.Desc, len(internaldefs.CounterDefs)),
		histos:   make(map[rampguard.MetricID]*promclient.Desc, len(internaldefs.HistogramDefs)),
		dropped: promclient.NewDesc(
			"rampguard_audit_dropped_total",
			"Dropped audit events due to dispatcher backpressure.",
			nil, nil,
		),
	}

	for _, def := range internaldefs.CounterDefs {
		c.counters[def.ID] = promclient.NewDesc(def.Name, def.Help, nil, nil)
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histos[def.ID] = promclient.NewDesc(def.Name, def.Help, nil, nil)
	}

	return c
}

// Describe implements [promclient.Collector].
func (c *Collector) Describe(ch chan<- *promclient.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histos {
		ch <- d
	}
	ch <- c.dropped
}

// Collect implements [promclient.Collector].
func (c *Collector) Collect(ch chan<- promclient.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()

	for _, def := range internaldefs.CounterDefs {
		ch <- promclient.MustNewConstMetric(
			c.counters[def.ID],
			promclient.CounterValue,
			float64(snapshot.Counters[def.ID]),
		)
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)

		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]

		// Sum is not available in core snapshots; exported as zero.
		ch <- promclient.MustNewConstHistogram(c.histos[def.ID], count, 0, buckets)
	}

	ch <- promclient.MustNewConstMetric(c.dropped, promclient.CounterValue, float64(c.source.AuditDropped()))
}
