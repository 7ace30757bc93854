package prometheus

import (
	"context"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// availabilityTimeout bounds the probe a scrape may trigger.
const availabilityTimeout = 2 * time.Second

// Source is what the collector reads on every scrape.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
	IsAvailable(ctx context.Context) bool
}

type counterDesc struct {
	id   goSession.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   goSession.MetricID
	desc *prometheus.Desc
}

// Collector exposes session counters as Prometheus const metrics.
type Collector struct {
	source     Source
	counters   []counterDesc
	histograms []histogramDesc
	dropped    *prometheus.Desc
	available  *prometheus.Desc
}

// NewCollector builds a Collector over source. *goSession.Manager satisfies Source.
func NewCollector(source Source) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		dropped: prometheus.NewDesc(internaldefs.AuditDroppedName,
			"Dropped audit events due to dispatcher backpressure.", nil, nil),
		available: prometheus.NewDesc(internaldefs.CacheAvailableName,
			"1 while the session cache is reachable, 0 otherwise.", nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	for _, hd := range c.histograms {
		ch <- hd.desc
	}
	ch <- c.dropped
	ch <- c.available
}

// Collect implements prometheus.Collector. Counters of a disabled Metrics
// are omitted.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.MetricsSnapshot()

	for _, cd := range c.counters {
		v, ok := snapshot.Counters[cd.id]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(v))
	}

	for _, hd := range c.histograms {
		raw, ok := snapshot.Histograms[hd.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, le := range internaldefs.HistogramBounds {
			buckets[le] = cumulative[i]
		}
		// Sum is not tracked by the in-process histogram.
		ch <- prometheus.MustNewConstHistogram(hd.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.AuditDropped()))

	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()
	var up float64
	if c.source.IsAvailable(ctx) {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, up)
}

// Handler returns a /metrics handler over a private registry holding the
// session collector plus the Go runtime and process collectors.
func Handler(source Source) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
