// Package metrics defines the Prometheus collectors recorded around layout passes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for layout passes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeUpstream = "upstream_error"
)

// Metrics holds the collectors. The zero value is not usable; call New.
type Metrics struct {
	layouts     *prometheus.CounterVec
	layoutTime  prometheus.Histogram
	batchSpans  prometheus.Histogram
	rootSpans   prometheus.Counter
	cacheLookup *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		layouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracestack",
			Name:      "layout_passes_total",
			Help:      "Layout passes by outcome.",
		}, []string{"outcome"}),
		layoutTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tracestack",
			Name:      "layout_duration_seconds",
			Help:      "Time spent linking and laying out one span batch.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		batchSpans: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tracestack",
			Name:      "batch_spans",
			Help:      "Number of spans per laid out batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		rootSpans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracestack",
			Name:      "root_spans_total",
			Help:      "Spans rendered without an in-batch parent.",
		}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracestack",
			Name:      "cache_lookups_total",
			Help:      "Span batch cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.layouts, m.layoutTime, m.batchSpans, m.rootSpans, m.cacheLookup)
	return m
}

// ObserveLayout records a successful pass over a batch.
func (m *Metrics) ObserveLayout(spans, roots int, took time.Duration) {
	m.layouts.WithLabelValues(OutcomeOK).Inc()
	m.layoutTime.Observe(took.Seconds())
	m.batchSpans.Observe(float64(spans))
	m.rootSpans.Add(float64(roots))
}

// LayoutFailed records a pass that produced no geometry.
func (m *Metrics) LayoutFailed(outcome string) {
	m.layouts.WithLabelValues(outcome).Inc()
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.WithLabelValues(result).Inc()
}
