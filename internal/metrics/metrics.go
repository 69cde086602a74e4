// Package metrics holds the Prometheus collectors for mutations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	txSeconds *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookreview",
			Name:      "mutations_total",
			Help:      "Book and comment mutations by operation and result.",
		}, []string{"op", "result"}),
		txSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookreview",
			Name:      "tx_duration_seconds",
			Help:      "Duration of mutation transactions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(
		m.mutations,
		m.txSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is exposed for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Observe records one finished mutation.
func (m *Metrics) Observe(op, result string, started time.Time) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result).Inc()
	m.txSeconds.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Mutations exposes the counter for tests. It is nil for a nil Metrics.
func (m *Metrics) Mutations() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.mutations
}
