// Package metrics exposes Prometheus metrics for lot resolution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Strategy attempt outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// ResultUnresolved labels lots that ended without a location.
const ResultUnresolved = "unresolved"

// Metrics holds the resolution counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	strategyAttempts *prometheus.CounterVec
	strategyDuration *prometheus.HistogramVec
	lotsTotal        *prometheus.CounterVec
	addressCache     *prometheus.CounterVec
}

// New creates the metrics and registers them on registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		strategyAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotmap_strategy_attempts_total",
				Help: "Resolution strategy attempts by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		strategyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lotmap_strategy_duration_seconds",
				Help: "Time spent in each resolution strategy",
				// 5ms to ~10s, the upstream request timeout.
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"strategy"},
		),
		lotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotmap_lots_total",
				Help: "Lots processed by final precision or unresolved",
			},
			[]string{"result"},
		),
		addressCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lotmap_address_cache_total",
				Help: "Address cache lookups by result",
			},
			[]string{"result"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.strategyAttempts.Describe(ch)
	m.strategyDuration.Describe(ch)
	m.lotsTotal.Describe(ch)
	m.addressCache.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.strategyAttempts.Collect(ch)
	m.strategyDuration.Collect(ch)
	m.lotsTotal.Collect(ch)
	m.addressCache.Collect(ch)
}

// ObserveStrategy records one strategy attempt.
func (m *Metrics) ObserveStrategy(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.strategyAttempts.WithLabelValues(strategy, outcome).Inc()
	m.strategyDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveLot records the final result of one lot: a precision value or
// ResultUnresolved.
func (m *Metrics) ObserveLot(result string) {
	if m == nil {
		return
	}
	m.lotsTotal.WithLabelValues(result).Inc()
}

// ObserveCache records an address cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := OutcomeMiss
	if hit {
		result = OutcomeHit
	}
	m.addressCache.WithLabelValues(result).Inc()
}
