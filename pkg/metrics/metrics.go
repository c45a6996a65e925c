// Package metrics exposes the consumer's operational counters as
// Prometheus collectors. It is ambient observability, not part of the
// delivery contract: nothing in pkg/dafka depends on metrics being
// registered, and a nil *Metrics is safe to use (every method no-ops).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the collectors the gap detector and fetch emitter update.
type Metrics struct {
	Delivered        *prometheus.CounterVec
	DroppedDuplicate *prometheus.CounterVec
	FetchesEmitted   *prometheus.CounterVec
	EarliestEmitted  *prometheus.CounterVec
	GapSize          *prometheus.HistogramVec
}

// New builds a Metrics with unregistered collectors.
func New() *Metrics {
	return &Metrics{
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dafka",
			Subsystem: "consumer",
			Name:      "delivered_total",
			Help:      "Number of DATA/DIRECT payloads delivered to the application.",
		}, []string{"topic"}),
		DroppedDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dafka",
			Subsystem: "consumer",
			Name:      "dropped_duplicate_total",
			Help:      "Number of DATA/DIRECT frames dropped as duplicates or stale reorders.",
		}, []string{"topic"}),
		FetchesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dafka",
			Subsystem: "consumer",
			Name:      "fetches_emitted_total",
			Help:      "Number of Fetch frames published.",
		}, []string{"topic"}),
		EarliestEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dafka",
			Subsystem: "consumer",
			Name:      "earliest_emitted_total",
			Help:      "Number of Earliest frames published.",
		}, []string{"topic"}),
		GapSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dafka",
			Subsystem: "consumer",
			Name:      "gap_size",
			Help:      "Size (in sequence count) of each detected gap.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"topic"}),
	}
}

// MustRegister registers every collector on reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	if m == nil {
		return
	}
	reg.MustRegister(m.Delivered, m.DroppedDuplicate, m.FetchesEmitted, m.EarliestEmitted, m.GapSize)
}

// ObserveDelivered records one delivered payload for topic.
func (m *Metrics) ObserveDelivered(topic string) {
	if m == nil {
		return
	}
	m.Delivered.WithLabelValues(topic).Inc()
}

// ObserveDroppedDuplicate records one dropped duplicate/stale frame for topic.
func (m *Metrics) ObserveDroppedDuplicate(topic string) {
	if m == nil {
		return
	}
	m.DroppedDuplicate.WithLabelValues(topic).Inc()
}

// ObserveFetch records one emitted Fetch frame of the given gap size.
func (m *Metrics) ObserveFetch(topic string, gapSize uint64) {
	if m == nil {
		return
	}
	m.FetchesEmitted.WithLabelValues(topic).Inc()
	m.GapSize.WithLabelValues(topic).Observe(float64(gapSize))
}

// ObserveEarliest records one emitted Earliest frame for topic.
func (m *Metrics) ObserveEarliest(topic string) {
	if m == nil {
		return
	}
	m.EarliestEmitted.WithLabelValues(topic).Inc()
}
