// Package metrics exposes Prometheus collectors for the reactive engine,
// adapted from the teacher's pkg/bubbly/monitoring/prometheus.go. Where the
// teacher counted composable creations and provide/inject depth, this
// package counts handle creations and mutations by StateChange.Type, since
// those are the reactive-engine's equivalent hot paths.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records engine activity as Prometheus metrics. All metrics are
// prefixed "reactor_" to avoid collisions in a shared registry.
type Collector struct {
	handleCreations       *prometheus.CounterVec
	mutations             *prometheus.CounterVec
	observerNotifications prometheus.Counter
	relationDepth         prometheus.Histogram
	historyFlushLatency   prometheus.Histogram
	registry              prometheus.Registerer
}

var _ Recorder = (*Collector)(nil)

// NewCollector registers every metric against reg and panics on duplicate
// registration, matching the teacher's fail-fast-at-startup behavior.
func NewCollector(reg prometheus.Registerer) *Collector {
	handleCreations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_handle_creations_total",
			Help: "Total number of reactive handles created, partitioned by shape (record, sequence, map, set).",
		},
		[]string{"shape"},
	)

	mutations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_mutations_total",
			Help: "Total number of mutations applied to reactive handles, partitioned by StateChange type.",
		},
		[]string{"type"},
	)

	observerNotifications := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reactor_observer_notifications_total",
			Help: "Total number of observer re-run notifications dispatched by the broadcaster.",
		},
	)

	relationDepth := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reactor_relation_depth",
			Help:    "Histogram of parent/child relational graph depth at link time.",
			Buckets: []float64{0, 1, 2, 3, 5, 7, 10, 15, 20},
		},
	)

	historyFlushLatency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reactor_history_flush_seconds",
			Help:    "Latency of the debounced history recorder flushing a batch to its undo stack.",
			Buckets: prometheus.DefBuckets,
		},
	)

	reg.MustRegister(handleCreations)
	reg.MustRegister(mutations)
	reg.MustRegister(observerNotifications)
	reg.MustRegister(relationDepth)
	reg.MustRegister(historyFlushLatency)

	return &Collector{
		handleCreations:       handleCreations,
		mutations:             mutations,
		observerNotifications: observerNotifications,
		relationDepth:         relationDepth,
		historyFlushLatency:   historyFlushLatency,
		registry:              reg,
	}
}

func (c *Collector) RecordHandleCreation(shape string) {
	c.handleCreations.WithLabelValues(shape).Inc()
}

func (c *Collector) RecordMutation(changeType string) {
	c.mutations.WithLabelValues(changeType).Inc()
}

func (c *Collector) RecordObserverNotification() {
	c.observerNotifications.Inc()
}

func (c *Collector) RecordRelationDepth(depth int) {
	c.relationDepth.Observe(float64(depth))
}

func (c *Collector) RecordHistoryFlush(d time.Duration) {
	c.historyFlushLatency.Observe(d.Seconds())
}
