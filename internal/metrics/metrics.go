// Package metrics exposes Prometheus collectors for the audit pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triggersTotal           *prometheus.CounterVec
	auditsTotal             *prometheus.CounterVec
	debounceSuppressedTotal *prometheus.CounterVec
	fanoutPublishesTotal    *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times; collectors register on the default registry exactly once.
func Init() {
	once.Do(func() {
		triggersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_triggers_total",
				Help: "Total trigger invocations, labeled by terminal outcome.",
			},
			[]string{"outcome"},
		)

		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_reports_total",
				Help: "Total reports fetched, labeled by source and strategy.",
			},
			[]string{"source", "strategy"},
		)

		debounceSuppressedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_debounce_suppressed_total",
				Help: "Triggers suppressed by the debounce window, labeled by source.",
			},
			[]string{"source"},
		)

		fanoutPublishesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_fanout_publishes_total",
				Help: "Fan-out publish attempts, labeled by status.",
			},
			[]string{"status"},
		)
	})
}

// ObserveTrigger counts a trigger invocation by terminal outcome.
func ObserveTrigger(outcome string) {
	if triggersTotal == nil {
		return
	}
	triggersTotal.WithLabelValues(outcome).Inc()
}

// ObserveAudit counts a successfully fetched report.
func ObserveAudit(sourceID, strategy string) {
	if auditsTotal == nil {
		return
	}
	auditsTotal.WithLabelValues(sourceID, strategy).Inc()
}

// ObserveDebounce counts a debounced trigger.
func ObserveDebounce(sourceID string) {
	if debounceSuppressedTotal == nil {
		return
	}
	debounceSuppressedTotal.WithLabelValues(sourceID).Inc()
}

// ObservePublish counts one fan-out publish attempt.
func ObservePublish(status string) {
	if fanoutPublishesTotal == nil {
		return
	}
	fanoutPublishesTotal.WithLabelValues(status).Inc()
}
