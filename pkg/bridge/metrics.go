package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	queueDepth  prometheus.Gauge
	pending     prometheus.Gauge
	lateResults prometheus.Counter
	drains      prometheus.Counter
}

// NewMetrics registers the bridge collectors on reg. A nil reg gets a private
// registry so several bridges can coexist in one process (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cad_bridge_operations_total",
			Help: "Operations executed by the main-thread dispatcher, by outcome",
		}, []string{"operation", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cad_bridge_operation_duration_seconds",
			Help:    "Time from submission to completion on the host thread",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"operation"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "cad_bridge_queue_depth",
			Help: "Operations waiting for the next drain",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "cad_bridge_pending_operations",
			Help: "Requesters currently blocked waiting for an outcome",
		}),
		lateResults: f.NewCounter(prometheus.CounterOpts{
			Name: "cad_bridge_late_results_total",
			Help: "Outcomes discarded because their waiter had already timed out",
		}),
		drains: f.NewCounter(prometheus.CounterOpts{
			Name: "cad_bridge_drains_total",
			Help: "Dispatcher drain passes run on the host thread",
		}),
	}
}

func (m *Metrics) observe(op Operation, o Outcome) {
	label := "success"
	if !o.Success {
		label = string(o.Kind)
	}
	m.operations.WithLabelValues(op.Name, label).Inc()
	if !op.CreatedAt.IsZero() {
		m.duration.WithLabelValues(op.Name).Observe(time.Since(op.CreatedAt).Seconds())
	}
}
