package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors of a Manager.
type Metrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	sessions        prometheus.Gauge
	refreshFailures prometheus.Counter
	undelivered     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg, together with
// a gauge that reports pending().
func NewMetrics(reg prometheus.Registerer, pending func() float64) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledgerpool",
				Subsystem: "manager",
				Name:      "operations_total",
				Help:      "Completed pool operations by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ledgerpool",
				Subsystem: "manager",
				Name:      "operation_duration_seconds",
				Help:      "Pool operation duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ledgerpool",
				Subsystem: "manager",
				Name:      "sessions",
				Help:      "Live pool sessions.",
			},
		),
		refreshFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ledgerpool",
				Subsystem: "manager",
				Name:      "refresh_failures_total",
				Help:      "Refreshes that left a session on its previous view.",
			},
		),
		undelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ledgerpool",
				Subsystem: "manager",
				Name:      "undelivered_outcomes_total",
				Help:      "Outcomes whose token was no longer pending.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.sessions, m.refreshFailures, m.undelivered)
		if pending != nil {
			reg.MustRegister(prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Namespace: "ledgerpool",
					Subsystem: "correlation",
					Name:      "pending_operations",
					Help:      "Operations registered and not yet completed.",
				},
				pending,
			))
		}
	}

	return m
}

func (m *Metrics) observe(kind string, err error, d time.Duration) {
	m.operations.WithLabelValues(kind, errorClass(err)).Inc()
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}
