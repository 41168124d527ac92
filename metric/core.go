package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the Prometheus namespace for all engine metrics.
const Namespace = "insight"

// Metrics holds the core platform metrics shared by every component.
// Component-specific metrics (cache, worker pool, orchestrator) are
// registered separately through the MetricsRegistry.
type Metrics struct {
	// ServiceStatus reports 1 when the engine is running, 0 otherwise.
	ServiceStatus prometheus.Gauge

	// ErrorsTotal counts errors by component and classification.
	ErrorsTotal *prometheus.CounterVec

	// PersistenceFailures counts profile load/save failures. These are
	// fail-soft: in-memory state stays authoritative.
	PersistenceFailures prometheus.Counter

	// HealthCheckStatus reports the result of the last health check.
	HealthCheckStatus prometheus.Gauge
}

// NewMetrics creates the core platform metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "service_status",
			Help:      "Engine status (1 = running, 0 = stopped)",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total errors by component and classification",
		}, []string{"component", "class"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "persistence_failures_total",
			Help:      "Total profile persistence failures (fail-soft)",
		}),
		HealthCheckStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "health_check_status",
			Help:      "Result of the last health check (1 = healthy)",
		}),
	}
}
