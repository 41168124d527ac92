package analytics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/insight/metric"
)

// orchestratorMetrics holds Prometheus metrics for the orchestrator.
type orchestratorMetrics struct {
	analyses         prometheus.Counter
	analyzerFailures *prometheus.CounterVec
	duration         prometheus.Histogram
	entities         prometheus.Gauge
}

// newOrchestratorMetrics creates and registers orchestrator metrics.
func newOrchestratorMetrics(registry *metric.MetricsRegistry) (*orchestratorMetrics, error) {
	m := &orchestratorMetrics{
		analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "analytics",
			Name:      "analyses_total",
			Help:      "Total completed analysis runs",
		}),
		analyzerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "analytics",
			Name:      "analyzer_failures_total",
			Help:      "Total analyzer failures compensated with empty contributions",
		}, []string{"analyzer"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "analytics",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of analysis runs",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "analytics",
			Name:      "entities",
			Help:      "Number of entities with an initialized profile",
		}),
	}

	if err := registry.RegisterCounter("analytics", "analyses_total", m.analyses); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("analytics", "analyzer_failures_total", m.analyzerFailures); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram("analytics", "analysis_duration_seconds", m.duration); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("analytics", "entities", m.entities); err != nil {
		return nil, err
	}

	return m, nil
}
