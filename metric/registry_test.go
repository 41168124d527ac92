package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/insight/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	reg := NewMetricsRegistry()
	require.NotNil(t, reg)
	require.NotNil(t, reg.PrometheusRegistry())
	require.NotNil(t, reg.CoreMetrics())

	// Core metrics are registered and gatherable.
	reg.Metrics.ServiceStatus.Set(1)
	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "insight_service_status" {
			found = true
		}
	}
	assert.True(t, found, "expected insight_service_status in gathered metrics")
}

func TestRegisterCounter(t *testing.T) {
	reg := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test",
	})
	require.NoError(t, reg.RegisterCounter("analytics", "test_counter", counter))

	// Duplicate registration by key is rejected.
	err := reg.RegisterCounter("analytics", "test_counter", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterConflictingCollector(t *testing.T) {
	reg := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "test"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "test"})

	require.NoError(t, reg.RegisterCounter("a", "first", first))

	// Same fully-qualified prometheus name under a different key conflicts.
	err := reg.RegisterCounter("b", "second", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterAllKinds(t *testing.T) {
	reg := NewMetricsRegistry()

	require.NoError(t, reg.RegisterGauge("c", "g", prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "test_gauge", Help: "test"})))
	require.NoError(t, reg.RegisterHistogram("c", "h", prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "test_histogram", Help: "test"})))
	require.NoError(t, reg.RegisterCounterVec("c", "cv", prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_counter_vec", Help: "test"}, []string{"label"})))
	require.NoError(t, reg.RegisterGaugeVec("c", "gv", prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "test"}, []string{"label"})))
	require.NoError(t, reg.RegisterHistogramVec("c", "hv", prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "test_histogram_vec", Help: "test"}, []string{"label"})))
}

func TestUnregister(t *testing.T) {
	reg := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_total", Help: "test"})
	require.NoError(t, reg.RegisterCounter("c", "gone", counter))

	assert.True(t, reg.Unregister("c", "gone"))
	assert.False(t, reg.Unregister("c", "gone"))

	// Re-registration after unregister works.
	require.NoError(t, reg.RegisterCounter("c", "gone", counter))
}
