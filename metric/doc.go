// Package metric provides Prometheus metrics infrastructure for the engine.
//
// A MetricsRegistry wraps a private prometheus.Registry, tracks registered
// collectors by "component.metric" key to catch duplicate registrations
// early, and carries a small set of core platform metrics (service status,
// errors by classification, persistence failures, health).
//
// Components register their own metrics through the MetricsRegistrar
// interface:
//
//	reg := metric.NewMetricsRegistry()
//	counter := prometheus.NewCounter(prometheus.CounterOpts{...})
//	if err := reg.RegisterCounter("analytics", "analyses_total", counter); err != nil {
//	    return err
//	}
//
// Server exposes the registry over HTTP with promhttp (OpenMetrics enabled),
// plus a /health endpoint and any extra handlers wired in by the binary:
//
//	srv := metric.NewServer(9090, "/metrics", reg)
//	srv.Handle("/status", statusHandler)
//	go srv.Start()
package metric
