package cache

import (
	"time"

	"github.com/c360/insight/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
// Stats are ALWAYS collected - they are not optional.
// Metrics are optional and exposed via WithMetrics().
type cacheOptions[V any] struct {
	// metricsReg is optional - if provided, cache stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string

	// evictCallback is called when items are removed from the cache
	evictCallback EvictCallback[V]

	// now is the clock used for TTL decisions (injectable for tests)
	now func() time.Time

	// sizeOf estimates the memory footprint of a value in bytes
	sizeOf func(V) int
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked whenever an entry is removed
// by eviction, invalidation, expiry, or cleanup. The callback runs outside
// the cache lock and must not call back into the cache synchronously if it
// needs a consistent view.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithClock overrides the time source used for TTL freshness decisions.
// Intended for tests; if now is nil, this option is ignored.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(opts *cacheOptions[V]) {
		if now != nil {
			opts.now = now
		}
	}
}

// WithSizeEstimator sets the function used to estimate value sizes for
// approximate memory accounting. If fn is nil, this option is ignored.
func WithSizeEstimator[V any](fn func(V) int) Option[V] {
	return func(opts *cacheOptions[V]) {
		if fn != nil {
			opts.sizeOf = fn
		}
	}
}

// applyOptions applies functional options to create final cache configuration.
// This is an internal helper used by cache constructors.
func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{
		now:    time.Now,
		sizeOf: func(V) int { return 0 },
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
