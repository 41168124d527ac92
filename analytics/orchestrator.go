// Package analytics implements the orchestration engine: it coordinates the
// datastore, the pluggable analyzers, the result cache, and the profile
// store to produce per-entity analytics with derived confidence, health, and
// insight strings.
//
// Failure policy: only an unknown entity surfaces as an error from
// GetAnalytics and TriggerRefresh. Analyzer failures contribute empty lists,
// persistence failures are logged, and bulk refreshes are all-settled.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/c360/insight/errors"
	"github.com/c360/insight/metric"
	"github.com/c360/insight/pkg/cache"
	"github.com/c360/insight/pkg/worker"
	"github.com/c360/insight/profile"
)

// tagAnalytics marks every cached analytics entry for bulk invalidation.
const tagAnalytics = "analytics"

// entityTag is the per-entity cache tag.
func entityTag(entityID string) string {
	return "entity:" + entityID
}

// Orchestrator is the engine's public analytics API. Construct one instance
// at process start and pass it by reference to consumers; it owns its caches
// and profile store exclusively.
type Orchestrator struct {
	datastore Datastore
	analyzers Analyzers
	profiles  *profile.Store
	results   cache.Cache[*AnalyticsResult]

	// subresults caches individual analyzer outputs keyed by entity and a
	// fingerprint of the input records, so an entity's unchanged record set
	// reuses analyzer work across full-result recomputations.
	subresults cache.Cache[any]

	config Config
	goals  []Goal
	logger *slog.Logger
	now    func() time.Time

	metrics         *orchestratorMetrics
	metricsRegistry *metric.MetricsRegistry
	core            *metric.Metrics

	// group de-duplicates concurrent GetAnalytics calls per entity: a second
	// caller for the same id attaches to the in-flight computation.
	group singleflight.Group

	refreshMu   sync.Mutex
	refreshPool *worker.Pool[string]
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics registers orchestrator metrics with the given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *Orchestrator) {
		o.metricsRegistry = registry
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithGoals sets the goals handed to the predictive analyzer.
func WithGoals(goals []Goal) Option {
	return func(o *Orchestrator) {
		o.goals = goals
	}
}

// WithSubResultCache overrides the analyzer sub-result cache. Defaults to an
// in-memory cache sized like the result cache.
func WithSubResultCache(c cache.Cache[any]) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.subresults = c
		}
	}
}

// New creates an orchestrator over the given collaborators. The result cache
// and the profile store become owned by the orchestrator: no other component
// may mutate them.
func New(
	datastore Datastore,
	profiles *profile.Store,
	results cache.Cache[*AnalyticsResult],
	analyzers Analyzers,
	config Config,
	options ...Option,
) (*Orchestrator, error) {
	if datastore == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "analytics", "New", "datastore is required")
	}
	if profiles == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "analytics", "New", "profile store is required")
	}
	if results == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "analytics", "New", "result cache is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		datastore: datastore,
		analyzers: analyzers,
		profiles:  profiles,
		results:   results,
		config:    config,
		logger:    slog.Default(),
		now:       time.Now,
	}

	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	o.logger = o.logger.With("component", "analytics")

	if o.subresults == nil {
		sub, err := cache.New[any](256, 5*time.Minute)
		if err != nil {
			return nil, err
		}
		o.subresults = sub
	}

	if o.metricsRegistry != nil {
		m, err := newOrchestratorMetrics(o.metricsRegistry)
		if err != nil {
			return nil, errors.WrapTransient(err, "analytics", "New", "metrics registration")
		}
		o.metrics = m
		o.core = o.metricsRegistry.CoreMetrics()
	}

	return o, nil
}

// compensated records an error the engine absorbed instead of surfacing,
// labelled with its classification.
func (o *Orchestrator) compensated(err error) {
	if o.core != nil {
		o.core.ErrorsTotal.WithLabelValues("analytics", errors.Classify(err).String()).Inc()
	}
}

// cacheKey builds the deterministic result-cache key for an entity.
func (o *Orchestrator) cacheKey(entityID string) string {
	return cache.Key("analytics", map[string]any{"entity": entityID})
}

// InitializeEntity ensures the entity has a lifecycle profile. Idempotent.
func (o *Orchestrator) InitializeEntity(ctx context.Context, entityID string) {
	o.profiles.InitializeEntity(ctx, entityID)
	if o.metrics != nil {
		o.metrics.entities.Set(float64(o.profiles.Count()))
	}
}

// GetAnalytics returns the entity's analytics, serving from cache when a
// fresh result exists and computing otherwise. Concurrent calls for the same
// entity share one computation. The only error it returns is an unknown
// entity; every other failure is compensated.
func (o *Orchestrator) GetAnalytics(ctx context.Context, entityID string) (*AnalyticsResult, error) {
	o.InitializeEntity(ctx, entityID)

	key := o.cacheKey(entityID)
	if result, ok := o.results.Get(key); ok {
		return result, nil
	}

	value, err, _ := o.group.Do(entityID, func() (any, error) {
		// A concurrent caller may have populated the cache while this call
		// waited on the flight group.
		if result, ok := o.results.Get(key); ok {
			return result, nil
		}
		return o.analyze(ctx, entityID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*AnalyticsResult), nil
}

// TriggerRefresh discards any cached state for the entity and recomputes,
// guaranteeing exactly one fresh analyzer invocation.
func (o *Orchestrator) TriggerRefresh(ctx context.Context, entityID string) (*AnalyticsResult, error) {
	o.results.InvalidateByTag(entityTag(entityID))
	o.subresults.InvalidateByTag(entityTag(entityID))
	return o.GetAnalytics(ctx, entityID)
}

// RefreshSummary reports the outcome of a bulk refresh.
type RefreshSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// TriggerRefreshAll refreshes every known entity concurrently with
// all-settled semantics: one entity's failure is logged and counted, never
// aborting the batch. Throughput is paced by the configured rate limit.
func (o *Orchestrator) TriggerRefreshAll(ctx context.Context) (RefreshSummary, error) {
	start := o.now()

	entities, err := o.datastore.GetEntities(ctx)
	if err != nil {
		return RefreshSummary{}, errors.WrapTransient(err, "analytics", "TriggerRefreshAll",
			"listing entities")
	}

	var limiter *rate.Limiter
	if o.config.RefreshRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.config.RefreshRateLimit), 1)
	}

	var mu sync.Mutex
	summary := RefreshSummary{Total: len(entities)}

	g := new(errgroup.Group)
	if o.config.RefreshWorkers > 0 {
		g.SetLimit(o.config.RefreshWorkers)
	}

	for _, entity := range entities {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					mu.Lock()
					summary.Failed++
					mu.Unlock()
					return nil
				}
			}

			o.InitializeEntity(ctx, entity.ID)
			if _, err := o.TriggerRefresh(ctx, entity.ID); err != nil {
				o.logger.Warn("refresh failed, continuing batch",
					"entity_id", entity.ID, "error", err)
				mu.Lock()
				summary.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			summary.Succeeded++
			mu.Unlock()
			return nil
		})
	}

	// Goroutines never return errors: all-settled by construction.
	_ = g.Wait()

	summary.Duration = o.now().Sub(start)
	o.logger.Info("bulk refresh complete",
		"total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed,
		"duration", summary.Duration)
	return summary, nil
}

// StatusSummary reports per-entity lifecycle status. Per-entity datastore
// failures degrade that row instead of failing the call.
func (o *Orchestrator) StatusSummary(ctx context.Context) ([]StatusEntry, error) {
	entities, err := o.datastore.GetEntities(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "analytics", "StatusSummary", "listing entities")
	}

	summary := make([]StatusEntry, 0, len(entities))
	for _, entity := range entities {
		entry := StatusEntry{ID: entity.ID, Name: entity.Name}

		if p, ok := o.profiles.Get(entity.ID); ok {
			entry.Initialized = p.IsInitialized
			entry.LastAnalyzed = p.LastAnalyzedAt
			entry.HealthScore = p.HealthScore
		}

		records, err := o.datastore.GetRecordsForEntity(ctx, entity.ID)
		if err != nil {
			o.logger.Warn("status read failed for entity", "entity_id", entity.ID, "error", err)
		} else {
			counts := countByCategory(records)
			entry.HasMinimumData = counts.emotion+counts.sensory+counts.tracking > 0
		}

		summary = append(summary, entry)
	}
	return summary, nil
}

// ClearCache drops cached analytics. With an entity id only that entity's
// entries are removed; with an empty id the whole cache is invalidated in
// O(1) via a version bump.
func (o *Orchestrator) ClearCache(entityID string) {
	if entityID == "" {
		o.results.InvalidateVersion()
		o.subresults.InvalidateVersion()
		return
	}
	o.results.InvalidateByTag(entityTag(entityID))
	o.subresults.InvalidateByTag(entityTag(entityID))
}

// CacheStats exposes the result cache statistics for the status endpoint.
func (o *Orchestrator) CacheStats() cache.StatsSummary {
	return o.results.Stats().Summary()
}

// StartBackgroundRefresh launches a worker pool that re-analyzes every known
// entity each interval. Refresh jobs are fail-soft; a full queue drops the
// job until the next tick.
func (o *Orchestrator) StartBackgroundRefresh(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "StartBackgroundRefresh",
			fmt.Sprintf("interval must be positive, got %v", interval))
	}

	o.refreshMu.Lock()
	defer o.refreshMu.Unlock()
	if o.refreshPool != nil {
		return errors.WrapInvalid(fmt.Errorf("background refresh already running"),
			"analytics", "StartBackgroundRefresh", "duplicate start")
	}

	var poolOpts []worker.Option[string]
	if o.metricsRegistry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[string](o.metricsRegistry, "refresh"))
	}

	pool := worker.NewPool(o.config.RefreshWorkers, o.config.RefreshQueueSize,
		func(ctx context.Context, entityID string) error {
			if _, err := o.TriggerRefresh(ctx, entityID); err != nil {
				o.logger.Warn("background refresh failed", "entity_id", entityID, "error", err)
				return err
			}
			return nil
		}, poolOpts...)

	if err := pool.Start(ctx); err != nil {
		return err
	}
	o.refreshPool = pool

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				entities, err := o.datastore.GetEntities(ctx)
				if err != nil {
					o.logger.Warn("background refresh skipped, entity listing failed", "error", err)
					continue
				}
				for _, entity := range entities {
					if err := pool.Submit(entity.ID); err != nil {
						o.logger.Debug("refresh job dropped", "entity_id", entity.ID, "error", err)
					}
				}
			}
		}
	}()

	o.logger.Info("background refresh started",
		"interval", interval, "workers", o.config.RefreshWorkers)
	return nil
}

// Close stops the background refresh pool and releases the caches.
func (o *Orchestrator) Close() error {
	o.refreshMu.Lock()
	pool := o.refreshPool
	o.refreshPool = nil
	o.refreshMu.Unlock()

	if pool != nil {
		if err := pool.Stop(10 * time.Second); err != nil {
			o.logger.Warn("refresh pool did not drain in time", "error", err)
		}
	}

	if err := o.results.Close(); err != nil {
		return err
	}
	return o.subresults.Close()
}

// analyze runs one full analysis for the entity and records the outcome in
// the cache and the profile store.
func (o *Orchestrator) analyze(ctx context.Context, entityID string) (*AnalyticsResult, error) {
	start := o.now()

	records, err := o.datastore.GetRecordsForEntity(ctx, entityID)
	if err != nil {
		if errors.IsNotFound(err) {
			// The one condition allowed to surface.
			return nil, err
		}
		// Transient datastore failure: proceed with zero records so the
		// caller still gets a (degraded) result.
		o.logger.Warn("record read failed, analyzing with empty data",
			"entity_id", entityID, "error", err)
		o.compensated(err)
		records = nil
	}

	counts := countByCategory(records)
	now := o.now()
	result := &AnalyticsResult{
		EntityID:       entityID,
		Patterns:       []Pattern{},
		Correlations:   []Correlation{},
		Predictions:    []Prediction{},
		Anomalies:      []Anomaly{},
		HasMinimumData: counts.emotion+counts.sensory+counts.tracking > 0,
		GeneratedAt:    now,
	}

	if result.HasMinimumData {
		flags := profile.FeatureFlags{}
		if p, ok := o.profiles.Get(entityID); ok {
			flags = p.FeatureFlags
		}
		fp := cache.Fingerprint(records)

		if flags.Pattern && o.analyzers.Pattern != nil {
			result.Patterns = guardedAnalyze(ctx, o, entityID, "pattern", fp,
				func(ctx context.Context) ([]Pattern, error) {
					return o.analyzers.Pattern.Analyze(ctx, records, o.config.WindowDays)
				})
		}
		if flags.Correlation && o.analyzers.Correlation != nil {
			result.Correlations = guardedAnalyze(ctx, o, entityID, "correlation", fp,
				func(ctx context.Context) ([]Correlation, error) {
					return o.analyzers.Correlation.Analyze(ctx, records)
				})
		}
		if flags.Prediction && o.analyzers.Predictive != nil {
			result.Predictions = guardedAnalyze(ctx, o, entityID, "prediction", fp,
				func(ctx context.Context) ([]Prediction, error) {
					return o.analyzers.Predictive.Analyze(ctx, records, o.goals)
				})
		}
		if flags.Anomaly && o.analyzers.Anomaly != nil {
			result.Anomalies = guardedAnalyze(ctx, o, entityID, "anomaly", fp,
				func(ctx context.Context) ([]Anomaly, error) {
					return o.analyzers.Anomaly.Detect(ctx, records)
				})
		}
	}

	result.Confidence = computeConfidence(o.config, records, now)
	result.Insights = buildInsights(o.config, records, result)

	if err := o.results.Set(o.cacheKey(entityID), result,
		entityTag(entityID), tagAnalytics); err != nil {
		o.logger.Warn("result caching failed", "entity_id", entityID, "error", err)
		o.compensated(err)
	}

	health := computeHealthScore(o.config, result)
	if err := o.profiles.Apply(ctx, entityID, profile.Update{
		LastAnalyzedAt: &now,
		HealthScore:    &health,
	}); err != nil {
		o.logger.Warn("profile update failed", "entity_id", entityID, "error", err)
		o.compensated(err)
	}

	if o.metrics != nil {
		o.metrics.analyses.Inc()
		o.metrics.duration.Observe(o.now().Sub(start).Seconds())
	}

	o.logger.Debug("analysis complete",
		"entity_id", entityID,
		"records", len(records),
		"confidence", result.Confidence,
		"health", health,
		"insights", len(result.Insights))
	return result, nil
}

// guardedAnalyze wraps one analyzer call fail-soft: a fingerprint-matched
// cached output is reused; an error or panic yields an empty contribution
// for that analyzer only. Sub-results are keyed per entity as well as per
// fingerprint, so invalidating an entity's tag always forces that entity's
// next analysis to run the analyzer fresh, even if another entity happens
// to carry an identical record set.
func guardedAnalyze[T any](
	ctx context.Context,
	o *Orchestrator,
	entityID, analyzer, fingerprint string,
	fn func(context.Context) ([]T, error),
) []T {
	subKey := cache.Key("analyzer:"+analyzer, map[string]any{"entity": entityID, "fp": fingerprint})
	if cached, ok := o.subresults.Get(subKey); ok {
		if values, ok := cached.([]T); ok {
			return values
		}
	}

	values, err := invokeAnalyzer(ctx, fn)
	if err != nil {
		o.logger.Warn("analyzer failed, contributing empty result",
			"analyzer", analyzer, "entity_id", entityID, "error", err)
		o.compensated(err)
		if o.metrics != nil {
			o.metrics.analyzerFailures.WithLabelValues(analyzer).Inc()
		}
		return []T{}
	}
	if values == nil {
		values = []T{}
	}

	if err := o.subresults.Set(subKey, values, entityTag(entityID)); err != nil {
		o.logger.Debug("sub-result caching failed", "analyzer", analyzer, "error", err)
	}
	return values
}

// invokeAnalyzer converts an analyzer panic into an error so external
// collaborators cannot take down the engine.
func invokeAnalyzer[T any](ctx context.Context, fn func(context.Context) ([]T, error)) (values []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapTransient(errors.ErrAnalyzerFailed, "analytics", "invokeAnalyzer",
				fmt.Sprintf("analyzer panic: %v", r))
			values = nil
		}
	}()
	return fn(ctx)
}
