package profile

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/c360/insight/errors"
	"github.com/c360/insight/metric"
	"github.com/c360/insight/storage"
)

// persistKey is the single KV document the whole store round-trips through.
const persistKey = "analytics_profiles"

// Update carries the fields the orchestrator merges into a profile after a
// completed analysis. Nil fields are left untouched.
type Update struct {
	LastAnalyzedAt *time.Time
	HealthScore    *int
}

// Store holds all entity profiles behind a mutex and persists them through
// an injected storage.KV.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*AnalyticsProfile
	kv       storage.KV
	logger   *slog.Logger
	core     *metric.Metrics
}

// Option configures the store.
type Option func(*Store)

// WithMetrics reports persistence failures on the registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Store) {
		if registry != nil {
			s.core = registry.CoreMetrics()
		}
	}
}

// NewStore creates an empty profile store backed by the given KV. Call Load
// to hydrate previously persisted profiles.
func NewStore(kv storage.KV, logger *slog.Logger, options ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		profiles: make(map[string]*AnalyticsProfile),
		kv:       kv,
		logger:   logger.With("component", "profile"),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// persistenceFailed records one fail-soft persistence failure.
func (s *Store) persistenceFailed() {
	if s.core != nil {
		s.core.PersistenceFailures.Inc()
	}
}

// Load hydrates the store from persistence. Records failing schema
// validation are skipped with a warning; the rest of the store loads
// normally. A missing document or a storage failure leaves the store empty:
// load is fail-soft and in-memory state is authoritative from here on.
func (s *Store) Load(ctx context.Context) {
	data, err := s.kv.Get(ctx, persistKey)
	if err != nil {
		if errors.IsKeyNotFound(err) {
			s.logger.Debug("no persisted profiles, starting empty")
		} else {
			s.logger.Warn("profile load failed, starting empty", "error", err)
			s.persistenceFailed()
		}
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("persisted profile document is corrupt, starting empty", "error", err)
		return
	}

	loaded := make(map[string]*AnalyticsProfile, len(raw))
	skipped := 0
	for entityID, record := range raw {
		if err := validateRecord(record); err != nil {
			s.logger.Warn("skipping invalid profile record", "entity_id", entityID, "error", err)
			skipped++
			continue
		}

		var p AnalyticsProfile
		if err := json.Unmarshal(record, &p); err != nil {
			s.logger.Warn("skipping unparsable profile record", "entity_id", entityID, "error", err)
			skipped++
			continue
		}
		loaded[p.EntityID] = &p
	}

	s.mu.Lock()
	s.profiles = loaded
	s.mu.Unlock()

	s.logger.Info("profiles loaded", "count", len(loaded), "skipped", skipped)
}

// InitializeEntity creates a profile for the entity if one does not exist
// yet and persists it. A second call for the same entity is a no-op. Returns
// a copy of the profile.
func (s *Store) InitializeEntity(ctx context.Context, entityID string) *AnalyticsProfile {
	s.mu.Lock()
	existing, exists := s.profiles[entityID]
	if exists {
		out := existing.clone()
		s.mu.Unlock()
		return out
	}

	p := newProfile(entityID)
	s.profiles[entityID] = p
	out := p.clone()
	s.mu.Unlock()

	s.persist(ctx)
	s.logger.Debug("profile initialized", "entity_id", entityID)
	return out
}

// Get returns a copy of the entity's profile.
func (s *Store) Get(entityID string) (*AnalyticsProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[entityID]
	if !exists {
		return nil, false
	}
	return p.clone(), true
}

// Apply merges the update into an existing profile and persists the store.
// Health scores are clamped to [0,100]. Returns an error only when the
// entity has no profile; persistence failures are logged, not propagated.
func (s *Store) Apply(ctx context.Context, entityID string, update Update) error {
	s.mu.Lock()
	p, exists := s.profiles[entityID]
	if !exists {
		s.mu.Unlock()
		return errors.NotFound(entityID, "profile", "Apply")
	}

	if update.LastAnalyzedAt != nil {
		ts := *update.LastAnalyzedAt
		p.LastAnalyzedAt = &ts
	}
	if update.HealthScore != nil {
		score := *update.HealthScore
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		p.HealthScore = score
	}
	s.mu.Unlock()

	s.persist(ctx)
	return nil
}

// All returns copies of every profile, sorted by entity id for deterministic
// iteration.
func (s *Store) All() []*AnalyticsProfile {
	s.mu.RLock()
	out := make([]*AnalyticsProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Count returns the number of profiles currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// persist writes the whole store as one JSON document. Failures are logged
// and swallowed: in-memory state remains authoritative for the process.
func (s *Store) persist(ctx context.Context) {
	s.mu.RLock()
	data, err := json.Marshal(s.profiles)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("profile serialization failed", "error", err)
		s.persistenceFailed()
		return
	}

	if err := s.kv.Put(ctx, persistKey, data); err != nil {
		s.logger.Warn("profile save failed, keeping in-memory state", "error", err)
		s.persistenceFailed()
	}
}
