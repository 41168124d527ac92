// Package profile maintains per-entity analysis lifecycle metadata: whether
// an entity has been initialized, when it was last analyzed, which analysis
// features are enabled, and its current health score.
//
// Profiles are held in a mutex-guarded map and persisted as one JSON document
// through an injected storage.KV. Persistence is fail-soft: load and save
// failures are logged and the in-memory state stays authoritative for the
// running process.
package profile

import (
	"time"
)

// FeatureFlags controls which analysis features run for an entity. All flags
// default to enabled on initialization.
type FeatureFlags struct {
	Pattern     bool `json:"pattern"`
	Correlation bool `json:"correlation"`
	Prediction  bool `json:"prediction"`
	Anomaly     bool `json:"anomaly"`
	Alerting    bool `json:"alerting"`
}

// allFeaturesEnabled is the default flag set for new profiles.
func allFeaturesEnabled() FeatureFlags {
	return FeatureFlags{
		Pattern:     true,
		Correlation: true,
		Prediction:  true,
		Anomaly:     true,
		Alerting:    true,
	}
}

// MinimumDataRequirements is the per-category record count an entity needs
// before full analytics are meaningful. Defaults to one record of each
// observed category.
type MinimumDataRequirements struct {
	Emotion  int `json:"emotion"`
	Sensory  int `json:"sensory"`
	Tracking int `json:"tracking"`
}

// AnalyticsProfile is the lifecycle record for one entity. Created on first
// InitializeEntity call, mutated only by the orchestrator after a completed
// analysis, never deleted in normal operation.
//
// LastAnalyzedAt is nil until the first completed analysis. Timestamps
// round-trip as RFC 3339 strings.
type AnalyticsProfile struct {
	EntityID                string                  `json:"entity_id"`
	IsInitialized           bool                    `json:"is_initialized"`
	LastAnalyzedAt          *time.Time              `json:"last_analyzed_at,omitempty"`
	FeatureFlags            FeatureFlags            `json:"feature_flags"`
	MinimumDataRequirements MinimumDataRequirements `json:"minimum_data_requirements"`
	HealthScore             int                     `json:"health_score"`
}

// newProfile creates a profile with defaults for a freshly initialized entity.
func newProfile(entityID string) *AnalyticsProfile {
	return &AnalyticsProfile{
		EntityID:      entityID,
		IsInitialized: true,
		FeatureFlags:  allFeaturesEnabled(),
		MinimumDataRequirements: MinimumDataRequirements{
			Emotion:  1,
			Sensory:  1,
			Tracking: 1,
		},
		HealthScore: 0,
	}
}

// clone returns a copy so callers cannot mutate store-internal state.
func (p *AnalyticsProfile) clone() *AnalyticsProfile {
	out := *p
	if p.LastAnalyzedAt != nil {
		ts := *p.LastAnalyzedAt
		out.LastAnalyzedAt = &ts
	}
	return &out
}
