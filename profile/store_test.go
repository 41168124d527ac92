package profile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/insight/errors"
	"github.com/c360/insight/metric"
	"github.com/c360/insight/storage/memstore"
)

// failingKV simulates an unavailable persistence collaborator.
type failingKV struct{}

func (failingKV) Get(_ context.Context, key string) ([]byte, error) {
	return nil, errors.WrapTransient(errors.ErrStorageUnavailable, "failingKV", "Get", key)
}

func (failingKV) Put(_ context.Context, key string, _ []byte) error {
	return errors.WrapTransient(errors.ErrStorageUnavailable, "failingKV", "Put", key)
}

func (failingKV) Delete(_ context.Context, _ string) error { return nil }

func (failingKV) List(_ context.Context, _ string) ([]string, error) { return nil, nil }

func TestInitializeEntityIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memstore.New(), nil)

	first := store.InitializeEntity(ctx, "alice")
	require.NotNil(t, first)
	assert.Equal(t, "alice", first.EntityID)
	assert.True(t, first.IsInitialized)
	assert.Nil(t, first.LastAnalyzedAt)
	assert.Equal(t, 0, first.HealthScore)

	// All feature flags start enabled.
	assert.True(t, first.FeatureFlags.Pattern)
	assert.True(t, first.FeatureFlags.Correlation)
	assert.True(t, first.FeatureFlags.Prediction)
	assert.True(t, first.FeatureFlags.Anomaly)
	assert.True(t, first.FeatureFlags.Alerting)

	// Minimum data requirements default to one record per category.
	assert.Equal(t, MinimumDataRequirements{Emotion: 1, Sensory: 1, Tracking: 1},
		first.MinimumDataRequirements)

	// Second call is a no-op: mutations between calls survive.
	score := 55
	require.NoError(t, store.Apply(ctx, "alice", Update{HealthScore: &score}))
	second := store.InitializeEntity(ctx, "alice")
	assert.Equal(t, 55, second.HealthScore)
	assert.Equal(t, 1, store.Count())
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memstore.New(), nil)
	store.InitializeEntity(ctx, "alice")

	analyzedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	score := 80
	require.NoError(t, store.Apply(ctx, "alice", Update{
		LastAnalyzedAt: &analyzedAt,
		HealthScore:    &score,
	}))

	p, exists := store.Get("alice")
	require.True(t, exists)
	require.NotNil(t, p.LastAnalyzedAt)
	assert.True(t, analyzedAt.Equal(*p.LastAnalyzedAt))
	assert.Equal(t, 80, p.HealthScore)

	// Partial update leaves the other field untouched.
	later := analyzedAt.Add(time.Hour)
	require.NoError(t, store.Apply(ctx, "alice", Update{LastAnalyzedAt: &later}))
	p, _ = store.Get("alice")
	assert.Equal(t, 80, p.HealthScore)
	assert.True(t, later.Equal(*p.LastAnalyzedAt))
}

func TestApplyClampsHealthScore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memstore.New(), nil)
	store.InitializeEntity(ctx, "alice")

	high := 150
	require.NoError(t, store.Apply(ctx, "alice", Update{HealthScore: &high}))
	p, _ := store.Get("alice")
	assert.Equal(t, 100, p.HealthScore)

	low := -10
	require.NoError(t, store.Apply(ctx, "alice", Update{HealthScore: &low}))
	p, _ = store.Get("alice")
	assert.Equal(t, 0, p.HealthScore)
}

func TestApplyUnknownEntity(t *testing.T) {
	store := NewStore(memstore.New(), nil)

	err := store.Apply(context.Background(), "nobody", Update{})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memstore.New(), nil)
	store.InitializeEntity(ctx, "alice")

	p, _ := store.Get("alice")
	p.HealthScore = 99
	p.FeatureFlags.Pattern = false

	again, _ := store.Get("alice")
	assert.Equal(t, 0, again.HealthScore)
	assert.True(t, again.FeatureFlags.Pattern)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memstore.New()

	store := NewStore(kv, nil)
	store.InitializeEntity(ctx, "alice")
	analyzedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	score := 60
	require.NoError(t, store.Apply(ctx, "alice", Update{
		LastAnalyzedAt: &analyzedAt,
		HealthScore:    &score,
	}))

	// A fresh store hydrated from the same KV sees the persisted state,
	// including the timestamp round-tripped through its string form.
	reloaded := NewStore(kv, nil)
	reloaded.Load(ctx)

	p, exists := reloaded.Get("alice")
	require.True(t, exists)
	assert.Equal(t, 60, p.HealthScore)
	require.NotNil(t, p.LastAnalyzedAt)
	assert.True(t, analyzedAt.Equal(*p.LastAnalyzedAt))
}

func TestLoadSkipsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	kv := memstore.New()

	document := map[string]json.RawMessage{
		"alice":   json.RawMessage(`{"entity_id":"alice","is_initialized":true,"health_score":40}`),
		"missing": json.RawMessage(`{"is_initialized":true}`),
		"badtype": json.RawMessage(`{"entity_id":"badtype","is_initialized":"yes"}`),
		"empty":   json.RawMessage(`{"entity_id":"","is_initialized":false}`),
	}
	data, err := json.Marshal(document)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "analytics_profiles", data))

	store := NewStore(kv, nil)
	store.Load(ctx)

	// Only the valid record survives; the invalid ones are skipped, not fatal.
	assert.Equal(t, 1, store.Count())
	p, exists := store.Get("alice")
	require.True(t, exists)
	assert.Equal(t, 40, p.HealthScore)
}

func TestLoadCorruptDocumentStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memstore.New()
	require.NoError(t, kv.Put(ctx, "analytics_profiles", []byte("not json")))

	store := NewStore(kv, nil)
	store.Load(ctx)
	assert.Equal(t, 0, store.Count())
}

func TestPersistenceFailuresAreFailSoft(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingKV{}, nil)

	// Load against a broken KV starts empty without surfacing an error.
	store.Load(ctx)
	assert.Equal(t, 0, store.Count())

	// Writes keep working against in-memory state.
	store.InitializeEntity(ctx, "alice")
	score := 70
	require.NoError(t, store.Apply(ctx, "alice", Update{HealthScore: &score}))

	p, exists := store.Get("alice")
	require.True(t, exists)
	assert.Equal(t, 70, p.HealthScore)
}

func TestPersistenceFailuresCounted(t *testing.T) {
	ctx := context.Background()
	registry := metric.NewMetricsRegistry()
	store := NewStore(failingKV{}, nil, WithMetrics(registry))

	failures := registry.CoreMetrics().PersistenceFailures
	assert.Equal(t, 0.0, testutil.ToFloat64(failures))

	// A failed load counts once.
	store.Load(ctx)
	assert.Equal(t, 1.0, testutil.ToFloat64(failures))

	// Each failed save counts once more; state stays fail-soft.
	store.InitializeEntity(ctx, "alice")
	assert.Equal(t, 2.0, testutil.ToFloat64(failures))

	score := 70
	require.NoError(t, store.Apply(ctx, "alice", Update{HealthScore: &score}))
	assert.Equal(t, 3.0, testutil.ToFloat64(failures))

	// A healthy store never touches the counter.
	healthy := NewStore(memstore.New(), nil, WithMetrics(registry))
	healthy.InitializeEntity(ctx, "bob")
	assert.Equal(t, 3.0, testutil.ToFloat64(failures))
}

func TestAllSortedByEntityID(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memstore.New(), nil)
	store.InitializeEntity(ctx, "carol")
	store.InitializeEntity(ctx, "alice")
	store.InitializeEntity(ctx, "bob")

	all := store.All()
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].EntityID)
	assert.Equal(t, "bob", all[1].EntityID)
	assert.Equal(t, "carol", all[2].EntityID)
}
