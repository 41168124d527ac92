package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/insight/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadJSONOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "insight.json", `{
		"logging": {"level": "debug"},
		"cache": {"max_size": 100, "ttl": "10m"},
		"analytics": {"window_days": 14, "recency_window": "48h"},
		"refresh": {"enabled": true, "interval": "5m"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format) // default kept
	assert.Equal(t, 100, cfg.Cache.MaxSize)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 14, cfg.Analytics.WindowDays)
	assert.Equal(t, 48*time.Hour, cfg.Analytics.RecencyWindow)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)

	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Analytics.Weights, cfg.Analytics.Weights)
	assert.Equal(t, StorageBackendMemory, cfg.Storage.Backend)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "insight.yaml", `
logging:
  level: warn
  format: text
storage:
  backend: nats
  nats:
    url: nats://broker:4222
    bucket: profiles
    timeout: 2s
cache:
  enabled: true
  max_size: 25
  ttl: 90s
seed:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, StorageBackendNATS, cfg.Storage.Backend)
	assert.Equal(t, "nats://broker:4222", cfg.Storage.NATS.URL)
	assert.Equal(t, "profiles", cfg.Storage.NATS.Bucket)
	assert.Equal(t, 2*time.Second, cfg.Storage.NATS.Timeout)
	assert.Equal(t, 25, cfg.Cache.MaxSize)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.False(t, cfg.Seed.Enabled)
}

func TestLoadSeedSettingsFlattened(t *testing.T) {
	path := writeConfig(t, "insight.json", `{
		"seed": {"enabled": true, "entities": 5, "days": 10, "records_per_day": 3}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Seed.Entities)
	assert.Equal(t, 10, cfg.Seed.Days)
	assert.Equal(t, 3, cfg.Seed.RecordsPerDay)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "insight.toml", `level = "info"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, "bad.json", `{"logging": `)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "logging:\n  level: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"nats without url", func(c *Config) {
			c.Storage.Backend = StorageBackendNATS
			c.Storage.NATS.URL = ""
		}},
		{"nats without bucket", func(c *Config) {
			c.Storage.Backend = StorageBackendNATS
			c.Storage.NATS.Bucket = ""
		}},
		{"bad metrics port", func(c *Config) { c.Metrics.Port = 0 }},
		{"refresh enabled without interval", func(c *Config) {
			c.Refresh.Enabled = true
			c.Refresh.Interval = 0
		}},
		{"seed enabled with zero entities", func(c *Config) { c.Seed.Entities = 0 }},
		{"bad analytics weights", func(c *Config) { c.Analytics.Weights.Emotion = 0.9 }},
		{"bad cache size", func(c *Config) { c.Cache.MaxSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateDisabledSectionsSkipped(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0
	cfg.Seed.Enabled = false
	cfg.Seed.Entities = 0
	cfg.Refresh.Enabled = false
	cfg.Refresh.Interval = 0

	assert.NoError(t, cfg.Validate())
}

func TestKVConfigConversion(t *testing.T) {
	nats := NATSConfig{
		URL:         "nats://broker:4222",
		Bucket:      "profiles",
		Description: "test",
		Replicas:    3,
		Timeout:     2 * time.Second,
	}
	kv := nats.KVConfig()
	assert.Equal(t, "profiles", kv.Bucket)
	assert.Equal(t, "test", kv.Description)
	assert.Equal(t, 3, kv.Replicas)
	assert.Equal(t, 2*time.Second, kv.Timeout)
}
