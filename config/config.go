// Package config loads the application configuration from a JSON or YAML
// file and binds it onto the typed per-package configs. Values not present
// in the file keep their defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/insight/analytics"
	"github.com/c360/insight/errors"
	"github.com/c360/insight/pkg/cache"
	"github.com/c360/insight/seed"
	"github.com/c360/insight/storage/natskv"
)

// Storage backend constants.
const (
	StorageBackendMemory = "memory" // in-memory only, profiles lost on restart
	StorageBackendNATS   = "nats"   // NATS JetStream KV persistence
)

// Config is the complete application configuration.
type Config struct {
	Logging   LoggingConfig    `json:"logging" yaml:"logging"`
	Storage   StorageConfig    `json:"storage" yaml:"storage"`
	Cache     cache.Config     `json:"cache" yaml:"cache"`
	Analytics analytics.Config `json:"analytics" yaml:"analytics"`
	Metrics   MetricsConfig    `json:"metrics" yaml:"metrics"`
	Refresh   RefreshConfig    `json:"refresh" yaml:"refresh"`
	Seed      SeedConfig       `json:"seed" yaml:"seed"`
}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// StorageConfig selects and configures the profile persistence backend.
type StorageConfig struct {
	Backend string     `json:"backend" yaml:"backend"`
	NATS    NATSConfig `json:"nats" yaml:"nats"`
}

// NATSConfig carries the connection URL plus the KV bucket settings.
type NATSConfig struct {
	URL         string        `json:"url" yaml:"url"`
	Bucket      string        `json:"bucket" yaml:"bucket"`
	Description string        `json:"description" yaml:"description"`
	Replicas    int           `json:"replicas" yaml:"replicas"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// KVConfig converts the connection settings into the natskv bucket config.
func (c NATSConfig) KVConfig() natskv.Config {
	return natskv.Config{
		Bucket:      c.Bucket,
		Description: c.Description,
		Replicas:    c.Replicas,
		Timeout:     c.Timeout,
	}
}

// MetricsConfig configures the operational HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// RefreshConfig configures the periodic background re-analysis.
type RefreshConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// SeedConfig enables demo-data generation when the datastore starts empty.
type SeedConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	seed.Config
}

// Default returns the full default configuration: in-memory storage, seeded
// demo data, metrics on :9090, background refresh off.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Storage: StorageConfig{
			Backend: StorageBackendMemory,
			NATS: NATSConfig{
				URL:         "nats://127.0.0.1:4222",
				Bucket:      "insight_profiles",
				Description: "analytics profile persistence",
				Replicas:    1,
				Timeout:     5 * time.Second,
			},
		},
		Cache:     cache.DefaultConfig(),
		Analytics: analytics.DefaultConfig(),
		Metrics:   MetricsConfig{Enabled: true, Port: 9090},
		Refresh:   RefreshConfig{Enabled: false, Interval: 15 * time.Minute},
		Seed:      SeedConfig{Enabled: true, Config: seed.DefaultConfig()},
	}
}

// Load reads the file at path, decoding by extension (.json, .yaml, .yml)
// over the defaults, and validates the result. An empty path returns the
// defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "Load", "reading config file")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		// Already JSON.
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, errors.WrapInvalid(errors.ErrParsingFailed, "config", "Load",
				fmt.Sprintf("parsing YAML config: %v", err))
		}
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Load",
			fmt.Sprintf("unsupported config extension %q (want .json, .yaml, or .yml)", filepath.Ext(path)))
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(errors.ErrParsingFailed, "config", "Load",
			fmt.Sprintf("parsing config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// yamlToJSON decodes YAML into a generic tree and re-encodes it as JSON so
// the per-package custom JSON unmarshalers (duration strings) apply to YAML
// files too.
func yamlToJSON(data []byte) ([]byte, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeKeys(tree))
}

// normalizeKeys rewrites map[any]any nodes (possible for non-scalar YAML
// keys) into string-keyed maps that json.Marshal accepts.
func normalizeKeys(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = normalizeKeys(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fmt.Sprint(k)] = normalizeKeys(child)
		}
		return out
	case []any:
		for i, child := range node {
			node[i] = normalizeKeys(child)
		}
		return node
	default:
		return v
	}
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validFormats = map[string]bool{"json": true, "text": true}

// Validate checks the configuration tree, delegating to each package config.
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("unknown log format %q (want json or text)", c.Logging.Format))
	}

	switch c.Storage.Backend {
	case StorageBackendMemory:
	case StorageBackendNATS:
		if c.Storage.NATS.URL == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate",
				"storage.nats.url is required for the nats backend")
		}
		if err := c.Storage.NATS.KVConfig().Validate(); err != nil {
			return err
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("unknown storage backend %q (want memory or nats)", c.Storage.Backend))
	}

	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Analytics.Validate(); err != nil {
		return err
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("metrics.port must be in (0,65535], got %d", c.Metrics.Port))
	}

	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("refresh.interval must be positive, got %v", c.Refresh.Interval))
	}

	if c.Seed.Enabled {
		if err := c.Seed.Config.Validate(); err != nil {
			return err
		}
	}

	return nil
}
