package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/insight/errors"
)

// Thresholds are the per-category record counts at which the data-volume
// term of the confidence formula saturates.
type Thresholds struct {
	Emotion  int `json:"emotion" yaml:"emotion"`
	Sensory  int `json:"sensory" yaml:"sensory"`
	Tracking int `json:"tracking" yaml:"tracking"`
}

// Weights are the per-category contributions to confidence; they must sum
// to 1.
type Weights struct {
	Emotion  float64 `json:"emotion" yaml:"emotion"`
	Sensory  float64 `json:"sensory" yaml:"sensory"`
	Tracking float64 `json:"tracking" yaml:"tracking"`
}

// InsightMessages are the guidance strings the insight rules emit. Format
// verbs are filled by the rule that owns the message.
type InsightMessages struct {
	// NoData is the single insight for an entity with zero records.
	NoData string `json:"no_data" yaml:"no_data"`

	// MoreData takes the full-analytics record threshold (%d).
	MoreData string `json:"more_data" yaml:"more_data"`

	// Pattern takes a description (%s) and a rounded confidence percent (%d).
	Pattern string `json:"pattern" yaml:"pattern"`

	// Correlation takes a description (%s).
	Correlation string `json:"correlation" yaml:"correlation"`

	// Prediction takes a description (%s) and a rounded confidence percent (%d).
	Prediction string `json:"prediction" yaml:"prediction"`

	// PositiveTrend takes a rounded positive-rate percent (%d).
	PositiveTrend string `json:"positive_trend" yaml:"positive_trend"`

	// NegativeTrend takes a rounded positive-rate percent (%d).
	NegativeTrend string `json:"negative_trend" yaml:"negative_trend"`

	// Monitoring is the fallback when no other rule produced an insight.
	Monitoring string `json:"monitoring" yaml:"monitoring"`
}

// Config tunes the orchestrator's formulas, insight rules, and background
// refresh behavior. Start from DefaultConfig and override: Validate rejects
// structural mistakes (weights not summing to 1, negative limits) rather
// than repairing them.
type Config struct {
	// WindowDays is the rolling window handed to the pattern analyzer.
	WindowDays int `json:"window_days" yaml:"window_days"`

	// Thresholds and Weights drive the confidence formula.
	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`
	Weights    Weights    `json:"weights" yaml:"weights"`

	// RecencyWindow and RecencyBonus: if the newest record is younger than
	// the window, the bonus is added to confidence before clamping.
	RecencyWindow time.Duration `json:"recency_window" yaml:"recency_window"`
	RecencyBonus  float64       `json:"recency_bonus" yaml:"recency_bonus"`

	// SignalWeight is the health-score contribution of each non-empty
	// signal (patterns, correlations, predictions, anomalies, minimum data).
	SignalWeight int `json:"signal_weight" yaml:"signal_weight"`

	// Insight rule limits and thresholds.
	MaxPatterns             int     `json:"max_patterns" yaml:"max_patterns"`
	MaxCorrelations         int     `json:"max_correlations" yaml:"max_correlations"`
	MaxPredictions          int     `json:"max_predictions" yaml:"max_predictions"`
	HighConfidenceThreshold float64 `json:"high_confidence_threshold" yaml:"high_confidence_threshold"`

	// FullAnalyticsThreshold is the record count below which the data-volume
	// guidance insight is emitted.
	FullAnalyticsThreshold int `json:"full_analytics_threshold" yaml:"full_analytics_threshold"`

	// Positive-rate rule: computed over the most recent PositiveRateWindow
	// records once at least that many exist.
	PositiveRateWindow int     `json:"positive_rate_window" yaml:"positive_rate_window"`
	PositiveRateUpper  float64 `json:"positive_rate_upper" yaml:"positive_rate_upper"`
	PositiveRateLower  float64 `json:"positive_rate_lower" yaml:"positive_rate_lower"`

	// Messages are the insight strings.
	Messages InsightMessages `json:"messages" yaml:"messages"`

	// RefreshWorkers and RefreshQueueSize size the background refresh pool.
	RefreshWorkers   int `json:"refresh_workers" yaml:"refresh_workers"`
	RefreshQueueSize int `json:"refresh_queue_size" yaml:"refresh_queue_size"`

	// RefreshRateLimit caps bulk-refresh throughput in entities per second
	// so a refresh-all cannot stampede the analyzers.
	RefreshRateLimit float64 `json:"refresh_rate_limit" yaml:"refresh_rate_limit"`
}

// DefaultConfig returns the engine's default tuning.
func DefaultConfig() Config {
	return Config{
		WindowDays: 30,
		Thresholds: Thresholds{Emotion: 10, Sensory: 10, Tracking: 7},
		Weights:    Weights{Emotion: 0.4, Sensory: 0.4, Tracking: 0.2},

		RecencyWindow: 72 * time.Hour,
		RecencyBonus:  0.1,

		SignalWeight: 20,

		MaxPatterns:             3,
		MaxCorrelations:         2,
		MaxPredictions:          2,
		HighConfidenceThreshold: 0.7,

		FullAnalyticsThreshold: 10,

		PositiveRateWindow: 10,
		PositiveRateUpper:  0.7,
		PositiveRateLower:  0.3,

		Messages: InsightMessages{
			NoData:        "Start tracking daily activities to generate insights",
			MoreData:      "Keep tracking consistently - at least %d records unlock full analytics",
			Pattern:       "%s (%d%% confidence)",
			Correlation:   "Strong link detected: %s",
			Prediction:    "Outlook: %s (%d%% confidence)",
			PositiveTrend: "Recent entries are %d%% positive - momentum is on your side",
			NegativeTrend: "Only %d%% of recent entries are positive - consider reviewing recent changes",
			Monitoring:    "Analytics monitoring is active - insights will appear as data accumulates",
		},

		RefreshWorkers:   4,
		RefreshQueueSize: 64,
		RefreshRateLimit: 5,
	}
}

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "72h") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type Alias Config

	aux := &struct {
		RecencyWindow json.RawMessage `json:"recency_window,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.RecencyWindow) > 0 {
		window, err := parseDurationField(aux.RecencyWindow, "recency_window")
		if err != nil {
			return err
		}
		c.RecencyWindow = window
	}

	return nil
}

// parseDurationField parses a JSON duration that can be either a string
// ("72h", "5m") or integer nanoseconds.
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '72h') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}

// weightTolerance absorbs float drift when checking that weights sum to 1.
const weightTolerance = 1e-9

// Validate checks the configuration for structural mistakes.
func (c Config) Validate() error {
	if c.WindowDays <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("window_days must be positive, got %d", c.WindowDays))
	}
	if c.Thresholds.Emotion <= 0 || c.Thresholds.Sensory <= 0 || c.Thresholds.Tracking <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("thresholds must be positive, got %+v", c.Thresholds))
	}

	sum := c.Weights.Emotion + c.Weights.Sensory + c.Weights.Tracking
	if sum < 1-weightTolerance || sum > 1+weightTolerance {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("weights must sum to 1, got %v", sum))
	}
	if c.Weights.Emotion < 0 || c.Weights.Sensory < 0 || c.Weights.Tracking < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			"weights cannot be negative")
	}

	if c.RecencyWindow < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("recency_window cannot be negative, got %v", c.RecencyWindow))
	}
	if c.RecencyBonus < 0 || c.RecencyBonus > 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("recency_bonus must be in [0,1], got %v", c.RecencyBonus))
	}

	if c.SignalWeight <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("signal_weight must be positive, got %d", c.SignalWeight))
	}

	if c.MaxPatterns < 0 || c.MaxCorrelations < 0 || c.MaxPredictions < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			"insight limits cannot be negative")
	}
	if c.HighConfidenceThreshold < 0 || c.HighConfidenceThreshold > 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("high_confidence_threshold must be in [0,1], got %v", c.HighConfidenceThreshold))
	}

	if c.PositiveRateWindow < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("positive_rate_window cannot be negative, got %d", c.PositiveRateWindow))
	}
	if c.PositiveRateLower > c.PositiveRateUpper {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("positive_rate_lower (%v) cannot exceed positive_rate_upper (%v)",
				c.PositiveRateLower, c.PositiveRateUpper))
	}

	if c.RefreshRateLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "analytics", "Validate",
			fmt.Sprintf("refresh_rate_limit cannot be negative, got %v", c.RefreshRateLimit))
	}

	return nil
}
