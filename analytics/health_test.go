package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthScoreEmptyResult(t *testing.T) {
	cfg := DefaultConfig()
	result := &AnalyticsResult{HasMinimumData: false, Confidence: 0}
	assert.Equal(t, 0, computeHealthScore(cfg, result))
}

func TestHealthScoreAllSignalsFullConfidence(t *testing.T) {
	cfg := DefaultConfig()
	result := &AnalyticsResult{
		Patterns:       []Pattern{{Description: "p", Confidence: 0.9}},
		Correlations:   []Correlation{{Description: "c", Significance: SignificanceHigh}},
		Predictions:    []Prediction{{Description: "f", Confidence: 0.8}},
		Anomalies:      []Anomaly{{"kind": "spike"}},
		HasMinimumData: true,
		Confidence:     1.0,
	}
	assert.Equal(t, 100, computeHealthScore(cfg, result))
}

func TestHealthScoreScaledByConfidence(t *testing.T) {
	cfg := DefaultConfig()

	// Two signals (patterns + minimum data) at weight 20 = raw 40,
	// scaled by confidence 0.5 = 20.
	result := &AnalyticsResult{
		Patterns:       []Pattern{{Description: "p", Confidence: 0.9}},
		HasMinimumData: true,
		Confidence:     0.5,
	}
	assert.Equal(t, 20, computeHealthScore(cfg, result))
}

func TestHealthScoreRawCappedAt100(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SignalWeight = 30 // five signals would be raw 150 without the cap

	result := &AnalyticsResult{
		Patterns:       []Pattern{{}},
		Correlations:   []Correlation{{}},
		Predictions:    []Prediction{{}},
		Anomalies:      []Anomaly{{}},
		HasMinimumData: true,
		Confidence:     1.0,
	}
	assert.Equal(t, 100, computeHealthScore(cfg, result))
}

func TestHealthScoreRounding(t *testing.T) {
	cfg := DefaultConfig()

	// Minimum data only: raw 20, confidence 0.33 -> 6.6 -> 7.
	result := &AnalyticsResult{HasMinimumData: true, Confidence: 0.33}
	assert.Equal(t, 7, computeHealthScore(cfg, result))
}
