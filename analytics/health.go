package analytics

import "math"

// computeHealthScore summarizes how complete and trustworthy an entity's
// analytics are as an integer in [0,100].
//
// Each present signal (non-empty patterns, correlations, predictions,
// anomalies, and minimum data being met) adds the configured per-signal
// weight; the raw sum is capped at 100, scaled by the result's confidence,
// and rounded to the nearest integer.
func computeHealthScore(cfg Config, result *AnalyticsResult) int {
	raw := 0
	if len(result.Patterns) > 0 {
		raw += cfg.SignalWeight
	}
	if len(result.Correlations) > 0 {
		raw += cfg.SignalWeight
	}
	if len(result.Predictions) > 0 {
		raw += cfg.SignalWeight
	}
	if len(result.Anomalies) > 0 {
		raw += cfg.SignalWeight
	}
	if result.HasMinimumData {
		raw += cfg.SignalWeight
	}
	if raw > 100 {
		raw = 100
	}

	score := int(math.Round(float64(raw) * result.Confidence))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
