package analytics

import (
	"fmt"
	"math"
	"sort"
)

// buildInsights produces the ranked human-readable insight list for a
// result. Rules run in a fixed order; the no-data rule short-circuits and
// the monitoring fallback fires only when nothing else produced a line.
func buildInsights(cfg Config, records []Record, result *AnalyticsResult) []string {
	// Rule 1: nothing tracked at all.
	if len(records) == 0 {
		return []string{cfg.Messages.NoData}
	}

	var insights []string

	// Rule 2: not enough volume for full analytics yet.
	if len(records) < cfg.FullAnalyticsThreshold {
		insights = append(insights, fmt.Sprintf(cfg.Messages.MoreData, cfg.FullAnalyticsThreshold))
	}

	// Rule 3: high-confidence patterns, strongest first.
	strong := make([]Pattern, 0, len(result.Patterns))
	for _, p := range result.Patterns {
		if p.Confidence > cfg.HighConfidenceThreshold {
			strong = append(strong, p)
		}
	}
	sort.SliceStable(strong, func(i, j int) bool { return strong[i].Confidence > strong[j].Confidence })
	for i, p := range strong {
		if i >= cfg.MaxPatterns {
			break
		}
		insights = append(insights, fmt.Sprintf(cfg.Messages.Pattern, p.Description, percent(p.Confidence)))
	}

	// Rule 4: highly significant correlations.
	added := 0
	for _, c := range result.Correlations {
		if c.Significance != SignificanceHigh {
			continue
		}
		if added >= cfg.MaxCorrelations {
			break
		}
		insights = append(insights, fmt.Sprintf(cfg.Messages.Correlation, c.Description))
		added++
	}

	// Rule 5: predictions.
	for i, p := range result.Predictions {
		if i >= cfg.MaxPredictions {
			break
		}
		insights = append(insights, fmt.Sprintf(cfg.Messages.Prediction, p.Description, percent(p.Confidence)))
	}

	// Rule 6: positive-rate trend over the most recent window.
	if cfg.PositiveRateWindow > 0 && len(records) >= cfg.PositiveRateWindow {
		recent := records[len(records)-cfg.PositiveRateWindow:]
		positive := 0
		for _, r := range recent {
			if r.Positive {
				positive++
			}
		}
		rate := float64(positive) / float64(len(recent))
		switch {
		case rate > cfg.PositiveRateUpper:
			insights = append(insights, fmt.Sprintf(cfg.Messages.PositiveTrend, percent(rate)))
		case rate < cfg.PositiveRateLower:
			insights = append(insights, fmt.Sprintf(cfg.Messages.NegativeTrend, percent(rate)))
		}
	}

	// Rule 7: generic fallback.
	if len(insights) == 0 {
		insights = append(insights, cfg.Messages.Monitoring)
	}

	return insights
}

// percent rounds a [0,1] value to an integer percentage.
func percent(v float64) int {
	return int(math.Round(v * 100))
}
