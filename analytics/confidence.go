package analytics

import (
	"math"
	"time"
)

// computeConfidence derives the [0,1] trust estimate for an analysis from
// data volume and recency.
//
// Each category contributes min(count/threshold, 1) scaled by its weight;
// with weights summing to 1 the base lands in [0,1]. If the newest record is
// younger than the recency window the bonus is added, then the total is
// clamped to [0,1] and rounded to two decimals.
func computeConfidence(cfg Config, records []Record, now time.Time) float64 {
	if len(records) == 0 {
		return 0
	}

	counts := countByCategory(records)

	base := saturate(counts.emotion, cfg.Thresholds.Emotion)*cfg.Weights.Emotion +
		saturate(counts.sensory, cfg.Thresholds.Sensory)*cfg.Weights.Sensory +
		saturate(counts.tracking, cfg.Thresholds.Tracking)*cfg.Weights.Tracking

	// Records arrive ordered by timestamp ascending, but scan to be safe:
	// recency decides a bonus, not correctness.
	newest := records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	if cfg.RecencyWindow > 0 && now.Sub(newest) < cfg.RecencyWindow {
		base += cfg.RecencyBonus
	}

	return round2(clamp01(base))
}

// saturate maps count/threshold into [0,1].
func saturate(count, threshold int) float64 {
	if threshold <= 0 {
		return 0
	}
	ratio := float64(count) / float64(threshold)
	if ratio > 1 {
		return 1
	}
	return ratio
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
