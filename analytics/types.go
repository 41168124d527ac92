package analytics

import "time"

// Record categories tracked by the engine. The datastore may carry more, but
// confidence and minimum-data decisions only look at these three.
const (
	CategoryEmotion  = "emotion"
	CategorySensory  = "sensory"
	CategoryTracking = "tracking"
)

// Significance levels reported by the correlation analyzer.
const (
	SignificanceLow    = "low"
	SignificanceMedium = "medium"
	SignificanceHigh   = "high"
)

// Entity identifies one tracked subject in the datastore.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is one observation for an entity. Timestamp and Category are the
// only fields this engine interprets; everything else is carried opaquely
// for the analyzers.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Positive  bool      `json:"positive"`
	Intensity float64   `json:"intensity,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// Pattern is one detected pattern with its confidence in [0,1].
type Pattern struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Correlation is one detected relationship with a significance level.
type Correlation struct {
	Description  string `json:"description"`
	Significance string `json:"significance"`
}

// Prediction is one forward-looking statement with its confidence in [0,1].
type Prediction struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Anomaly is an opaque record produced by the anomaly detector; the engine
// only counts them.
type Anomaly map[string]any

// Goal is a target handed to the predictive analyzer.
type Goal struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// AnalyticsResult is the aggregate produced by one analysis run. Results are
// computed fresh, cached immediately, and never mutated afterwards: a
// refresh replaces the whole value.
type AnalyticsResult struct {
	EntityID       string        `json:"entity_id"`
	Patterns       []Pattern     `json:"patterns"`
	Correlations   []Correlation `json:"correlations"`
	Predictions    []Prediction  `json:"predictions"`
	Anomalies      []Anomaly     `json:"anomalies"`
	Insights       []string      `json:"insights"`
	HasMinimumData bool          `json:"has_minimum_data"`
	Confidence     float64       `json:"confidence"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// StatusEntry is one row of the engine's status summary.
type StatusEntry struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Initialized    bool       `json:"initialized"`
	LastAnalyzed   *time.Time `json:"last_analyzed,omitempty"`
	HealthScore    int        `json:"health_score"`
	HasMinimumData bool       `json:"has_minimum_data"`
}

// categoryCounts tallies records per tracked category.
type categoryCounts struct {
	emotion  int
	sensory  int
	tracking int
}

func countByCategory(records []Record) categoryCounts {
	var counts categoryCounts
	for _, r := range records {
		switch r.Category {
		case CategoryEmotion:
			counts.emotion++
		case CategorySensory:
			counts.sensory++
		case CategoryTracking:
			counts.tracking++
		}
	}
	return counts
}
