package analytics

import "context"

// The analyzers are external collaborators: the concrete statistical
// algorithms live outside this engine and their outputs are consumed as
// opaque records. Every analyzer call is guarded fail-soft by the
// orchestrator: a failing analyzer contributes an empty list and never
// aborts the overall analysis.

// PatternAnalyzer detects recurring patterns over a rolling window.
type PatternAnalyzer interface {
	Analyze(ctx context.Context, records []Record, windowDays int) ([]Pattern, error)
}

// CorrelationAnalyzer detects relationships between record streams.
type CorrelationAnalyzer interface {
	Analyze(ctx context.Context, records []Record) ([]Correlation, error)
}

// PredictiveAnalyzer produces forward-looking statements against goals.
type PredictiveAnalyzer interface {
	Analyze(ctx context.Context, records []Record, goals []Goal) ([]Prediction, error)
}

// AnomalyDetector flags records that deviate from an entity's baseline.
type AnomalyDetector interface {
	Detect(ctx context.Context, records []Record) ([]Anomaly, error)
}

// Analyzers bundles the four analysis collaborators injected into the
// orchestrator. Nil members are treated as disabled.
type Analyzers struct {
	Pattern     PatternAnalyzer
	Correlation CorrelationAnalyzer
	Predictive  PredictiveAnalyzer
	Anomaly     AnomalyDetector
}
