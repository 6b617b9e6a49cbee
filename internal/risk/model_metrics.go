package risk

import "time"

// ModelMetrics is a reported performance summary of the scoring model.
// It is configuration, not something computed from live predictions.
type ModelMetrics struct {
	Accuracy         float64   `json:"accuracy"`
	Precision        float64   `json:"precision"`
	Recall           float64   `json:"recall"`
	F1Score          float64   `json:"f1Score"`
	TotalPredictions int64     `json:"totalPredictions"`
	TruePositives    int64     `json:"truePositives"`
	FalsePositives   int64     `json:"falsePositives"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// DefaultModelMetrics ships with the weight table. Like the weights, the
// figures are unvalidated and should be overridden once real labels exist.
var DefaultModelMetrics = ModelMetrics{
	Accuracy:         0.94,
	Precision:        0.91,
	Recall:           0.89,
	F1Score:          0.90,
	TotalPredictions: 15420,
	TruePositives:    1247,
	FalsePositives:   123,
	LastUpdated:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
}
