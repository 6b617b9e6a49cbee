package risk

import "time"

// Weights is the linear weight table applied to normalized features.
// The weights need not sum to 1. Account age and counterparty breadth carry
// negative weight: older, more diverse accounts reduce risk.
type Weights struct {
	Frequency            float64 `json:"frequency"`
	Variance             float64 `json:"variance"`
	AverageAmount        float64 `json:"averageAmount"`
	NightTimeActivity    float64 `json:"nightTimeActivity"`
	FailureRate          float64 `json:"failureRate"`
	AccountAge           float64 `json:"accountAge"`
	UniqueCounterparties float64 `json:"uniqueCounterparties"`
	RapidFireCount       float64 `json:"rapidFireCount"`
	UnusualPatterns      float64 `json:"unusualPatterns"`
}

// DefaultWeights are hand-set and have not been validated against labelled data.
var DefaultWeights = Weights{
	Frequency:            0.15,
	Variance:             0.12,
	AverageAmount:        0.10,
	NightTimeActivity:    0.08,
	FailureRate:          0.20,
	AccountAge:           -0.10,
	UniqueCounterparties: -0.05,
	RapidFireCount:       0.18,
	UnusualPatterns:      0.12,
}

// Thresholds holds the tier boundaries and the alert trigger points.
type Thresholds struct {
	// Tier boundaries on the 0-100 score, evaluated high to low.
	Critical float64 `json:"critical"`
	High     float64 `json:"high"`
	Medium   float64 `json:"medium"`
	// Low is a documentation boundary only. It never gates tier selection.
	Low float64 `json:"low"`

	RapidFireAlert       float64 `json:"rapidFireAlert"`
	FailureRateAlert     float64 `json:"failureRateAlert"`
	NightActivityAlert   float64 `json:"nightActivityAlert"`
	HighFrequencyAlert   float64 `json:"highFrequencyAlert"`
	UnusualPatternsAlert float64 `json:"unusualPatternsAlert"`
	NewAccountDays       float64 `json:"newAccountDays"`
}

// DefaultThresholds is the boundary table the scorer ships with.
var DefaultThresholds = Thresholds{
	Critical: 85,
	High:     70,
	Medium:   50,
	Low:      30,

	RapidFireAlert:       10,
	FailureRateAlert:     0.3,
	NightActivityAlert:   0.5,
	HighFrequencyAlert:   50,
	UnusualPatternsAlert: 5,
	NewAccountDays:       7,
}

// Config is the immutable configuration of an Engine.
type Config struct {
	Weights      Weights
	Thresholds   Thresholds
	ModelMetrics ModelMetrics

	// HistoryLimit is how many records are requested per account.
	HistoryLimit int
	// BatchConcurrency caps concurrent history fetches in BatchPredict.
	BatchConcurrency int
	// FetchTimeout bounds a single history fetch.
	FetchTimeout time.Duration
}

const (
	DefaultHistoryLimit     = 100
	DefaultBatchConcurrency = 8
	DefaultFetchTimeout     = 5 * time.Second
)

// DefaultConfig returns the stock weight table, thresholds and metrics snapshot.
func DefaultConfig() Config {
	return Config{
		Weights:          DefaultWeights,
		Thresholds:       DefaultThresholds,
		ModelMetrics:     DefaultModelMetrics,
		HistoryLimit:     DefaultHistoryLimit,
		BatchConcurrency: DefaultBatchConcurrency,
		FetchTimeout:     DefaultFetchTimeout,
	}
}

// withDefaults fills zero-valued operational settings.
func (c Config) withDefaults() Config {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = DefaultBatchConcurrency
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	return c
}
