package risk

import "math"

// Normalization scales: each feature is divided by its scale and clamped to
// [0,1] before weighting.
const (
	scaleFrequency      = 100.0
	scaleVariance       = 10.0
	scaleAverageAmount  = 100.0
	scaleAccountAge     = 365.0
	scaleCounterparties = 100.0
	scaleRapidFire      = 50.0
	scaleUnusual        = 10.0
)

// Scorer applies a weight table to a FeatureVector.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer creates a scorer with the given weights and tier boundaries.
func NewScorer(w Weights, t Thresholds) *Scorer {
	return &Scorer{weights: w, thresholds: t}
}

// Score returns the unrounded risk score in [0,100]. Tiers are taken from
// this value; rounding belongs to presentation.
func (s *Scorer) Score(f FeatureVector) float64 {
	w := s.weights
	raw := normalize(f.TransactionFrequency, scaleFrequency)*w.Frequency +
		normalize(f.TransactionVariance, scaleVariance)*w.Variance +
		normalize(f.AverageAmount, scaleAverageAmount)*w.AverageAmount +
		normalize(f.NightTimeActivity, 1)*w.NightTimeActivity +
		normalize(f.FailureRate, 1)*w.FailureRate +
		normalize(f.AccountAge, scaleAccountAge)*w.AccountAge +
		normalize(f.UniqueCounterparties, scaleCounterparties)*w.UniqueCounterparties +
		normalize(f.RapidFireCount, scaleRapidFire)*w.RapidFireCount +
		normalize(f.UnusualPatterns, scaleUnusual)*w.UnusualPatterns

	return clamp(finite(raw)*100, 0, 100)
}

// Level maps a score to its tier. Boundaries are inclusive lower bounds,
// checked from critical down; the Low threshold is not consulted.
func (s *Scorer) Level(score float64) RiskLevel {
	switch {
	case score >= s.thresholds.Critical:
		return LevelCritical
	case score >= s.thresholds.High:
		return LevelHigh
	case score >= s.thresholds.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

func normalize(v, scale float64) float64 {
	return clamp(finite(v/scale), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
