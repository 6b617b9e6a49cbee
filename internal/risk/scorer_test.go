package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_Level(t *testing.T) {
	s := NewScorer(DefaultWeights, DefaultThresholds)

	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, LevelLow},
		{29.99, LevelLow},
		{30, LevelLow},
		{49.999, LevelLow},
		{50, LevelMedium},
		{69.999, LevelMedium},
		{70, LevelHigh},
		{84.999, LevelHigh},
		{85, LevelCritical},
		{100, LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Level(tt.score), "Level(%v)", tt.score)
	}
}

func TestScorer_ZeroVector(t *testing.T) {
	s := NewScorer(DefaultWeights, DefaultThresholds)
	assert.Equal(t, 0.0, s.Score(FeatureVector{}))
}

func TestScorer_ClampsToRange(t *testing.T) {
	s := NewScorer(DefaultWeights, DefaultThresholds)

	// Only negatively weighted features: raw sum below zero.
	assert.Equal(t, 0.0, s.Score(FeatureVector{AccountAge: 1000, UniqueCounterparties: 500}))

	heavy := Weights{FailureRate: 5}
	assert.Equal(t, 100.0, NewScorer(heavy, DefaultThresholds).Score(FeatureVector{FailureRate: 1}))
}

func TestScorer_NonFiniteFeatures(t *testing.T) {
	s := NewScorer(DefaultWeights, DefaultThresholds)
	score := s.Score(FeatureVector{
		TransactionFrequency: math.Inf(1),
		TransactionVariance:  math.NaN(),
		FailureRate:          0.5,
	})
	assert.False(t, math.IsNaN(score))
	assert.InDelta(t, 10.0, score, 1e-9)
}

func TestScorer_RapidFireMonotonic(t *testing.T) {
	s := NewScorer(DefaultWeights, DefaultThresholds)
	f := FeatureVector{
		TransactionFrequency: 20,
		FailureRate:          0.1,
		AccountAge:           3,
		UniqueCounterparties: 2,
	}

	prev := -1.0
	for rapid := 0; rapid <= 80; rapid++ {
		f.RapidFireCount = float64(rapid)
		score := s.Score(f)
		assert.GreaterOrEqual(t, score, prev, "rapidFireCount=%d", rapid)
		prev = score
	}
}

func TestScorer_JustBelowCriticalStaysHigh(t *testing.T) {
	s := NewScorer(DefaultWeights, DefaultThresholds)
	f := FeatureVector{
		TransactionFrequency: 100,
		TransactionVariance:  10,
		AverageAmount:        79.96,
		FailureRate:          1,
		RapidFireCount:       50,
		UnusualPatterns:      10,
	}

	score := s.Score(f)
	assert.InDelta(t, 84.996, score, 1e-9)
	assert.Less(t, score, 85.0)
	assert.Equal(t, LevelHigh, s.Level(score))
}
