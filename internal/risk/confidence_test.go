package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateConfidence(t *testing.T) {
	tests := []struct {
		name string
		f    FeatureVector
		want float64
	}{
		{"empty", FeatureVector{}, 0.5},
		{"boundaries are exclusive", FeatureVector{TransactionFrequency: 10, AccountAge: 30}, 0.5},
		{"active", FeatureVector{TransactionFrequency: 11}, 0.7},
		{"very active", FeatureVector{TransactionFrequency: 51}, 0.8},
		{"established", FeatureVector{AccountAge: 31}, 0.6},
		{"old", FeatureVector{AccountAge: 91}, 0.7},
		{"all signals", FeatureVector{TransactionFrequency: 60, AccountAge: 100}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateConfidence(tt.f)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}
