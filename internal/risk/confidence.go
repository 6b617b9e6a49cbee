package risk

import "math"

const baseConfidence = 0.5

// EstimateConfidence derives how much transaction volume and history back a
// score. It is not a probability of correctness.
//
//	base 0.5
//	+0.2 frequency > 10/day, +0.1 more above 50/day
//	+0.1 account older than 30 days, +0.1 more above 90 days
func EstimateConfidence(f FeatureVector) float64 {
	c := baseConfidence
	if f.TransactionFrequency > 10 {
		c += 0.2
	}
	if f.TransactionFrequency > 50 {
		c += 0.1
	}
	if f.AccountAge > 30 {
		c += 0.1
	}
	if f.AccountAge > 90 {
		c += 0.1
	}
	return math.Min(math.Round(c*100)/100, 1.0)
}
