package risk

import (
	"math"
	"sort"
	"time"
)

const (
	day = 24 * time.Hour

	rapidFireGap = time.Second

	// A fee amount shared by more than this fraction of transactions counts
	// as one unusual pattern.
	dominantAmountShare   = 0.20
	dominantAmountPattern = 1

	// Inter-arrival variance below this fraction of the mean interval marks a
	// suspiciously regular cadence.
	regularCadenceRatio   = 0.10
	regularCadencePattern = 2

	nightStartHour = 22
	nightEndHour   = 6
)

// ExtractFeatures summarizes a history into a FeatureVector. now is the
// reference instant for account age. Malformed records are skipped; an empty
// history yields the zero vector.
func ExtractFeatures(history []TransactionRecord, now time.Time) FeatureVector {
	records := sortedValid(history)
	n := len(records)
	if n == 0 {
		return FeatureVector{}
	}
	count := float64(n)

	newest := records[0].ConsensusTimestamp
	oldest := records[n-1].ConsensusTimestamp

	spanDays := math.Max(newest.Sub(oldest).Hours()/24, 1)

	fees := make([]float64, n)
	var night, failed int
	counterparties := make(map[string]struct{})
	for i, r := range records {
		f, _ := r.FeeAmount.Float64()
		fees[i] = finite(f)

		if isNight(r.ConsensusTimestamp) {
			night++
		}
		if r.Result != ResultSuccess {
			failed++
		}
		if r.CounterpartyID != "" {
			counterparties[r.CounterpartyID] = struct{}{}
		}
	}

	mean, stddev := meanStddev(fees)

	return FeatureVector{
		TransactionFrequency: finite(count / spanDays),
		TransactionVariance:  stddev,
		AverageAmount:        mean,
		NightTimeActivity:    float64(night) / count,
		FailureRate:          float64(failed) / count,
		AccountAge:           math.Max(finite(now.Sub(oldest).Hours()/24), 0),
		UniqueCounterparties: float64(len(counterparties)),
		RapidFireCount:       float64(countRapidFire(records)),
		UnusualPatterns:      float64(countUnusualPatterns(records)),
	}
}

// sortedValid drops malformed records and returns the rest newest-first.
// The input slice is never modified.
func sortedValid(history []TransactionRecord) []TransactionRecord {
	records := make([]TransactionRecord, 0, len(history))
	for _, r := range history {
		if r.valid() {
			records = append(records, r)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ConsensusTimestamp.After(records[j].ConsensusTimestamp)
	})
	return records
}

func isNight(ts time.Time) bool {
	h := ts.UTC().Hour()
	return h >= nightStartHour || h < nightEndHour
}

// countRapidFire counts adjacent pairs (newest-first order) less than one
// second apart.
func countRapidFire(records []TransactionRecord) int {
	n := 0
	for i := 1; i < len(records); i++ {
		if records[i-1].ConsensusTimestamp.Sub(records[i].ConsensusTimestamp) < rapidFireGap {
			n++
		}
	}
	return n
}

// countUnusualPatterns adds one per dominant fee amount and two for a
// machine-regular cadence. Both rules are independent.
func countUnusualPatterns(records []TransactionRecord) int {
	patterns := 0

	amounts := make(map[string]int)
	for _, r := range records {
		amounts[r.FeeAmount.String()]++
	}
	limit := dominantAmountShare * float64(len(records))
	for _, c := range amounts {
		if float64(c) > limit {
			patterns += dominantAmountPattern
		}
	}

	intervals := interArrivalMillis(records)
	if len(intervals) >= 1 {
		mean, stddev := meanStddev(intervals)
		if mean > 0 && stddev*stddev < regularCadenceRatio*mean {
			patterns += regularCadencePattern
		}
	}

	return patterns
}

// interArrivalMillis returns the gaps between consecutive records in
// milliseconds. records must be sorted newest-first.
func interArrivalMillis(records []TransactionRecord) []float64 {
	if len(records) < 2 {
		return nil
	}
	out := make([]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		gap := records[i-1].ConsensusTimestamp.Sub(records[i].ConsensusTimestamp)
		out = append(out, float64(gap)/float64(time.Millisecond))
	}
	return out
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	stddev = math.Sqrt(sq / float64(len(xs)))
	return finite(mean), finite(stddev)
}

// finite replaces NaN and infinities with zero.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
