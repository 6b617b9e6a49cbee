package risk

import (
	"fmt"
	"math"
	"time"
)

// frequencySigma is how many standard deviations an inter-arrival interval
// must deviate from the mean to be flagged.
const frequencySigma = 2.0

// DetectFrequencyAnomalies flags inter-arrival intervals that deviate from the
// mean by more than two population standard deviations. Each event is stamped
// with the later transaction of the pair. Fewer than two valid records yield
// no events.
func DetectFrequencyAnomalies(history []TransactionRecord) []AnomalyEvent {
	records := sortedValid(history)
	if len(records) < 2 {
		return nil
	}

	intervals := interArrivalMillis(records)
	mean, stddev := meanStddev(intervals)
	if stddev == 0 {
		return nil
	}

	var events []AnomalyEvent
	for i, gap := range intervals {
		deviation := math.Abs(gap - mean)
		if deviation <= frequencySigma*stddev {
			continue
		}
		events = append(events, AnomalyEvent{
			Timestamp: records[i].ConsensusTimestamp,
			Type:      AnomalyFrequency,
			Severity:  SeverityMedium,
			Description: fmt.Sprintf("Transaction interval of %s deviates %.1f standard deviations from the mean of %s",
				millisDuration(gap), deviation/stddev, millisDuration(mean)),
		})
	}
	return events
}

// millisDuration converts milliseconds to a Duration, saturating at the
// largest representable Duration.
func millisDuration(ms float64) time.Duration {
	ns := ms * float64(time.Millisecond)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	if ns <= math.MinInt64 {
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ns).Round(time.Millisecond)
}
