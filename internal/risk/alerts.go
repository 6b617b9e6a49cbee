package risk

import (
	"fmt"
	"time"
)

// generateAlerts returns the detector's events followed by threshold alerts,
// in a fixed order. Threshold alerts are stamped with at.
func generateAlerts(t Thresholds, f FeatureVector, anomalies []AnomalyEvent, at time.Time) []AnomalyEvent {
	alerts := make([]AnomalyEvent, 0, len(anomalies)+5)
	alerts = append(alerts, anomalies...)

	if f.RapidFireCount > t.RapidFireAlert {
		alerts = append(alerts, AnomalyEvent{
			Timestamp:   at,
			Type:        AnomalyRapidFire,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%d transaction pairs submitted less than one second apart", int(f.RapidFireCount)),
		})
	}
	if f.FailureRate > t.FailureRateAlert {
		alerts = append(alerts, AnomalyEvent{
			Timestamp:   at,
			Type:        AnomalyHighFailureRate,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("High failure rate: %.1f%% of transactions failed", f.FailureRate*100),
		})
	}
	if f.NightTimeActivity > t.NightActivityAlert {
		alerts = append(alerts, AnomalyEvent{
			Timestamp:   at,
			Type:        AnomalyNightActivity,
			Severity:    SeverityLow,
			Description: fmt.Sprintf("%.1f%% of transactions occurred between 22:00 and 06:00 UTC", f.NightTimeActivity*100),
		})
	}
	if f.TransactionFrequency > t.HighFrequencyAlert {
		alerts = append(alerts, AnomalyEvent{
			Timestamp:   at,
			Type:        AnomalyHighFrequency,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("High transaction frequency: %.1f transactions per day", f.TransactionFrequency),
		})
	}
	if f.UnusualPatterns > t.UnusualPatternsAlert {
		alerts = append(alerts, AnomalyEvent{
			Timestamp:   at,
			Type:        AnomalyUnusualPatterns,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%d unusual transaction patterns detected", int(f.UnusualPatterns)),
		})
	}

	return alerts
}
