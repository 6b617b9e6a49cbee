package risk

// Recommendation lines, in the order they can appear.
const (
	RecManualReview         = "Flag account for manual review by the risk team"
	RecTemporaryRestriction = "Apply temporary transaction restrictions pending review"
	RecIdentityVerification = "Require additional identity verification"
	RecEnhancedMonitoring   = "Enable enhanced monitoring for this account"
	RecRateLimit            = "Rate-limit the account to slow rapid-fire submissions"
	RecInvestigateFailures  = "Investigate the cause of the elevated transaction failure rate"
	RecNewAccount           = "Apply extra verification steps for a newly created account"
	RecContinueMonitoring   = "Account activity appears normal; continue routine monitoring"
	RecInsufficientData     = "Insufficient transaction history; reassess once more activity is available"
)

// recommend maps a tier and features to an ordered action list.
func recommend(t Thresholds, level RiskLevel, f FeatureVector) []string {
	var recs []string

	switch level {
	case LevelCritical, LevelHigh:
		recs = append(recs, RecManualReview, RecTemporaryRestriction, RecIdentityVerification)
	case LevelMedium:
		recs = append(recs, RecEnhancedMonitoring)
	}

	conditional := 0
	if f.RapidFireCount > t.RapidFireAlert {
		recs = append(recs, RecRateLimit)
		conditional++
	}
	if f.FailureRate > t.FailureRateAlert {
		recs = append(recs, RecInvestigateFailures)
		conditional++
	}
	if f.AccountAge < t.NewAccountDays {
		recs = append(recs, RecNewAccount)
		conditional++
	}

	if level == LevelLow && conditional == 0 {
		recs = append(recs, RecContinueMonitoring)
	}
	return recs
}
