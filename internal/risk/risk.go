// Package risk scores an account's ledger transaction history for fraud risk.
//
// An assessment is a fixed linear heuristic over nine features extracted from
// the account's recent transactions: frequency, fee variance, average fee,
// night-time share, failure rate, account age, counterparty breadth,
// rapid-fire pairs and structural patterns. The weighted sum is scaled to
// 0-100 and bucketed into low/medium/high/critical. Discrete anomalies and
// threshold alerts are reported alongside the score, together with an
// ordered list of remediation steps.
//
// Every function in the scoring pipeline is pure: the same history and the
// same reference instant always yield the same assessment.
package risk

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbd888/txrisk/internal/pagination"
)

// TxResult is the ledger outcome of a transaction.
type TxResult string

const (
	ResultSuccess TxResult = "SUCCESS"
	ResultFailure TxResult = "FAILURE"
)

// TransactionRecord is one entry of an account's transaction history.
// Histories are ordered newest-first.
type TransactionRecord struct {
	TransactionID      string          `json:"transactionId,omitempty"`
	ConsensusTimestamp time.Time       `json:"consensusTimestamp"`
	FeeAmount          decimal.Decimal `json:"feeAmount"`
	Result             TxResult        `json:"result"`
	CounterpartyID     string          `json:"counterpartyId,omitempty"`
}

// valid reports whether the record carries the fields feature extraction needs.
func (r TransactionRecord) valid() bool {
	return !r.ConsensusTimestamp.IsZero() && r.Result != ""
}

// RiskLevel is the tier a risk score falls into.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// rank orders levels for minimum-level comparisons.
func (l RiskLevel) rank() int {
	switch l {
	case LevelCritical:
		return 3
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l is the same tier as min or riskier.
func (l RiskLevel) AtLeast(min RiskLevel) bool {
	return l.rank() >= min.rank()
}

// ParseLevel converts a string to a RiskLevel. Unknown values map to low.
func ParseLevel(s string) RiskLevel {
	switch RiskLevel(s) {
	case LevelMedium, LevelHigh, LevelCritical:
		return RiskLevel(s)
	default:
		return LevelLow
	}
}

// Severity tags an anomaly event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyType identifies what triggered an anomaly event.
type AnomalyType string

const (
	AnomalyFrequency       AnomalyType = "FREQUENCY_ANOMALY"
	AnomalyRapidFire       AnomalyType = "RAPID_FIRE"
	AnomalyHighFailureRate AnomalyType = "HIGH_FAILURE_RATE"
	AnomalyNightActivity   AnomalyType = "NIGHT_ACTIVITY"
	AnomalyHighFrequency   AnomalyType = "HIGH_FREQUENCY"
	AnomalyUnusualPatterns AnomalyType = "UNUSUAL_PATTERNS"
)

// AnomalyEvent is a discrete, typed flag raised while assessing a history.
type AnomalyEvent struct {
	Timestamp   time.Time   `json:"timestamp"`
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
}

// FeatureVector is the numeric summary of a transaction history.
type FeatureVector struct {
	TransactionFrequency float64 `json:"transactionFrequency"` // txs per day
	TransactionVariance  float64 `json:"transactionVariance"`  // stddev of fees
	AverageAmount        float64 `json:"averageAmount"`
	NightTimeActivity    float64 `json:"nightTimeActivity"` // [0,1]
	FailureRate          float64 `json:"failureRate"`       // [0,1]
	AccountAge           float64 `json:"accountAge"`        // days
	UniqueCounterparties float64 `json:"uniqueCounterparties"`
	RapidFireCount       float64 `json:"rapidFireCount"`
	UnusualPatterns      float64 `json:"unusualPatterns"`
}

// RiskAssessment is the result of scoring one account.
type RiskAssessment struct {
	AccountID       string         `json:"accountId"`
	RiskScore       float64        `json:"riskScore"`
	RiskLevel       RiskLevel      `json:"riskLevel"`
	Confidence      float64        `json:"confidence"`
	Features        FeatureVector  `json:"features"`
	Alerts          []AnomalyEvent `json:"alerts"`
	Recommendations []string       `json:"recommendations"`

	// Fingerprint is a digest of the history the assessment was computed from.
	Fingerprint     string    `json:"fingerprint"`
	DataUnavailable bool      `json:"dataUnavailable"`
	EvaluatedAt     time.Time `json:"evaluatedAt"`
}

// HistoryProvider supplies an account's transaction history, newest-first.
// Implementations may fail or return an empty slice.
type HistoryProvider interface {
	GetHistory(ctx context.Context, accountID string, limit int) ([]TransactionRecord, error)
}

// AuditEntry is a persisted assessment.
type AuditEntry struct {
	ID         string          `json:"id"`
	RecordedAt time.Time       `json:"recordedAt"`
	Assessment *RiskAssessment `json:"assessment"`
}

// Store persists assessments for an audit trail.
type Store interface {
	Record(ctx context.Context, entry *AuditEntry) error
	// ListByAccount returns up to limit entries ordered by RecordedAt then
	// ID, newest first, starting after the before cursor when it is non-nil.
	ListByAccount(ctx context.Context, accountID string, limit int, before *pagination.Cursor) ([]*AuditEntry, error)
}

// Observer is notified after every assessment produced by PredictFraudRisk.
type Observer func(ctx context.Context, assessment *RiskAssessment)
