package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// stubProvider is a test double for HistoryProvider
type stubProvider struct {
	mu      sync.Mutex
	records map[string][]TransactionRecord
	err     error
	calls   int
}

func (s *stubProvider) GetHistory(_ context.Context, accountID string, limit int) ([]TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	recs := s.records[accountID]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func rec(ts time.Time, fee string, result TxResult, counterparty string) TransactionRecord {
	return TransactionRecord{
		TransactionID:      fmt.Sprintf("0.0.2@%d", ts.UnixNano()),
		ConsensusTimestamp: ts,
		FeeAmount:          decimal.RequireFromString(fee),
		Result:             result,
		CounterpartyID:     counterparty,
	}
}

// rapidBurst returns n successful records 500ms apart, newest first.
func rapidBurst(n int) []TransactionRecord {
	out := make([]TransactionRecord, n)
	for i := 0; i < n; i++ {
		out[i] = rec(base.Add(time.Duration(n-1-i)*500*time.Millisecond), "0.01", ResultSuccess, "0.0.800")
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPredictFraudRisk_EmptyHistory(t *testing.T) {
	engine := NewEngine(&stubProvider{}, WithClock(fixedClock(base)))

	a := engine.PredictFraudRisk(context.Background(), "0.0.1234")

	assert.Equal(t, "0.0.1234", a.AccountID)
	assert.Equal(t, 0.0, a.RiskScore)
	assert.Equal(t, LevelLow, a.RiskLevel)
	assert.Equal(t, 0.5, a.Confidence)
	assert.Equal(t, FeatureVector{}, a.Features)
	assert.Empty(t, a.Alerts)
	assert.NotNil(t, a.Alerts)
	assert.True(t, a.DataUnavailable)
	assert.Equal(t, []string{RecInsufficientData}, a.Recommendations)
}

func TestPredictFraudRisk_ProviderErrorIsDataUnavailable(t *testing.T) {
	provider := &stubProvider{err: errors.New("mirror node unreachable")}
	engine := NewEngine(provider, WithClock(fixedClock(base)))

	a := engine.PredictFraudRisk(context.Background(), "0.0.1234")

	assert.True(t, a.DataUnavailable)
	assert.Equal(t, LevelLow, a.RiskLevel)
	assert.Equal(t, 0.0, a.RiskScore)
	assert.Equal(t, 1, provider.calls)
}

func TestPredictFraudRisk_NilProvider(t *testing.T) {
	a := NewEngine(nil).PredictFraudRisk(context.Background(), "0.0.1")
	assert.True(t, a.DataUnavailable)
}

func TestPredictFraudRisk_CancelledContext(t *testing.T) {
	provider := &blockingProvider{}
	engine := NewEngine(provider, WithConfig(Config{
		Weights:      DefaultWeights,
		Thresholds:   DefaultThresholds,
		FetchTimeout: 20 * time.Millisecond,
	}))

	a := engine.PredictFraudRisk(context.Background(), "0.0.1")
	assert.True(t, a.DataUnavailable)
}

// blockingProvider waits for the context to end.
type blockingProvider struct{}

func (blockingProvider) GetHistory(ctx context.Context, _ string, _ int) ([]TransactionRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAssess_AllMalformedIsDataUnavailable(t *testing.T) {
	engine := NewEngine(nil)
	a := engine.AssessAt("0.0.1", []TransactionRecord{
		{TransactionID: "a", Result: ResultSuccess},
		{TransactionID: "b", ConsensusTimestamp: base},
	}, base)
	assert.True(t, a.DataUnavailable)
}

func TestAssess_Deterministic(t *testing.T) {
	history := append(rapidBurst(15), rec(base.Add(-48*time.Hour), "0.5", ResultFailure, "0.0.900"))
	engine := NewEngine(nil, WithClock(fixedClock(base.Add(time.Hour))))

	first := engine.Assess("0.0.42", history)
	second := engine.Assess("0.0.42", history)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Fingerprint)
}

func TestAssess_FingerprintIgnoresInputOrder(t *testing.T) {
	history := []TransactionRecord{
		rec(base, "0.01", ResultSuccess, "0.0.7"),
		rec(base.Add(time.Minute), "0.02", ResultSuccess, "0.0.8"),
	}
	reversed := []TransactionRecord{history[1], history[0]}

	engine := NewEngine(nil)
	assert.Equal(t,
		engine.AssessAt("0.0.1", history, base).Fingerprint,
		engine.AssessAt("0.0.1", reversed, base).Fingerprint)

	other := []TransactionRecord{rec(base, "0.03", ResultSuccess, "0.0.7")}
	assert.NotEqual(t,
		engine.AssessAt("0.0.1", history, base).Fingerprint,
		engine.AssessAt("0.0.1", other, base).Fingerprint)
}

func TestAssess_SparseHistoryScenario(t *testing.T) {
	history := []TransactionRecord{
		rec(base.Add(3*time.Hour), "0.02", ResultSuccess, "0.0.11"),
		rec(base.Add(500*time.Millisecond), "0.01", ResultSuccess, "0.0.12"),
		rec(base, "0.01", ResultSuccess, "0.0.13"),
	}
	engine := NewEngine(nil)

	a := engine.AssessAt("0.0.5", history, base.Add(24*time.Hour))

	assert.Equal(t, 1.0, a.Features.RapidFireCount)
	assert.Equal(t, 0.0, a.Features.FailureRate)
	assert.Equal(t, LevelLow, a.RiskLevel)
	for _, alert := range a.Alerts {
		assert.NotEqual(t, AnomalyRapidFire, alert.Type)
	}
	assert.False(t, a.DataUnavailable)
}

func TestAssess_RapidBurstScenario(t *testing.T) {
	history := rapidBurst(15)
	engine := NewEngine(nil)

	a := engine.AssessAt("0.0.6", history, base.Add(time.Minute))

	assert.Equal(t, 14.0, a.Features.RapidFireCount)

	var rapid *AnomalyEvent
	for i := range a.Alerts {
		if a.Alerts[i].Type == AnomalyRapidFire {
			rapid = &a.Alerts[i]
		}
	}
	require.NotNil(t, rapid, "expected RAPID_FIRE alert")
	assert.Equal(t, SeverityHigh, rapid.Severity)

	scorer := NewScorer(DefaultWeights, DefaultThresholds)
	withoutRapid := a.Features
	withoutRapid.RapidFireCount = 0
	assert.Greater(t, a.RiskScore, scorer.Score(withoutRapid))
	assert.Contains(t, a.Recommendations, RecRateLimit)
}

func TestAssess_BoundsHold(t *testing.T) {
	histories := [][]TransactionRecord{
		rapidBurst(2),
		rapidBurst(100),
		{rec(base, "1000000", ResultFailure, "")},
		{rec(base, "0", ResultFailure, ""), rec(base, "0", ResultFailure, "")},
	}
	engine := NewEngine(nil)
	for i, h := range histories {
		a := engine.AssessAt("0.0.1", h, base.Add(time.Hour))
		assert.GreaterOrEqual(t, a.RiskScore, 0.0, "history %d", i)
		assert.LessOrEqual(t, a.RiskScore, 100.0, "history %d", i)
		assert.GreaterOrEqual(t, a.Confidence, 0.0, "history %d", i)
		assert.LessOrEqual(t, a.Confidence, 1.0, "history %d", i)
	}
}

func TestBatchPredict_PreservesOrder(t *testing.T) {
	provider := &stubProvider{records: map[string][]TransactionRecord{
		"0.0.1": rapidBurst(15),
		"0.0.3": {rec(base, "0.01", ResultSuccess, "0.0.9")},
	}}
	engine := NewEngine(provider, WithClock(fixedClock(base.Add(time.Hour))))

	ids := []string{"0.0.3", "0.0.2", "0.0.1", "0.0.3"}
	results := engine.BatchPredict(context.Background(), ids)

	require.Len(t, results, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, results[i].AccountID)
	}
	assert.True(t, results[1].DataUnavailable)
	assert.False(t, results[0].DataUnavailable)
	assert.Equal(t, results[0], results[3])
}

func TestBatchPredict_Empty(t *testing.T) {
	engine := NewEngine(&stubProvider{})
	assert.Empty(t, engine.BatchPredict(context.Background(), nil))
}

func TestPredictFraudRisk_RecordsAndNotifies(t *testing.T) {
	store := NewMemoryStore()
	var (
		mu   sync.Mutex
		seen []string
	)
	engine := NewEngine(
		&stubProvider{records: map[string][]TransactionRecord{"0.0.7": rapidBurst(15)}},
		WithStore(store),
		WithObserver(func(_ context.Context, a *RiskAssessment) {
			mu.Lock()
			seen = append(seen, a.AccountID)
			mu.Unlock()
		}),
	)

	engine.PredictFraudRisk(context.Background(), "0.0.7")

	mu.Lock()
	assert.Equal(t, []string{"0.0.7"}, seen)
	mu.Unlock()

	require.Eventually(t, func() bool {
		entries, err := engine.History(context.Background(), "0.0.7", 10, nil)
		return err == nil && len(entries) == 1
	}, time.Second, 10*time.Millisecond)

	entries, err := engine.History(context.Background(), "0.0.7", 10, nil)
	require.NoError(t, err)
	assert.Contains(t, entries[0].ID, "risk_")
	assert.Equal(t, 14.0, entries[0].Assessment.Features.RapidFireCount)
}

// gatedStore blocks Record until release is closed.
type gatedStore struct {
	*MemoryStore
	release chan struct{}
}

func (s *gatedStore) Record(ctx context.Context, entry *AuditEntry) error {
	<-s.release
	return s.MemoryStore.Record(ctx, entry)
}

func TestFlush_WaitsForAuditWrites(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	engine := NewEngine(
		&stubProvider{records: map[string][]TransactionRecord{"0.0.7": rapidBurst(15)}},
		WithStore(store),
	)

	engine.PredictFraudRisk(context.Background(), "0.0.7")

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, engine.Flush(short), context.DeadlineExceeded)

	close(store.release)
	require.NoError(t, engine.Flush(context.Background()))

	// No polling needed once Flush returns.
	entries, err := engine.History(context.Background(), "0.0.7", 10, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFlush_NothingPending(t *testing.T) {
	assert.NoError(t, NewEngine(nil).Flush(context.Background()))
}

func TestHistory_NoStore(t *testing.T) {
	entries, err := NewEngine(nil).History(context.Background(), "0.0.1", 10, nil)
	assert.NoError(t, err)
	assert.Nil(t, entries)
}

func TestWithConfig_FillsOperationalDefaults(t *testing.T) {
	engine := NewEngine(nil, WithConfig(Config{Weights: DefaultWeights, Thresholds: DefaultThresholds}))
	cfg := engine.Config()
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
	assert.Equal(t, DefaultBatchConcurrency, cfg.BatchConcurrency)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
}

func TestModelMetrics_Default(t *testing.T) {
	m := NewEngine(nil).ModelMetrics()
	assert.Equal(t, 0.94, m.Accuracy)
	assert.Equal(t, int64(15420), m.TotalPredictions)
}
