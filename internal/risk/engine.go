package risk

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mbd888/txrisk/internal/fingerprint"
	"github.com/mbd888/txrisk/internal/idgen"
	"github.com/mbd888/txrisk/internal/logging"
	"github.com/mbd888/txrisk/internal/metrics"
	"github.com/mbd888/txrisk/internal/pagination"
	"github.com/mbd888/txrisk/internal/traces"
)

// Engine assesses accounts by fetching their history and running the scoring
// pipeline. It holds no per-account state; concurrent use is safe.
type Engine struct {
	provider  HistoryProvider
	cfg       Config
	scorer    *Scorer
	store     Store
	hasher    fingerprint.ContentHasher
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time

	pending sync.WaitGroup // in-flight audit writes
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default weights, thresholds and limits.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg.withDefaults()
	}
}

// WithStore records every assessment produced by PredictFraudRisk.
func WithStore(s Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.Component(l, "risk")
	}
}

// WithClock overrides the reference instant used for account age.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithHasher overrides the history fingerprint digest.
func WithHasher(h fingerprint.ContentHasher) Option {
	return func(e *Engine) {
		e.hasher = h
	}
}

// WithObserver registers a callback run after each PredictFraudRisk.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// NewEngine creates an engine that reads histories from provider.
func NewEngine(provider HistoryProvider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		cfg:      DefaultConfig(),
		hasher:   fingerprint.SHA256{},
		logger:   logging.Component(slog.Default(), "risk"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scorer = NewScorer(e.cfg.Weights, e.cfg.Thresholds)
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// ModelMetrics returns the configured model performance snapshot.
func (e *Engine) ModelMetrics() ModelMetrics {
	return e.cfg.ModelMetrics
}

// Assess scores a history using the engine clock as the reference instant.
func (e *Engine) Assess(accountID string, history []TransactionRecord) *RiskAssessment {
	return e.AssessAt(accountID, history, e.now())
}

// AssessAt runs the scoring pipeline over history. It performs no I/O and
// never fails: an empty or fully malformed history yields the
// data-unavailable result.
func (e *Engine) AssessAt(accountID string, history []TransactionRecord, now time.Time) *RiskAssessment {
	now = now.UTC()
	records := sortedValid(history)
	if len(records) == 0 {
		return e.unavailable(accountID, now)
	}

	features := ExtractFeatures(records, now)
	anomalies := DetectFrequencyAnomalies(records)

	score := e.scorer.Score(features)
	level := e.scorer.Level(score)

	return &RiskAssessment{
		AccountID:       accountID,
		RiskScore:       score,
		RiskLevel:       level,
		Confidence:      EstimateConfidence(features),
		Features:        features,
		Alerts:          generateAlerts(e.cfg.Thresholds, features, anomalies, now),
		Recommendations: recommend(e.cfg.Thresholds, level, features),
		Fingerprint:     e.fingerprint(records),
		EvaluatedAt:     now,
	}
}

// unavailable is the result for accounts without usable history.
func (e *Engine) unavailable(accountID string, now time.Time) *RiskAssessment {
	return &RiskAssessment{
		AccountID:       accountID,
		RiskScore:       0,
		RiskLevel:       LevelLow,
		Confidence:      baseConfidence,
		Features:        FeatureVector{},
		Alerts:          []AnomalyEvent{},
		Recommendations: []string{RecInsufficientData},
		Fingerprint:     e.fingerprint(nil),
		DataUnavailable: true,
		EvaluatedAt:     now,
	}
}

// fingerprint digests the canonical form of the records the score used.
func (e *Engine) fingerprint(records []TransactionRecord) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.TransactionID + "|" +
			strconv.FormatInt(r.ConsensusTimestamp.UnixNano(), 10) + "|" +
			r.FeeAmount.String() + "|" +
			string(r.Result) + "|" +
			r.CounterpartyID
	}
	return fingerprint.Lines(e.hasher, lines)
}

// PredictFraudRisk fetches the account's history and assesses it. A failed,
// timed-out or empty fetch yields the data-unavailable assessment rather
// than an error.
func (e *Engine) PredictFraudRisk(ctx context.Context, accountID string) *RiskAssessment {
	ctx, span := traces.StartSpan(ctx, "risk.PredictFraudRisk", traces.AccountID(accountID))
	defer span.End()

	history := e.fetch(ctx, accountID)
	assessment := e.Assess(accountID, history)

	span.SetAttributes(
		traces.RiskScore(assessment.RiskScore),
		traces.RiskLevel(string(assessment.RiskLevel)),
	)
	e.observe(ctx, assessment)
	return assessment
}

func (e *Engine) fetch(ctx context.Context, accountID string) []TransactionRecord {
	if e.provider == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	history, err := e.provider.GetHistory(fetchCtx, accountID, e.cfg.HistoryLimit)
	if err != nil {
		logging.L(ctx).With("component", "risk").Warn("history unavailable, using empty history",
			"account_id", accountID,
			"error", err,
		)
		return nil
	}
	return history
}

// observe updates metrics, persists the assessment and notifies observers.
func (e *Engine) observe(ctx context.Context, a *RiskAssessment) {
	metrics.PredictionsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	metrics.RiskScore.Observe(a.RiskScore)
	if a.DataUnavailable {
		metrics.DataUnavailableTotal.Inc()
	}
	for _, alert := range a.Alerts {
		metrics.AlertsTotal.WithLabelValues(string(alert.Type)).Inc()
	}

	e.logger.Debug("assessment produced",
		"account_id", a.AccountID,
		"score", a.RiskScore,
		"level", a.RiskLevel,
		"alerts", len(a.Alerts),
	)

	if e.store != nil {
		entry := &AuditEntry{
			ID:         idgen.WithPrefix("risk_"),
			RecordedAt: e.now().UTC(),
			Assessment: a,
		}
		// Best-effort audit trail; must not hold up the caller.
		e.pending.Add(1)
		go func() {
			defer e.pending.Done()
			if err := e.store.Record(context.Background(), entry); err != nil {
				e.logger.Warn("failed to record assessment", "account_id", a.AccountID, "error", err)
			}
		}()
	}

	for _, o := range e.observers {
		o(ctx, a)
	}
}

// BatchPredict assesses each account independently with bounded concurrency.
// The result order matches accountIDs.
func (e *Engine) BatchPredict(ctx context.Context, accountIDs []string) []*RiskAssessment {
	ctx, span := traces.StartSpan(ctx, "risk.BatchPredict", traces.BatchSize(len(accountIDs)))
	defer span.End()

	start := time.Now()
	results := make([]*RiskAssessment, len(accountIDs))

	var g errgroup.Group
	g.SetLimit(e.cfg.BatchConcurrency)
	for i, id := range accountIDs {
		g.Go(func() error {
			results[i] = e.PredictFraudRisk(ctx, id)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	metrics.BatchSize.Observe(float64(len(accountIDs)))
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	return results
}

// Flush waits for in-flight audit writes, or for ctx to end.
func (e *Engine) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasStore reports whether assessments are being recorded.
func (e *Engine) HasStore() bool {
	return e.store != nil
}

// History returns recorded assessments for an account, newest first,
// continuing after before when it is non-nil.
func (e *Engine) History(ctx context.Context, accountID string, limit int, before *pagination.Cursor) ([]*AuditEntry, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.ListByAccount(ctx, accountID, limit, before)
}
