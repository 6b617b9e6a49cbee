package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mbd888/txrisk/internal/circuitbreaker"
	"github.com/mbd888/txrisk/internal/logging"
	"github.com/mbd888/txrisk/internal/metrics"
	"github.com/mbd888/txrisk/internal/retry"
	"github.com/mbd888/txrisk/internal/risk"
	"github.com/mbd888/txrisk/internal/traces"
)

// Fetch outcomes recorded in txrisk_history_fetch_total.
const (
	resultOK          = "ok"
	resultNotFound    = "not_found"
	resultError       = "error"
	resultCircuitOpen = "circuit_open"
)

// ResilientProvider decorates a provider with retries, a circuit breaker
// keyed by source name and fetch metrics. ErrAccountNotFound passes through
// unretried and never trips the breaker.
type ResilientProvider struct {
	next    risk.HistoryProvider
	source  string
	breaker *circuitbreaker.Breaker
	policy  retry.Policy
	logger  *slog.Logger
}

// ResilientOption configures a ResilientProvider.
type ResilientOption func(*ResilientProvider)

// WithBreaker shares a breaker, e.g. so health checks can inspect it.
func WithBreaker(b *circuitbreaker.Breaker) ResilientOption {
	return func(p *ResilientProvider) { p.breaker = b }
}

// WithRetryPolicy overrides retry.DefaultPolicy.
func WithRetryPolicy(policy retry.Policy) ResilientOption {
	return func(p *ResilientProvider) { p.policy = policy }
}

// WithLogger sets the logger used for retry and breaker events.
func WithLogger(l *slog.Logger) ResilientOption {
	return func(p *ResilientProvider) { p.logger = l }
}

// NewResilientProvider wraps next. source labels metrics and keys the breaker.
func NewResilientProvider(next risk.HistoryProvider, source string, opts ...ResilientOption) *ResilientProvider {
	p := &ResilientProvider{
		next:   next,
		source: source,
		policy: retry.DefaultPolicy,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.Component(p.logger, "history").With("source", source)
	if p.breaker == nil {
		p.breaker = circuitbreaker.New(5, 30*time.Second, circuitbreaker.WithOnTransition(p.logTransition))
	}
	return p
}

// Breaker returns the circuit breaker guarding the source.
func (p *ResilientProvider) Breaker() *circuitbreaker.Breaker {
	return p.breaker
}

// Source returns the source name.
func (p *ResilientProvider) Source() string {
	return p.source
}

func (p *ResilientProvider) GetHistory(ctx context.Context, accountID string, limit int) ([]risk.TransactionRecord, error) {
	ctx, span := traces.StartSpan(ctx, "history.GetHistory",
		traces.HistorySource(p.source),
		traces.AccountID(accountID),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.HistoryFetchDuration.WithLabelValues(p.source).Observe(time.Since(start).Seconds())
	}()

	policy := p.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logging.L(ctx).Debug("retrying history fetch",
			"source", p.source,
			"account_id", accountID,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	var records []risk.TransactionRecord
	err := p.breaker.Execute(p.source, func() error {
		return retry.Do(ctx, policy, func(ctx context.Context) error {
			var err error
			records, err = p.next.GetHistory(ctx, accountID, limit)
			if errors.Is(err, ErrAccountNotFound) {
				return retry.Permanent(err)
			}
			return err
		})
	}, p.notFailure(ctx))

	switch {
	case err == nil:
		metrics.HistoryFetchTotal.WithLabelValues(p.source, resultOK).Inc()
		span.SetAttributes(traces.RecordCount(len(records)))
		return records, nil
	case errors.Is(err, circuitbreaker.ErrOpen):
		metrics.HistoryFetchTotal.WithLabelValues(p.source, resultCircuitOpen).Inc()
		traces.RecordError(span, ErrCircuitOpen)
		return nil, ErrCircuitOpen
	case errors.Is(err, ErrAccountNotFound):
		metrics.HistoryFetchTotal.WithLabelValues(p.source, resultNotFound).Inc()
		return nil, err
	default:
		metrics.HistoryFetchTotal.WithLabelValues(p.source, resultError).Inc()
		traces.RecordError(span, err)
		return nil, err
	}
}

// notFailure keeps missing accounts and caller cancellations from tripping
// the breaker.
func (p *ResilientProvider) notFailure(ctx context.Context) func(error) bool {
	return func(err error) bool {
		return errors.Is(err, ErrAccountNotFound) || ctx.Err() != nil
	}
}

func (p *ResilientProvider) logTransition(key string, from, to circuitbreaker.State) {
	p.logger.Warn("history source circuit changed state",
		"key", key,
		"from", from.String(),
		"to", to.String(),
	)
}
