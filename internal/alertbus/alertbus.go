// Package alertbus fans risk assessments out to downstream sinks: a Kafka
// topic for case-management consumers and the realtime WebSocket hub.
package alertbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbd888/txrisk/internal/logging"
	"github.com/mbd888/txrisk/internal/metrics"
	"github.com/mbd888/txrisk/internal/risk"
)

// Publisher delivers an assessment to one sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, a *risk.RiskAssessment) error
}

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, a *risk.RiskAssessment) error {
	var errs []error
	for _, p := range m {
		err := p.Publish(ctx, a)
		result := "ok"
		if err != nil {
			result = "error"
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
		metrics.AlertPublishTotal.WithLabelValues(p.Name(), result).Inc()
	}
	return errors.Join(errs...)
}

const defaultPublishTimeout = 5 * time.Second

// Bus publishes assessments in the background so request handlers never
// wait on a sink.
type Bus struct {
	sinks   Multi
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// New creates a bus over the given sinks.
func New(logger *slog.Logger, sinks ...Publisher) *Bus {
	return &Bus{
		sinks:   sinks,
		logger:  logging.Component(logger, "alertbus"),
		timeout: defaultPublishTimeout,
	}
}

// Observe is a risk.Observer. Publishing continues after the request
// context ends.
func (b *Bus) Observe(ctx context.Context, a *risk.RiskAssessment) {
	if len(b.sinks) == 0 {
		return
	}
	pctx := context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		pctx, cancel := context.WithTimeout(pctx, b.timeout)
		defer cancel()

		if err := b.sinks.Publish(pctx, a); err != nil {
			b.logger.Warn("failed to publish assessment",
				"account_id", a.AccountID,
				"level", a.RiskLevel,
				"error", err,
			)
		}
	}()
}

// Flush waits for in-flight publications or ctx to end.
func (b *Bus) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
