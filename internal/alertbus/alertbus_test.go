package alertbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/txrisk/internal/logging"
	"github.com/mbd888/txrisk/internal/realtime"
	"github.com/mbd888/txrisk/internal/risk"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type recordingPublisher struct {
	name string
	err  error

	mu   sync.Mutex
	seen []string
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(_ context.Context, a *risk.RiskAssessment) error {
	p.mu.Lock()
	p.seen = append(p.seen, a.AccountID)
	p.mu.Unlock()
	return p.err
}

func (p *recordingPublisher) accounts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

var evaluated = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func assessment(account string, level risk.RiskLevel) *risk.RiskAssessment {
	return &risk.RiskAssessment{
		AccountID: account,
		RiskScore: 72,
		RiskLevel: level,
		Alerts: []risk.AnomalyEvent{{
			Timestamp: evaluated,
			Type:      risk.AnomalyRapidFire,
			Severity:  risk.SeverityHigh,
		}},
		Recommendations: []string{risk.RecManualReview},
		Fingerprint:     "abc",
		EvaluatedAt:     evaluated,
	}
}

func TestKafkaPublisher_WritesAtOrAboveMinLevel(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, minLevel: risk.LevelHigh}
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, assessment("0.0.1", risk.LevelMedium)))
	require.NoError(t, p.Publish(ctx, assessment("0.0.2", risk.LevelHigh)))
	require.NoError(t, p.Publish(ctx, assessment("0.0.3", risk.LevelCritical)))

	msgs := w.written()
	require.Len(t, msgs, 2)
	assert.Equal(t, "0.0.2", string(msgs[0].Key))
	assert.Equal(t, "0.0.3", string(msgs[1].Key))

	var got AlertMessage
	require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
	assert.Equal(t, "0.0.2", got.AccountID)
	assert.Equal(t, risk.LevelHigh, got.RiskLevel)
	assert.Equal(t, 72.0, got.RiskScore)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, risk.AnomalyRapidFire, got.Alerts[0].Type)
	assert.True(t, got.EvaluatedAt.Equal(evaluated))

	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, "risk-level", msgs[0].Headers[0].Key)
	assert.Equal(t, "high", string(msgs[0].Headers[0].Value))
}

func TestKafkaPublisher_SkipsDataUnavailable(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, minLevel: risk.LevelLow}

	a := assessment("0.0.9", risk.LevelLow)
	a.DataUnavailable = true
	require.NoError(t, p.Publish(context.Background(), a))
	assert.Empty(t, w.written())
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, minLevel: risk.LevelLow}

	err := p.Publish(context.Background(), assessment("0.0.1", risk.LevelHigh))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher_ConfiguresWriter(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "txrisk.alerts", risk.LevelCritical)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "txrisk.alerts", w.Topic)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.Equal(t, risk.LevelCritical, p.minLevel)
	assert.Equal(t, "kafka", p.Name())
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{name: "ok"}
	bad := &recordingPublisher{name: "bad", err: errors.New("boom")}

	err := Multi{bad, ok}.Publish(context.Background(), assessment("0.0.5", risk.LevelHigh))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, []string{"0.0.5"}, ok.accounts())
	assert.Equal(t, []string{"0.0.5"}, bad.accounts())
}

func TestBus_ObserveOutlivesRequestContext(t *testing.T) {
	sink := &recordingPublisher{name: "sink"}
	bus := New(logging.Discard(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	bus.Observe(ctx, assessment("0.0.7", risk.LevelCritical))
	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), time.Second)
	defer flushCancel()
	require.NoError(t, bus.Flush(flushCtx))
	assert.Equal(t, []string{"0.0.7"}, sink.accounts())
}

func TestBus_NoSinks(t *testing.T) {
	bus := New(logging.Discard())
	bus.Observe(context.Background(), assessment("0.0.1", risk.LevelHigh))
	require.NoError(t, bus.Flush(context.Background()))
}

func TestBus_SinkErrorIsNotFatal(t *testing.T) {
	bad := &recordingPublisher{name: "bad", err: errors.New("boom")}
	good := &recordingPublisher{name: "good"}
	bus := New(logging.Discard(), bad, good)

	bus.Observe(context.Background(), assessment("0.0.3", risk.LevelHigh))
	require.NoError(t, bus.Flush(context.Background()))
	assert.Equal(t, []string{"0.0.3"}, good.accounts())
}

func TestHubPublisher_Broadcasts(t *testing.T) {
	hub := realtime.NewHub(logging.Discard(), 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	require.Eventually(t, hub.Running, time.Second, 5*time.Millisecond)

	p := NewHubPublisher(hub)
	assert.Equal(t, "websocket", p.Name())
	require.NoError(t, p.Publish(ctx, assessment("0.0.4", risk.LevelHigh)))

	// One assessment event plus one event per alert.
	require.Eventually(t, func() bool {
		return hub.Stats()["totalEvents"] == int64(2)
	}, time.Second, 5*time.Millisecond)
}
