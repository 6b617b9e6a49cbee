package alertbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mbd888/txrisk/internal/risk"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertMessage is the Kafka record value and the webhook event data.
type AlertMessage struct {
	AccountID       string              `json:"accountId"`
	RiskScore       float64             `json:"riskScore"`
	RiskLevel       risk.RiskLevel      `json:"riskLevel"`
	Confidence      float64             `json:"confidence"`
	Alerts          []risk.AnomalyEvent `json:"alerts"`
	Recommendations []string            `json:"recommendations"`
	Fingerprint     string              `json:"fingerprint"`
	EvaluatedAt     time.Time           `json:"evaluatedAt"`
}

func newAlertMessage(a *risk.RiskAssessment) AlertMessage {
	return AlertMessage{
		AccountID:       a.AccountID,
		RiskScore:       a.RiskScore,
		RiskLevel:       a.RiskLevel,
		Confidence:      a.Confidence,
		Alerts:          a.Alerts,
		Recommendations: a.Recommendations,
		Fingerprint:     a.Fingerprint,
		EvaluatedAt:     a.EvaluatedAt,
	}
}

// KafkaPublisher writes assessments at or above a minimum tier to a topic,
// keyed by account so one account's alerts stay ordered within a partition.
type KafkaPublisher struct {
	writer   messageWriter
	minLevel risk.RiskLevel
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, minLevel risk.RiskLevel) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		minLevel: minLevel,
	}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish skips assessments below the minimum tier and data-unavailable results.
func (p *KafkaPublisher) Publish(ctx context.Context, a *risk.RiskAssessment) error {
	if a.DataUnavailable || !a.RiskLevel.AtLeast(p.minLevel) {
		return nil
	}

	value, err := json.Marshal(newAlertMessage(a))
	if err != nil {
		return fmt.Errorf("failed to marshal alert message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(a.AccountID),
		Value: value,
		Time:  a.EvaluatedAt,
		Headers: []kafka.Header{
			{Key: "risk-level", Value: []byte(a.RiskLevel)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write alert message: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
