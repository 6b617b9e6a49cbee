package alertbus

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mbd888/txrisk/internal/idgen"
	"github.com/mbd888/txrisk/internal/risk"
)

// Webhook delivery headers.
const (
	HeaderEvent     = "X-Txrisk-Event"
	HeaderDelivery  = "X-Txrisk-Delivery"
	HeaderTimestamp = "X-Txrisk-Timestamp"
	HeaderSignature = "X-Txrisk-Signature"

	EventAssessmentAlert = "assessment.alert"
)

// WebhookEvent is the JSON body POSTed to the webhook URL.
type WebhookEvent struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Data      AlertMessage `json:"data"`
}

// WebhookPublisher POSTs assessments at or above a minimum tier to a single
// HTTP endpoint. Bodies are signed with HMAC-SHA256 when a secret is set.
type WebhookPublisher struct {
	url      string
	secret   string
	minLevel risk.RiskLevel
	client   *http.Client
	now      func() time.Time
}

// WebhookOption configures a WebhookPublisher.
type WebhookOption func(*WebhookPublisher)

// WithWebhookClient overrides the HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(p *WebhookPublisher) {
		p.client = c
	}
}

// WithWebhookClock overrides the delivery timestamp source.
func WithWebhookClock(now func() time.Time) WebhookOption {
	return func(p *WebhookPublisher) {
		p.now = now
	}
}

// NewWebhookPublisher creates a publisher posting to url.
func NewWebhookPublisher(url, secret string, minLevel risk.RiskLevel, opts ...WebhookOption) *WebhookPublisher {
	p := &WebhookPublisher{
		url:      url,
		secret:   secret,
		minLevel: minLevel,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WebhookPublisher) Name() string { return "webhook" }

// Publish skips assessments below the minimum tier and data-unavailable
// results. Any non-2xx response is an error.
func (p *WebhookPublisher) Publish(ctx context.Context, a *risk.RiskAssessment) error {
	if a.DataUnavailable || !a.RiskLevel.AtLeast(p.minLevel) {
		return nil
	}

	event := WebhookEvent{
		ID:        idgen.WithPrefix("evt_"),
		Type:      EventAssessmentAlert,
		Timestamp: p.now().UTC(),
		Data:      newAlertMessage(a),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event.Type)
	req.Header.Set(HeaderDelivery, event.ID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(event.Timestamp.Unix(), 10))
	if p.secret != "" {
		req.Header.Set(HeaderSignature, Sign(payload, p.secret))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret. Receivers
// recompute it over the raw body to verify a delivery.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
