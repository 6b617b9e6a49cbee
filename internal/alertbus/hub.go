package alertbus

import (
	"context"

	"github.com/mbd888/txrisk/internal/realtime"
	"github.com/mbd888/txrisk/internal/risk"
)

// HubPublisher streams every assessment to WebSocket clients; each client
// applies its own subscription filter.
type HubPublisher struct {
	hub *realtime.Hub
}

// NewHubPublisher wraps hub.
func NewHubPublisher(hub *realtime.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Name() string { return "websocket" }

func (p *HubPublisher) Publish(_ context.Context, a *risk.RiskAssessment) error {
	p.hub.BroadcastAssessment(a)
	return nil
}
