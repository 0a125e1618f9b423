package service

import (
	"context"
	"fmt"
	"time"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
)

// Sandbox timing rules: how long a simulated payment sits in pending before
// resolving.
const (
	simulatedSuccessDelay = 30 * time.Second
	simulatedCancelDelay  = 15 * time.Second
)

// SimulatedGateway implements ports.Gateway without a live gateway. It
// fabricates outcomes deterministically from the record's test behavior and
// the time elapsed since initiation. Poll is side-effect-free; applying the
// resulting transition is the reconciler's job.
type SimulatedGateway struct {
	nowFn func() time.Time
}

// NewSimulatedGateway creates a new sandbox gateway.
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{nowFn: time.Now}
}

// WithClock overrides the time source. Test hook.
func (g *SimulatedGateway) WithClock(nowFn func() time.Time) *SimulatedGateway {
	g.nowFn = nowFn
	return g
}

// InitiateRedirect fabricates a redirect-flow payment.
func (g *SimulatedGateway) InitiateRedirect(_ context.Context, req ports.GatewayInitiateRequest) (*ports.GatewayHandles, error) {
	return &ports.GatewayHandles{
		PollHandle:  "simulated:" + req.Reference,
		RedirectURL: "https://sandbox.invalid/pay/" + req.Reference,
	}, nil
}

// InitiateMobile fabricates a mobile-money push.
func (g *SimulatedGateway) InitiateMobile(_ context.Context, req ports.GatewayInitiateRequest, phone, method string) (*ports.GatewayHandles, error) {
	return &ports.GatewayHandles{
		PollHandle:   "simulated:" + req.Reference,
		Instructions: fmt.Sprintf("Sandbox %s push sent to %s. No money moves.", method, phone),
	}, nil
}

// Poll derives the simulated status from the test behavior and elapsed time.
func (g *SimulatedGateway) Poll(_ context.Context, rec *domain.PaymentRecord) (*ports.GatewayStatus, error) {
	elapsed := g.nowFn().Sub(rec.InitiatedAt)

	var status domain.PaymentStatus
	switch rec.TestBehavior {
	case domain.TestBehaviorImmediateOK:
		status = domain.PaymentStatusPaid
	case domain.TestBehaviorDelayedOK:
		if elapsed < simulatedSuccessDelay {
			status = domain.PaymentStatusPending
		} else {
			status = domain.PaymentStatusPaid
		}
	case domain.TestBehaviorUserCancelled, domain.TestBehaviorSystemCancelled:
		if elapsed < simulatedCancelDelay {
			status = domain.PaymentStatusPending
		} else {
			status = domain.PaymentStatusCancelled
		}
	default:
		return nil, fmt.Errorf("unknown test behavior: %q", rec.TestBehavior)
	}

	return &ports.GatewayStatus{
		Status: status,
		Raw: map[string]string{
			"reference": rec.Reference,
			"status":    string(status),
			"simulated": "true",
		},
	}, nil
}
