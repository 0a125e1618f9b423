package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusCreated         PaymentStatus = "created"
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusCancelled       PaymentStatus = "cancelled"
	PaymentStatusWaitingDelivery PaymentStatus = "waiting_delivery"
	PaymentStatusDelivered       PaymentStatus = "delivered"
)

// IsTerminal returns true if no further transition is expected.
// waiting_delivery is deliberately excluded: it may still move to delivered.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid ||
		s == PaymentStatusCancelled ||
		s == PaymentStatusDelivered
}

// IsPaidEquivalent returns true if the status entitles the customer to a ticket.
func (s PaymentStatus) IsPaidEquivalent() bool {
	return s == PaymentStatusPaid ||
		s == PaymentStatusWaitingDelivery ||
		s == PaymentStatusDelivered
}

// TestBehavior selects the outcome a sandbox payment fabricates.
type TestBehavior string

const (
	TestBehaviorNone            TestBehavior = ""
	TestBehaviorImmediateOK     TestBehavior = "immediate-success"
	TestBehaviorDelayedOK       TestBehavior = "delayed-success"
	TestBehaviorUserCancelled   TestBehavior = "user-cancelled"
	TestBehaviorSystemCancelled TestBehavior = "system-cancelled"
)

// Valid reports whether b is a recognised sandbox behavior.
func (b TestBehavior) Valid() bool {
	switch b {
	case TestBehaviorImmediateOK, TestBehaviorDelayedOK,
		TestBehaviorUserCancelled, TestBehaviorSystemCancelled:
		return true
	}
	return false
}

// PaymentRecord is the local view of a payment held against the gateway.
// Reference is caller-assigned, globally unique and immutable; it is the
// correlation key across webhook, poll and manual paths.
type PaymentRecord struct {
	ID               uuid.UUID       `json:"id"`
	Reference        string          `json:"reference"`
	EventID          string          `json:"event_id"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerName     string          `json:"customer_name"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status"`
	PollHandle       string          `json:"poll_handle"`
	IsTestMode       bool            `json:"is_test_mode"`
	TestBehavior     TestBehavior    `json:"test_behavior,omitempty"`
	InitiatedAt      time.Time       `json:"initiated_at"`
	LastNotification string          `json:"-"` // AES-256 encrypted raw gateway payload
	ManuallyVerified bool            `json:"manually_verified"`
	VerifiedBy       string          `json:"verified_by,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsTerminal returns true if the payment is in a final state.
func (p *PaymentRecord) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// IsPaid returns true if the payment entitles the customer to a ticket.
func (p *PaymentRecord) IsPaid() bool {
	return p.Status.IsPaidEquivalent()
}

// ParseGatewayStatus maps the gateway's status vocabulary onto the local
// enum. Unrecognised values degrade to pending rather than failing.
func ParseGatewayStatus(raw string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid":
		return PaymentStatusPaid
	case "cancelled", "canceled":
		return PaymentStatusCancelled
	case "awaiting delivery", "awaiting_delivery", "waiting_delivery":
		return PaymentStatusWaitingDelivery
	case "delivered":
		return PaymentStatusDelivered
	case "created":
		return PaymentStatusCreated
	default:
		return PaymentStatusPending
	}
}
