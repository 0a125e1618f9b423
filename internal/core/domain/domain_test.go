package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status PaymentStatus
		want   bool
	}{
		{"created", PaymentStatusCreated, false},
		{"pending", PaymentStatusPending, false},
		{"paid", PaymentStatusPaid, true},
		{"cancelled", PaymentStatusCancelled, true},
		{"waiting_delivery", PaymentStatusWaitingDelivery, false},
		{"delivered", PaymentStatusDelivered, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestPaymentStatus_IsPaidEquivalent(t *testing.T) {
	tests := []struct {
		name   string
		status PaymentStatus
		want   bool
	}{
		{"created", PaymentStatusCreated, false},
		{"pending", PaymentStatusPending, false},
		{"paid", PaymentStatusPaid, true},
		{"cancelled", PaymentStatusCancelled, false},
		{"waiting_delivery", PaymentStatusWaitingDelivery, true},
		{"delivered", PaymentStatusDelivered, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsPaidEquivalent())
		})
	}
}

func TestParseGatewayStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want PaymentStatus
	}{
		{"Paid", PaymentStatusPaid},
		{"paid", PaymentStatusPaid},
		{"Cancelled", PaymentStatusCancelled},
		{"canceled", PaymentStatusCancelled},
		{"Awaiting Delivery", PaymentStatusWaitingDelivery},
		{"awaiting_delivery", PaymentStatusWaitingDelivery},
		{"Delivered", PaymentStatusDelivered},
		{"Created", PaymentStatusCreated},
		{"Sent", PaymentStatusPending},
		{"", PaymentStatusPending},
		{"  Paid  ", PaymentStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGatewayStatus(tt.raw))
		})
	}
}

func TestTestBehavior_Valid(t *testing.T) {
	assert.True(t, TestBehaviorImmediateOK.Valid())
	assert.True(t, TestBehaviorDelayedOK.Valid())
	assert.True(t, TestBehaviorUserCancelled.Valid())
	assert.True(t, TestBehaviorSystemCancelled.Valid())
	assert.False(t, TestBehaviorNone.Valid())
	assert.False(t, TestBehavior("explode").Valid())
}

func TestEvent_HasAttendee(t *testing.T) {
	ev := &Event{
		ID: "ev-1",
		Attendees: []AttendeeRegistration{
			{Email: "alice@example.com", Name: "Alice"},
		},
	}

	assert.True(t, ev.HasAttendee("alice@example.com"))
	assert.False(t, ev.HasAttendee("bob@example.com"))
	assert.False(t, ev.HasAttendee("Alice@example.com"), "comparison is exact, callers normalise")
}
