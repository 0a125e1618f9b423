package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentsInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Payments created, by flow and mode",
		},
		[]string{"flow", "mode"},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_received_total",
			Help: "Inbound gateway notifications, by outcome",
		},
		[]string{"outcome"},
	)

	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciliations_total",
			Help: "Poll-driven reconciliations, by result",
		},
		[]string{"result"},
	)

	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendee_registrations_total",
			Help: "Attendee registration attempts, by outcome",
		},
		[]string{"outcome"},
	)

	gatewayPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_poll_duration_seconds",
			Help:    "Latency of outbound gateway status queries",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)

// PaymentInitiated records a successful payment creation.
func PaymentInitiated(flow string, testMode bool) {
	mode := "live"
	if testMode {
		mode = "test"
	}
	paymentsInitiated.WithLabelValues(flow, mode).Inc()
}

// WebhookReceived records an inbound notification outcome
// (applied, ignored, rejected, unknown_reference).
func WebhookReceived(outcome string) {
	webhooksReceived.WithLabelValues(outcome).Inc()
}

// Reconciled records a reconciliation result
// (cached, confirmed, pending, gateway_error).
func Reconciled(result string) {
	reconciliations.WithLabelValues(result).Inc()
}

// RegistrationAttempt records a registrar outcome
// (registered, duplicate, closed, event_missing, error).
func RegistrationAttempt(outcome string) {
	registrations.WithLabelValues(outcome).Inc()
}

// ObserveGatewayPoll records the latency of one gateway poll.
func ObserveGatewayPoll(seconds float64) {
	gatewayPollDuration.Observe(seconds)
}
