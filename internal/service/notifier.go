package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"

	"github.com/rs/zerolog"
)

// notifyRetryIntervals spaces out redelivery attempts after a failed
// ticket-issuance call.
var notifyRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	5 * time.Minute,
}

// TicketIssuedPayload is the JSON body sent to the ticketing backend when a
// paying attendee lands on the roster.
type TicketIssuedPayload struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Passcode  string `json:"passcode"`
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Provider  string `json:"provider"`
	IssuedAt  int64  `json:"issued_at"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpTicketNotifier implements ports.TicketNotifier over HTTP. Delivery is
// asynchronous with retries; the roster entry already exists and is never
// held hostage to the ticketing backend being up.
type httpTicketNotifier struct {
	url        string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewTicketNotifier creates an HTTP ticket notifier. An empty url disables
// delivery entirely.
func NewTicketNotifier(url string, httpClient HTTPClient, log zerolog.Logger) ports.TicketNotifier {
	return &httpTicketNotifier{
		url:        url,
		httpClient: httpClient,
		log:        log,
	}
}

// NotifyTicketIssued fires the issuance notification. It returns before
// delivery completes; transport errors surface only in the logs.
func (s *httpTicketNotifier) NotifyTicketIssued(_ context.Context, event *domain.Event, attendee domain.AttendeeRegistration) error {
	if s.url == "" {
		s.log.Debug().Str("event_id", event.ID).Msg("notifier: no ticketing URL configured, skipping")
		return nil
	}

	payload := TicketIssuedPayload{
		EventID:   event.ID,
		EventName: event.Name,
		Email:     attendee.Email,
		Name:      attendee.Name,
		Passcode:  attendee.Passcode,
		PaymentID: attendee.Payment.PaymentID.String(),
		Amount:    attendee.Payment.Amount.String(),
		Provider:  attendee.Payment.Provider,
		IssuedAt:  time.Now().Unix(),
	}

	go s.deliverWithRetries(payload)
	return nil
}

// deliverWithRetries attempts delivery until a 2xx or the intervals run out.
func (s *httpTicketNotifier) deliverWithRetries(payload TicketIssuedPayload) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("email", payload.Email).Msg("notifier: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(notifyRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(notifyRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(payloadBytes))
		if err != nil {
			s.log.Error().Err(err).Int("attempt", attempt+1).Msg("notifier: failed to create request")
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("notifier: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.log.Info().
				Str("event_id", payload.EventID).
				Str("email", payload.Email).
				Int("attempt", attempt+1).
				Msg("notifier: ticket notification delivered")
			return
		}

		s.log.Warn().
			Int("attempt", attempt+1).
			Int("status", resp.StatusCode).
			Msg("notifier: non-2xx response, retrying")
	}

	s.log.Error().
		Str("event_id", payload.EventID).
		Str("email", payload.Email).
		Msg("notifier: all retry attempts exhausted")
}
