package service

import (
	"context"
	"fmt"
	"strings"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/internal/monitoring"
	"ticketing-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// WebhookImpl implements ports.WebhookService: the passive half of payment
// reconciliation, fed by gateway-pushed notifications. It shares the
// transitioner with the poller, so however a notification and a poll
// interleave, the status moves once and the attendee registers once.
type WebhookImpl struct {
	transitioner
	verifier   ports.SignatureVerifier
	secret     string
	production bool
}

// NewWebhookService creates a new WebhookImpl. secret is the gateway's
// shared integration key; production tightens signature handling so that an
// unsigned notification is rejected rather than tolerated.
func NewWebhookService(
	paymentRepo ports.PaymentRepository,
	registrar ports.RegistrarService,
	cache ports.StatusCache,
	encSvc ports.EncryptionService,
	verifier ports.SignatureVerifier,
	secret string,
	production bool,
	log zerolog.Logger,
) *WebhookImpl {
	return &WebhookImpl{
		transitioner: transitioner{
			paymentRepo: paymentRepo,
			registrar:   registrar,
			cache:       cache,
			encSvc:      encSvc,
			log:         log,
		},
		verifier:   verifier,
		secret:     secret,
		production: production,
	}
}

// Receive verifies and applies one gateway notification. fields is the
// decoded form payload. Duplicate and out-of-order notifications are
// absorbed by the store's compare-and-set; they report Applied=false, not
// an error, because the gateway treats any non-200 as cause to retry.
func (s *WebhookImpl) Receive(ctx context.Context, fields map[string]string) (*ports.WebhookResult, error) {
	reference := strings.TrimSpace(fields["reference"])
	if reference == "" {
		monitoring.WebhookReceived("missing_reference")
		return nil, apperror.ErrMissingField("reference")
	}

	rec, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payment: %w", err))
	}
	if rec == nil {
		monitoring.WebhookReceived("unknown_reference")
		return nil, apperror.ErrNotFound("payment")
	}

	if err := s.checkSignature(rec, fields); err != nil {
		s.log.Warn().
			Str("reference", reference).
			Str("status_field", fields["status"]).
			Msg("rejected notification with bad or missing signature")
		return nil, err
	}

	newStatus := domain.ParseGatewayStatus(fields["status"])
	if newStatus == rec.Status {
		monitoring.WebhookReceived("no_change")
		return &ports.WebhookResult{Reference: reference, Status: rec.Status, Applied: false}, nil
	}

	applied, newlyConfirmed, err := s.applyTransition(ctx, rec, newStatus, fields)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	finalStatus := newStatus
	if !applied {
		if current, err := s.paymentRepo.GetByID(ctx, rec.ID); err == nil && current != nil {
			finalStatus = current.Status
		}
	}

	s.log.Info().
		Str("reference", reference).
		Str("status", string(finalStatus)).
		Bool("applied", applied).
		Bool("newly_confirmed", newlyConfirmed).
		Msg("gateway notification processed")

	if applied {
		monitoring.WebhookReceived("applied")
	} else {
		monitoring.WebhookReceived("stale")
	}
	return &ports.WebhookResult{Reference: reference, Status: finalStatus, Applied: applied}, nil
}

// checkSignature enforces the notification authenticity rules. Sandbox
// records are confirmed by simulation and carry no real gateway signature,
// so they are exempt. For live records a present signature must verify, and
// in production an absent signature is itself a rejection.
func (s *WebhookImpl) checkSignature(rec *domain.PaymentRecord, fields map[string]string) error {
	if rec.IsTestMode {
		return nil
	}

	sig := fields[signatureField]
	if sig == "" {
		if s.production {
			monitoring.WebhookReceived("missing_signature")
			return apperror.ErrMissingSignature()
		}
		return nil
	}

	if !s.verifier.Verify(fields, sig, s.secret) {
		monitoring.WebhookReceived("invalid_signature")
		return apperror.ErrInvalidSignature()
	}
	return nil
}
