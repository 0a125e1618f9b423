package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"

	"github.com/rs/zerolog"
)

// terminalCacheTTL bounds how long a terminal reconciliation result is
// served from the cache before falling back to the record store.
const terminalCacheTTL = 24 * time.Hour

// transitioner applies guarded status transitions and the gated
// registration side effect. It is shared by the three mutation sites —
// webhook, poller and manual override — so they cannot diverge on the
// double-registration rules.
type transitioner struct {
	paymentRepo ports.PaymentRepository
	registrar   ports.RegistrarService
	cache       ports.StatusCache
	encSvc      ports.EncryptionService
	log         zerolog.Logger
}

// applyTransition moves rec to the observed status through the store's
// compare-and-set and, when this call is the one that confirmed payment,
// registers the attendee. The registrar's own uniqueness check is the
// second idempotency barrier; losing the CAS race is not an error.
// Returns whether the write was applied and whether the payment was newly
// confirmed by this call.
func (t *transitioner) applyTransition(ctx context.Context, rec *domain.PaymentRecord, to domain.PaymentStatus, raw map[string]string) (applied, newlyConfirmed bool, err error) {
	prior, applied, err := t.paymentRepo.Transition(ctx, rec.ID, to, t.encodePayload(raw))
	if err != nil {
		return false, false, fmt.Errorf("transition payment %s: %w", rec.Reference, err)
	}

	if applied && to.IsPaidEquivalent() && !prior.IsPaidEquivalent() {
		newlyConfirmed = true
		t.registerAttendee(ctx, rec, to)
	}
	return applied, newlyConfirmed, nil
}

// registerAttendee hands the paying customer to the registrar. Failures are
// logged, never propagated: the payment transition already happened and a
// later reconcile or manual pass can retry registration.
func (t *transitioner) registerAttendee(ctx context.Context, rec *domain.PaymentRecord, status domain.PaymentStatus) {
	provider := "gateway"
	if rec.IsTestMode {
		provider = "simulated"
	}

	result, err := t.registrar.Register(ctx, ports.RegisterRequest{
		EventID: rec.EventID,
		Name:    rec.CustomerName,
		Email:   rec.CustomerEmail,
		Payment: domain.PaymentInfo{
			PaymentID: rec.ID,
			Amount:    rec.Amount,
			PaidAt:    time.Now().UTC(),
			Paid:      true,
			Provider:  provider,
		},
	})
	if err != nil {
		t.log.Error().Err(err).
			Str("reference", rec.Reference).
			Str("event_id", rec.EventID).
			Str("status", string(status)).
			Msg("attendee registration failed after payment confirmation")
		return
	}

	if result.AlreadyRegistered {
		t.log.Info().
			Str("reference", rec.Reference).
			Str("event_id", rec.EventID).
			Msg("attendee already registered, skipping")
		return
	}

	t.log.Info().
		Str("reference", rec.Reference).
		Str("event_id", rec.EventID).
		Str("email", rec.CustomerEmail).
		Msg("attendee registered")
}

// encodePayload serialises and encrypts the raw gateway payload for the
// audit column. The payload may carry customer PII, so it is never stored
// in the clear; an encryption failure drops the audit copy rather than the
// transition.
func (t *transitioner) encodePayload(raw map[string]string) string {
	if len(raw) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range raw {
		values.Set(k, v)
	}
	enc, err := t.encSvc.Encrypt(values.Encode())
	if err != nil {
		t.log.Warn().Err(err).Msg("failed to encrypt notification payload, dropping audit copy")
		return ""
	}
	return enc
}

// cacheResult stores a terminal reconciliation result, best-effort.
func (t *transitioner) cacheResult(ctx context.Context, reference string, payload []byte) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Set(ctx, reference, payload, terminalCacheTTL); err != nil {
		t.log.Warn().Err(err).Str("reference", reference).Msg("failed to cache terminal status")
	}
}

// lookupRecord loads a payment by whichever key is supplied.
func lookupRecord(ctx context.Context, repo ports.PaymentRepository, key ports.LookupKey) (*domain.PaymentRecord, error) {
	switch {
	case key.PaymentID != nil:
		return repo.GetByID(ctx, *key.PaymentID)
	case key.Reference != "":
		return repo.GetByReference(ctx, key.Reference)
	case key.PollHandle != "":
		return repo.GetByPollHandle(ctx, key.PollHandle)
	default:
		return nil, errors.New("lookup key is empty")
	}
}
