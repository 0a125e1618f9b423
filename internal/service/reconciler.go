package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/internal/monitoring"
	"ticketing-payments/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReconcilerImpl implements ports.ReconcilerService. It is the active half
// of payment reconciliation: clients drive it by polling, and it races the
// webhook receiver for the same records. Correctness under that race rests
// on the store's compare-and-set transition plus the registrar's uniqueness
// check, not on any in-process lock.
type ReconcilerImpl struct {
	transitioner
	gateway     ports.Gateway
	sandbox     ports.Gateway
	pollTimeout time.Duration
}

// NewReconciler creates a new ReconcilerImpl. gateway serves live records,
// sandbox serves test-mode records; pollTimeout bounds each outbound query.
func NewReconciler(
	paymentRepo ports.PaymentRepository,
	registrar ports.RegistrarService,
	cache ports.StatusCache,
	encSvc ports.EncryptionService,
	gateway ports.Gateway,
	sandbox ports.Gateway,
	pollTimeout time.Duration,
	log zerolog.Logger,
) *ReconcilerImpl {
	return &ReconcilerImpl{
		transitioner: transitioner{
			paymentRepo: paymentRepo,
			registrar:   registrar,
			cache:       cache,
			encSvc:      encSvc,
			log:         log,
		},
		gateway:     gateway,
		sandbox:     sandbox,
		pollTimeout: pollTimeout,
	}
}

// Reconcile queries the gateway for the payment's current state and applies
// any transition. Terminal records short-circuit without contacting the
// gateway; gateway trouble degrades to the last known status and is retried
// by the next poll.
func (s *ReconcilerImpl) Reconcile(ctx context.Context, key ports.LookupKey) (*ports.ReconcileResult, error) {
	// Fast path: terminal results are cached by reference.
	if key.Reference != "" && s.cache != nil {
		if payload, err := s.cache.Get(ctx, key.Reference); err != nil {
			s.log.Warn().Err(err).Str("reference", key.Reference).Msg("status cache read failed, falling through to store")
		} else if payload != nil {
			var cached ports.ReconcileResult
			if err := json.Unmarshal(payload, &cached); err == nil {
				cached.NewlyConfirmed = false
				monitoring.Reconciled("cached")
				return &cached, nil
			}
		}
	}

	rec, err := lookupRecord(ctx, s.paymentRepo, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payment: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("payment")
	}

	// Idempotent short-circuit: a terminal record is never re-queried, so a
	// late poll cannot re-trigger registration.
	if rec.IsTerminal() {
		result := resultFor(rec.Reference, rec.Status, rec.Amount, false)
		s.cacheTerminal(ctx, result)
		monitoring.Reconciled("cached")
		return result, nil
	}

	gw := s.gateway
	if rec.IsTestMode {
		gw = s.sandbox
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	start := time.Now()
	st, err := gw.Poll(pollCtx, rec)
	monitoring.ObserveGatewayPoll(time.Since(start).Seconds())
	if err != nil {
		// Non-fatal by design: a timeout or transport failure must never
		// escalate to a destructive state. The next poll retries.
		s.log.Warn().Err(err).
			Str("reference", rec.Reference).
			Str("poll_handle", rec.PollHandle).
			Msg("gateway poll failed, reporting last known status")
		monitoring.Reconciled("gateway_error")
		return resultFor(rec.Reference, rec.Status, rec.Amount, false), nil
	}

	newStatus := st.Status
	if newStatus == rec.Status {
		monitoring.Reconciled("pending")
		return resultFor(rec.Reference, rec.Status, rec.Amount, false), nil
	}

	applied, newlyConfirmed, err := s.applyTransition(ctx, rec, newStatus, st.Raw)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	finalStatus := newStatus
	if !applied {
		// Lost the race against the webhook or a concurrent poll; the
		// stored status is authoritative.
		if current, err := s.paymentRepo.GetByID(ctx, rec.ID); err == nil && current != nil {
			finalStatus = current.Status
		}
	}

	result := resultFor(rec.Reference, finalStatus, rec.Amount, newlyConfirmed)
	if finalStatus.IsTerminal() {
		s.cacheTerminal(ctx, result)
	}

	if newlyConfirmed {
		monitoring.Reconciled("confirmed")
	} else {
		monitoring.Reconciled("pending")
	}
	return result, nil
}

// MarkPaid is the authenticated manual override. It records the operator
// identity and forces the paid transition through the same guarded path as
// the automated ones, so it cannot double-register either.
func (s *ReconcilerImpl) MarkPaid(ctx context.Context, reference, verifiedBy string) (*ports.ReconcileResult, error) {
	rec, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payment: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("payment")
	}

	if err := s.paymentRepo.MarkManuallyVerified(ctx, rec.ID, verifiedBy); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark manually verified: %w", err))
	}

	if rec.IsTerminal() {
		return resultFor(rec.Reference, rec.Status, rec.Amount, false), nil
	}

	raw := map[string]string{
		"reference":   reference,
		"status":      string(domain.PaymentStatusPaid),
		"source":      "manual-override",
		"verified_by": verifiedBy,
	}
	applied, newlyConfirmed, err := s.applyTransition(ctx, rec, domain.PaymentStatusPaid, raw)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	finalStatus := domain.PaymentStatusPaid
	if !applied {
		if current, err := s.paymentRepo.GetByID(ctx, rec.ID); err == nil && current != nil {
			finalStatus = current.Status
		}
	}

	s.log.Info().
		Str("reference", reference).
		Str("verified_by", verifiedBy).
		Str("status", string(finalStatus)).
		Bool("newly_confirmed", newlyConfirmed).
		Msg("manual payment verification")

	result := resultFor(rec.Reference, finalStatus, rec.Amount, newlyConfirmed)
	if finalStatus.IsTerminal() {
		s.cacheTerminal(ctx, result)
	}
	return result, nil
}

// cacheTerminal marshals and stores a terminal result, best-effort.
func (s *ReconcilerImpl) cacheTerminal(ctx context.Context, result *ports.ReconcileResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	s.cacheResult(ctx, result.Reference, payload)
}

func resultFor(reference string, status domain.PaymentStatus, amount decimal.Decimal, newlyConfirmed bool) *ports.ReconcileResult {
	return &ports.ReconcileResult{
		Reference:      reference,
		Status:         status,
		Paid:           status.IsPaidEquivalent(),
		NewlyConfirmed: newlyConfirmed,
		Amount:         amount,
	}
}
