package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// mobileMoneyPrefixes maps local phone-number prefixes to the mobile-money
// method the gateway expects.
var mobileMoneyPrefixes = map[string]string{
	"077": "ecocash",
	"078": "ecocash",
	"071": "onemoney",
	"073": "telecash",
}

// MobileMethodForPhone derives the mobile-money method from a phone number.
// Returns false when the prefix is not served by any known provider.
func MobileMethodForPhone(phone string) (string, bool) {
	p := strings.ReplaceAll(phone, " ", "")
	p = strings.TrimPrefix(p, "+263")
	if !strings.HasPrefix(p, "0") {
		p = "0" + p
	}
	if len(p) < 3 {
		return "", false
	}
	method, ok := mobileMoneyPrefixes[p[:3]]
	return method, ok
}

// InitiatorImpl implements ports.InitiatorService.
type InitiatorImpl struct {
	paymentRepo   ports.PaymentRepository
	eventRepo     ports.EventRepository
	gateway       ports.Gateway
	sandbox       ports.Gateway
	allowTestMode bool
	nowFn         func() time.Time
	log           zerolog.Logger
}

// NewInitiator creates a new InitiatorImpl. sandbox serves records flagged
// test-mode; allowTestMode is false in production deployments, turning
// test-mode requests into validation errors.
func NewInitiator(
	paymentRepo ports.PaymentRepository,
	eventRepo ports.EventRepository,
	gateway ports.Gateway,
	sandbox ports.Gateway,
	allowTestMode bool,
	log zerolog.Logger,
) *InitiatorImpl {
	return &InitiatorImpl{
		paymentRepo:   paymentRepo,
		eventRepo:     eventRepo,
		gateway:       gateway,
		sandbox:       sandbox,
		allowTestMode: allowTestMode,
		nowFn:         time.Now,
		log:           log,
	}
}

// Initiate creates a payment intent with the gateway and persists a pending
// record. Exactly one record is created per successful call; on gateway
// failure nothing is persisted.
func (s *InitiatorImpl) Initiate(ctx context.Context, req ports.InitiateRequest) (*ports.InitiateResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.CustomerEmail == "" {
		return nil, apperror.ErrMissingField("email")
	}
	if req.CustomerName == "" {
		return nil, apperror.ErrMissingField("name")
	}
	if req.EventID == "" {
		return nil, apperror.ErrMissingField("event_id")
	}
	if req.TestMode {
		if !s.allowTestMode {
			return nil, apperror.Validation("test mode is not available")
		}
		if !req.TestBehavior.Valid() {
			return nil, apperror.Validation(fmt.Sprintf("unknown test behavior: %q", req.TestBehavior))
		}
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load event: %w", err))
	}
	if event == nil {
		return nil, apperror.ErrNotFound("event")
	}

	now := s.nowFn().UTC()
	reference := fmt.Sprintf("%s-%d", req.EventID, now.UnixNano())

	gw := s.gateway
	if req.TestMode {
		gw = s.sandbox
	}

	gwReq := ports.GatewayInitiateRequest{
		Reference:     reference,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Description:   fmt.Sprintf("Ticket for %s", event.Name),
	}

	var handles *ports.GatewayHandles
	if req.Phone != "" {
		method, ok := MobileMethodForPhone(req.Phone)
		if !ok {
			return nil, apperror.Validation("unsupported mobile money provider for phone number")
		}
		handles, err = gw.InitiateMobile(ctx, gwReq, req.Phone, method)
	} else {
		handles, err = gw.InitiateRedirect(ctx, gwReq)
	}
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.ErrGatewayUnavailable(err)
	}

	rec := &domain.PaymentRecord{
		ID:            uuid.New(),
		Reference:     reference,
		EventID:       req.EventID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        domain.PaymentStatusCreated,
		PollHandle:    handles.PollHandle,
		IsTestMode:    req.TestMode,
		TestBehavior:  req.TestBehavior,
		InitiatedAt:   now,
		UpdatedAt:     now,
	}

	if err := s.paymentRepo.Create(ctx, rec); err != nil {
		if errors.Is(err, ports.ErrDuplicateReference) {
			// Timestamp-derived references make this next to impossible;
			// the unique index is the deterministic safety net.
			return nil, apperror.ErrDuplicateReference()
		}
		return nil, apperror.InternalError(fmt.Errorf("create payment record: %w", err))
	}

	s.log.Info().
		Str("payment_id", rec.ID.String()).
		Str("reference", reference).
		Str("event_id", req.EventID).
		Str("amount", req.Amount.String()).
		Bool("test_mode", req.TestMode).
		Msg("payment initiated")

	return &ports.InitiateResult{
		PaymentID:    rec.ID,
		Reference:    reference,
		PollHandle:   handles.PollHandle,
		RedirectURL:  handles.RedirectURL,
		Instructions: handles.Instructions,
		IsTestMode:   req.TestMode,
	}, nil
}
