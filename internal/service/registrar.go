package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/internal/monitoring"
	"ticketing-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RegistrarImpl implements ports.RegistrarService. Uniqueness lives in the
// store: AddAttendee is a conditional append on (event, email), so however
// many confirmation paths call Register concurrently, exactly one attendee
// entry is created.
type RegistrarImpl struct {
	eventRepo ports.EventRepository
	notifier  ports.TicketNotifier
	log       zerolog.Logger
}

// NewRegistrar creates a new RegistrarImpl.
func NewRegistrar(eventRepo ports.EventRepository, notifier ports.TicketNotifier, log zerolog.Logger) *RegistrarImpl {
	return &RegistrarImpl{
		eventRepo: eventRepo,
		notifier:  notifier,
		log:       log,
	}
}

// Register adds the paying customer to the event roster. A duplicate email
// reports AlreadyRegistered and succeeds; the attendee holds a ticket either
// way and callers treat both outcomes the same.
func (s *RegistrarImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResult, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if req.EventID == "" {
		return nil, apperror.ErrMissingField("event_id")
	}
	if email == "" {
		return nil, apperror.ErrMissingField("email")
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load event: %w", err))
	}
	if event == nil {
		monitoring.RegistrationAttempt("event_not_found")
		return nil, apperror.ErrNotFound("event")
	}
	if !event.RegistrationOpen {
		monitoring.RegistrationAttempt("registration_closed")
		return nil, apperror.ErrRegistrationClosed()
	}

	attendee := domain.AttendeeRegistration{
		Email:        email,
		Name:         req.Name,
		Passcode:     uuid.NewString(),
		Payment:      req.Payment,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.eventRepo.AddAttendee(ctx, req.EventID, attendee); err != nil {
		if errors.Is(err, ports.ErrAlreadyRegistered) {
			monitoring.RegistrationAttempt("duplicate")
			s.log.Info().
				Str("event_id", req.EventID).
				Str("email", email).
				Msg("attendee already on roster")
			return &ports.RegisterResult{AlreadyRegistered: true}, nil
		}
		monitoring.RegistrationAttempt("error")
		return nil, apperror.InternalError(fmt.Errorf("add attendee: %w", err))
	}

	monitoring.RegistrationAttempt("registered")
	s.log.Info().
		Str("event_id", req.EventID).
		Str("email", email).
		Msg("attendee registered")

	// Ticket issuance is advisory. The notifier retries on its own; a
	// failure here never unwinds the roster entry.
	if s.notifier != nil {
		if err := s.notifier.NotifyTicketIssued(ctx, event, attendee); err != nil {
			s.log.Error().Err(err).
				Str("event_id", req.EventID).
				Str("email", email).
				Msg("ticket notification failed")
		}
	}

	return &ports.RegisterResult{Registered: true, Passcode: attendee.Passcode}, nil
}
