package integration

import (
	"context"
	"fmt"
	"sync"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"

	"github.com/google/uuid"
)

// In-memory stand-ins for the postgres repos. They hold the same contracts
// the SQL layer guarantees: Transition is a compare-and-set refusing updates
// on terminal records, AddAttendee checks membership and appends under one
// lock.

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.PaymentRecord
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.PaymentRecord)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.Reference == rec.Reference {
			return ports.ErrDuplicateReference
		}
	}
	cp := *rec
	r.payments[rec.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryPaymentRepo) GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.payments {
		if rec.Reference == reference {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) GetByPollHandle(ctx context.Context, pollHandle string) (*domain.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.payments {
		if rec.PollHandle == pollHandle {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) Transition(ctx context.Context, id uuid.UUID, to domain.PaymentStatus, rawNotification string) (domain.PaymentStatus, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.payments[id]
	if !ok {
		return "", false, fmt.Errorf("payment not found: %s", id)
	}
	prior := rec.Status
	if prior.IsTerminal() {
		return prior, false, nil
	}
	rec.Status = to
	if rawNotification != "" {
		rec.LastNotification = rawNotification
	}
	return prior, true, nil
}

func (r *inMemoryPaymentRepo) MarkManuallyVerified(ctx context.Context, id uuid.UUID, verifiedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found: %s", id)
	}
	rec.ManuallyVerified = true
	rec.VerifiedBy = verifiedBy
	return nil
}

func (r *inMemoryPaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.PaymentRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.PaymentRecord
	for _, rec := range r.payments {
		if params.EventID != nil && rec.EventID != *params.EventID {
			continue
		}
		if params.Status != nil && rec.Status != *params.Status {
			continue
		}
		matched = append(matched, *rec)
	}
	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryPaymentRepo) GetStats(ctx context.Context, eventID *string) (*ports.PaymentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.PaymentStats{}
	for _, rec := range r.payments {
		if eventID != nil && rec.EventID != *eventID {
			continue
		}
		stats.Total++
		switch {
		case rec.Status.IsPaidEquivalent():
			stats.Paid++
		case rec.Status == domain.PaymentStatusCancelled:
			stats.Cancelled++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{events: make(map[string]*domain.Event)}
}

func (r *inMemoryEventRepo) seed(event *domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = event
}

func (r *inMemoryEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	cp := *event
	cp.Attendees = append([]domain.AttendeeRegistration(nil), event.Attendees...)
	return &cp, nil
}

func (r *inMemoryEventRepo) AddAttendee(ctx context.Context, eventID string, attendee domain.AttendeeRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %s", eventID)
	}
	if event.HasAttendee(attendee.Email) {
		return ports.ErrAlreadyRegistered
	}
	event.Attendees = append(event.Attendees, attendee)
	return nil
}

func (r *inMemoryEventRepo) attendeeCount(eventID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[eventID]
	if !ok {
		return 0
	}
	return len(event.Attendees)
}
