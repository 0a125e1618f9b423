package ports

import (
	"context"
	"errors"
	"time"

	"ticketing-payments/internal/core/domain"

	"github.com/google/uuid"
)

// Sentinel errors surfaced by repositories. Both are idempotency barriers:
// a duplicate create or append is detected at the store, not in application
// memory, so racing callers cannot both succeed.
var (
	// ErrDuplicateReference is returned when a payment with the same
	// reference already exists (unique index violation).
	ErrDuplicateReference = errors.New("payment reference already exists")

	// ErrAlreadyRegistered is returned when an attendee with the same email
	// already exists on the event roster.
	ErrAlreadyRegistered = errors.New("attendee already registered for event")
)

// PaymentRepository defines persistence operations for payment records.
// Get* methods return (nil, nil) when no record matches.
type PaymentRepository interface {
	Create(ctx context.Context, rec *domain.PaymentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRecord, error)
	GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error)
	GetByPollHandle(ctx context.Context, pollHandle string) (*domain.PaymentRecord, error)

	// Transition moves the record to a new status iff the stored status is
	// still non-terminal. It is the only permitted way to reach a terminal
	// status, and the compare-and-set guard is what keeps the webhook, poll
	// and manual paths from double-applying a transition. It returns the
	// status held immediately before the update and whether the update was
	// applied. rawNotification, when non-empty, replaces the stored audit
	// payload (already encrypted by the caller).
	Transition(ctx context.Context, id uuid.UUID, to domain.PaymentStatus, rawNotification string) (prior domain.PaymentStatus, applied bool, err error)

	// MarkManuallyVerified records an operator override on the payment.
	MarkManuallyVerified(ctx context.Context, id uuid.UUID, verifiedBy string) error

	List(ctx context.Context, params PaymentListParams) ([]domain.PaymentRecord, int64, error)
	GetStats(ctx context.Context, eventID *string) (*PaymentStats, error)
}

// PaymentListParams holds filter + pagination for listing payments.
type PaymentListParams struct {
	EventID  *string
	Status   *domain.PaymentStatus
	Page     int
	PageSize int
}

// PaymentStats holds aggregate counts for the operator dashboard.
type PaymentStats struct {
	Total     int64
	Paid      int64
	Pending   int64
	Cancelled int64
}

// EventRepository defines the narrow slice of event persistence this
// subsystem needs: loading the aggregate and atomically appending attendees.
type EventRepository interface {
	// GetByID returns (nil, nil) when the event does not exist.
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// AddAttendee appends the attendee iff no entry with the same email
	// exists for the event. The membership check and the append are a
	// single store-level operation; returns ErrAlreadyRegistered when the
	// (event, email) pair is already taken.
	AddAttendee(ctx context.Context, eventID string, attendee domain.AttendeeRegistration) error
}

// StatusCache is a best-effort fast path for reconciliation results of
// terminal payments. It stores the marshaled result keyed by reference;
// misses and errors both mean "consult the record store".
type StatusCache interface {
	// Get returns the cached payload, or nil when absent.
	Get(ctx context.Context, reference string) ([]byte, error)
	Set(ctx context.Context, reference string, payload []byte, ttl time.Duration) error
}
