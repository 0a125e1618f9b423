package ports

import (
	"context"
	"time"

	"ticketing-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway abstracts the external payment processor. The production client
// talks HTTP to the real gateway; the simulated gateway fabricates outcomes
// for sandbox payments. Selection happens once, at the reconciliation
// boundary, keyed on PaymentRecord.IsTestMode.
type Gateway interface {
	// InitiateRedirect starts a browser-redirect payment flow.
	InitiateRedirect(ctx context.Context, req GatewayInitiateRequest) (*GatewayHandles, error)

	// InitiateMobile starts a mobile-money push flow for the given phone
	// number and provider method.
	InitiateMobile(ctx context.Context, req GatewayInitiateRequest, phone, method string) (*GatewayHandles, error)

	// Poll queries the current status of a payment. Transport failures and
	// timeouts are returned as errors; callers degrade them to pending.
	Poll(ctx context.Context, rec *domain.PaymentRecord) (*GatewayStatus, error)
}

// GatewayInitiateRequest is what the gateway needs to open a payment.
type GatewayInitiateRequest struct {
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	Description   string
}

// GatewayHandles are the opaque references the gateway returns at creation.
type GatewayHandles struct {
	PollHandle   string
	RedirectURL  string
	Instructions string
}

// GatewayStatus is the gateway's view of a payment at poll time.
type GatewayStatus struct {
	Status domain.PaymentStatus
	Raw    map[string]string
}

// SignatureVerifier signs and verifies gateway notification payloads using
// the shared-secret keyed hash scheme.
type SignatureVerifier interface {
	Sign(payload map[string]string, secret string) string
	Verify(payload map[string]string, providedSignature, secret string) bool
}

// --- Service Ports (Business Logic) ---

// InitiatorService creates payment intents.
type InitiatorService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
}

// InitiateRequest holds validated input for payment creation.
type InitiateRequest struct {
	EventID       string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	CustomerName  string
	Phone         string // empty = redirect flow
	TestMode      bool
	TestBehavior  domain.TestBehavior
}

// InitiateResult is returned to the caller after a successful creation.
type InitiateResult struct {
	PaymentID    uuid.UUID
	Reference    string
	PollHandle   string
	RedirectURL  string
	Instructions string
	IsTestMode   bool
}

// ReconcilerService drives active status queries and applies transitions.
type ReconcilerService interface {
	// Reconcile loads the record by whichever key is supplied, queries the
	// gateway unless the status is already terminal, and applies any
	// transition. It never fails on gateway trouble; that degrades to the
	// last known status.
	Reconcile(ctx context.Context, key LookupKey) (*ReconcileResult, error)

	// MarkPaid is the authenticated manual override: it forces the paid
	// transition through the same guarded path as webhook and poll.
	MarkPaid(ctx context.Context, reference, verifiedBy string) (*ReconcileResult, error)
}

// LookupKey identifies a payment by exactly one of its keys.
type LookupKey struct {
	PaymentID  *uuid.UUID
	Reference  string
	PollHandle string
}

// ReconcileResult reports the status after reconciliation. NewlyConfirmed
// distinguishes "this call observed the paid transition" from "already knew".
type ReconcileResult struct {
	Reference      string
	Status         domain.PaymentStatus
	Paid           bool
	NewlyConfirmed bool
	Amount         decimal.Decimal
}

// WebhookService handles inbound gateway notifications.
type WebhookService interface {
	// Receive verifies and applies a gateway-pushed notification. fields is
	// the decoded form payload, including reference, status and hash.
	Receive(ctx context.Context, fields map[string]string) (*WebhookResult, error)
}

// WebhookResult reports what a notification did.
type WebhookResult struct {
	Reference string
	Status    domain.PaymentStatus
	Applied   bool
}

// RegistrarService idempotently adds paying attendees to event rosters.
type RegistrarService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
}

// RegisterRequest holds validated input for attendee registration.
type RegisterRequest struct {
	EventID string
	Name    string
	Email   string
	Payment domain.PaymentInfo
}

// RegisterResult reports the registration outcome. AlreadyRegistered is
// success-equivalent: the attendee holds a ticket either way.
type RegisterResult struct {
	Registered        bool
	AlreadyRegistered bool
	Passcode          string
}

// TicketNotifier is the external ticket-issuance collaborator. Failures are
// logged by callers and never roll back a registration.
type TicketNotifier interface {
	NotifyTicketIssued(ctx context.Context, event *domain.Event, attendee domain.AttendeeRegistration) error
}

// AuthService authenticates operators for the manual verification endpoints.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// TokenService handles operator JWT operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed operator identity.
type TokenClaims struct {
	Subject string
}

// HashService handles credential hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// EncryptionService encrypts audit payloads at rest (AES-256-GCM).
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}
