package dto

import "github.com/shopspring/decimal"

// CreatePaymentRequest is the request body for payment creation.
type CreatePaymentRequest struct {
	EventID      string          `json:"event_id" binding:"required,max=100,safe_id"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Currency     string          `json:"currency" binding:"omitempty,len=3"`
	Email        string          `json:"email" binding:"required,email"`
	Name         string          `json:"name" binding:"required,min=1,max=100"`
	Phone        *string         `json:"phone,omitempty"`
	TestMode     bool            `json:"test_mode"`
	TestBehavior string          `json:"test_behavior"`
}

// PollRequest identifies a payment by exactly one of its keys. Bound from
// query parameters on GET and from the JSON body on POST.
type PollRequest struct {
	PollURL   string `json:"poll_url" form:"poll_url" binding:"omitempty,max=500"`
	PaymentID string `json:"payment_id" form:"payment_id" binding:"omitempty,uuid"`
	Reference string `json:"reference" form:"reference" binding:"omitempty,max=100"`
}

// VerifyRequest is the request body for the operator verification endpoint.
type VerifyRequest struct {
	Reference  string `json:"reference" binding:"required,max=100"`
	MarkAsPaid bool   `json:"mark_as_paid"`
}

// LoginRequest is the request body for operator login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreatePaymentResponse is returned after a payment intent is created.
type CreatePaymentResponse struct {
	Success      bool   `json:"success"`
	PaymentID    string `json:"payment_id"`
	Reference    string `json:"reference"`
	PollHandle   string `json:"poll_handle"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	IsTestMode   bool   `json:"is_test_mode"`
}

// PollResponse reports the reconciled status of a payment.
type PollResponse struct {
	Paid           bool   `json:"paid"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
	Reference      string `json:"reference"`
	NewlyConfirmed bool   `json:"newly_confirmed"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// PaymentSummary is a single row in the operator payment listing.
type PaymentSummary struct {
	ID               string  `json:"id"`
	Reference        string  `json:"reference"`
	EventID          string  `json:"event_id"`
	CustomerEmail    string  `json:"customer_email"`
	Amount           string  `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	IsTestMode       bool    `json:"is_test_mode"`
	ManuallyVerified bool    `json:"manually_verified"`
	VerifiedBy       *string `json:"verified_by,omitempty"`
	InitiatedAt      string  `json:"initiated_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// PaymentListResponse wraps a paginated payment listing.
type PaymentListResponse struct {
	Items      []PaymentSummary `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// StatsResponse holds aggregate payment counts for the operator dashboard.
type StatsResponse struct {
	Total     int64 `json:"total"`
	Paid      int64 `json:"paid"`
	Pending   int64 `json:"pending"`
	Cancelled int64 `json:"cancelled"`
}
