package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrMissingField(field string) *AppError {
	return New("VAL_001", fmt.Sprintf("%s is required", field), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Amount must be greater than zero", http.StatusBadRequest)
}

// ---- Payment Business Logic (PAY) ----

func ErrNotFound(entity string) *AppError {
	return New("PAY_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrDuplicateReference() *AppError {
	return New("PAY_002", "Payment reference already exists", http.StatusConflict)
}

func ErrAlreadyRegistered() *AppError {
	return New("PAY_003", "Attendee already registered for this event", http.StatusConflict)
}

func ErrRegistrationClosed() *AppError {
	return New("PAY_004", "Registration for this event is closed", http.StatusForbidden)
}

// ---- Security & Authentication (SEC) ----

func ErrMissingSignature() *AppError {
	return New("SEC_001", "Notification signature is required", http.StatusBadRequest)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid notification signature", http.StatusForbidden)
}

func ErrInvalidCredentials() *AppError {
	return New("SEC_003", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("SEC_004", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Gateway (GW) ----

// ErrGatewayRejected is a deterministic refusal from the gateway at payment
// creation. Distinct from transient gateway trouble, which the reconciler
// absorbs into a pending status instead of surfacing.
func ErrGatewayRejected(reason string) *AppError {
	return New("GW_001", fmt.Sprintf("Payment gateway rejected the request: %s", reason), http.StatusBadGateway)
}

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap("GW_002", "Payment gateway unavailable", http.StatusBadGateway, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
// The wrapped detail is logged server-side, never returned to clients.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}
