package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the aggregate a paying customer is registered against.
// Attendees is append-only from this subsystem's point of view.
type Event struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	RegistrationOpen bool                   `json:"registration_open"`
	Attendees        []AttendeeRegistration `json:"attendees"`
	CreatedAt        time.Time              `json:"created_at"`
}

// HasAttendee reports whether an attendee with the given email is already
// registered. Email comparison is exact; callers normalise beforehand.
func (e *Event) HasAttendee(email string) bool {
	for _, a := range e.Attendees {
		if a.Email == email {
			return true
		}
	}
	return false
}

// AttendeeRegistration is a single roster entry. Entries are created exactly
// once and never mutated or removed by the payment subsystem.
type AttendeeRegistration struct {
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Passcode     string      `json:"passcode"`
	Payment      PaymentInfo `json:"payment"`
	RegisteredAt time.Time   `json:"registered_at"`
}

// PaymentInfo records how an attendee paid.
type PaymentInfo struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Paid      bool            `json:"paid"`
	Provider  string          `json:"provider"`
}
