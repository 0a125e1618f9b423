package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository. The roster lives in a jsonb
// column; the conditional append keeps membership checks inside the store so
// concurrent registrations cannot both pass.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// GetByID fetches an event; (nil, nil) when absent.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT id, name, registration_open, COALESCE(attendees, '[]'::jsonb), created_at
		FROM events WHERE id = $1`

	var event domain.Event
	var attendeesRaw []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID, &event.Name, &event.RegistrationOpen, &attendeesRaw, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if err := json.Unmarshal(attendeesRaw, &event.Attendees); err != nil {
		return nil, fmt.Errorf("decode attendees: %w", err)
	}
	return &event, nil
}

// AddAttendee appends the attendee iff no roster entry carries the same
// email. The membership check and the append are one UPDATE, so racing
// callers serialise on the row lock and the loser re-evaluates against the
// winner's roster.
func (r *EventRepo) AddAttendee(ctx context.Context, eventID string, attendee domain.AttendeeRegistration) error {
	entry, err := json.Marshal(attendee)
	if err != nil {
		return fmt.Errorf("encode attendee: %w", err)
	}

	query := `UPDATE events
		SET attendees = COALESCE(attendees, '[]'::jsonb) || $2::jsonb
		WHERE id = $1 AND NOT EXISTS (
			SELECT 1 FROM jsonb_array_elements(COALESCE(attendees, '[]'::jsonb)) AS a
			WHERE a->>'email' = $3
		)`

	tag, err := r.pool.Exec(ctx, query, eventID, entry, attendee.Email)
	if err != nil {
		return fmt.Errorf("append attendee: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows is either a missing event or an existing roster entry.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return fmt.Errorf("check event exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return ports.ErrAlreadyRegistered
}
