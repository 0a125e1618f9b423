package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

const paymentColumns = `id, reference, event_id, customer_email, customer_name, amount, currency,
	status, poll_handle, is_test_mode, test_behavior, initiated_at, last_notification,
	manually_verified, verified_by, updated_at`

// terminalStatuses is inlined into the transition guard. Kept as a SQL
// fragment so the guard and the Go-side IsTerminal stay reviewable side by
// side.
const terminalStatusList = `'paid', 'cancelled', 'delivered'`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a new payment record. A reference collision surfaces as
// ports.ErrDuplicateReference via the unique index, not an application
// check.
func (r *PaymentRepo) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Reference, rec.EventID, rec.CustomerEmail, rec.CustomerName,
		rec.Amount, rec.Currency, rec.Status, rec.PollHandle, rec.IsTestMode,
		rec.TestBehavior, rec.InitiatedAt, rec.LastNotification,
		rec.ManuallyVerified, rec.VerifiedBy, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ports.ErrDuplicateReference
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, id))
}

// GetByReference fetches a payment by its unique reference.
func (r *PaymentRepo) GetByReference(ctx context.Context, reference string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, reference))
}

// GetByPollHandle fetches a payment by the gateway poll URL.
func (r *PaymentRepo) GetByPollHandle(ctx context.Context, pollHandle string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE poll_handle = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, pollHandle))
}

// Transition applies the guarded status update in one statement. The guard
// checks the stored status is still non-terminal; a concurrent settler makes
// this a no-op with applied=false. The prior status is read from the same
// snapshot as the update.
func (r *PaymentRepo) Transition(ctx context.Context, id uuid.UUID, to domain.PaymentStatus, rawNotification string) (domain.PaymentStatus, bool, error) {
	query := `WITH prior AS (
			SELECT status FROM payments WHERE id = $1
		), updated AS (
			UPDATE payments SET
				status = $2,
				last_notification = CASE WHEN $3::text <> '' THEN $3 ELSE last_notification END,
				updated_at = now()
			WHERE id = $1 AND status NOT IN (` + terminalStatusList + `)
			RETURNING id
		)
		SELECT prior.status, EXISTS(SELECT 1 FROM updated) FROM prior`

	var prior domain.PaymentStatus
	var applied bool
	err := r.pool.QueryRow(ctx, query, id, to, rawNotification).Scan(&prior, &applied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("payment not found: %s", id)
		}
		return "", false, fmt.Errorf("transition payment: %w", err)
	}
	return prior, applied, nil
}

// MarkManuallyVerified records the operator override identity.
func (r *PaymentRepo) MarkManuallyVerified(ctx context.Context, id uuid.UUID, verifiedBy string) error {
	query := `UPDATE payments SET manually_verified = true, verified_by = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, verifiedBy)
	if err != nil {
		return fmt.Errorf("mark manually verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// List fetches payments with filtering and pagination.
func (r *PaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.PaymentRecord, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.EventID != nil {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", argIdx))
		args = append(args, *params.EventID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payments %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM payments %s ORDER BY initiated_at DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var recs []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		if err := scanPaymentFields(rows, &rec); err != nil {
			return nil, 0, fmt.Errorf("scan payment row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payment rows: %w", err)
	}
	return recs, total, nil
}

// GetStats retrieves aggregate payment counts, optionally scoped to one
// event. Paid counts every paid-equivalent status.
func (r *PaymentRepo) GetStats(ctx context.Context, eventID *string) (*ports.PaymentStats, error) {
	condition := "TRUE"
	var args []any
	if eventID != nil {
		condition = "event_id = $1"
		args = append(args, *eventID)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status IN ('paid', 'waiting_delivery', 'delivered')) AS paid,
		COUNT(*) FILTER (WHERE status IN ('created', 'pending')) AS pending,
		COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM payments WHERE %s`, condition)

	stats := &ports.PaymentStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Total, &stats.Paid, &stats.Pending, &stats.Cancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("get payment stats: %w", err)
	}
	return stats, nil
}

// scanPayment maps a single row; no rows means (nil, nil).
func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	if err := scanPaymentFields(row, &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &rec, nil
}

func scanPaymentFields(row pgx.Row, rec *domain.PaymentRecord) error {
	return row.Scan(
		&rec.ID, &rec.Reference, &rec.EventID, &rec.CustomerEmail, &rec.CustomerName,
		&rec.Amount, &rec.Currency, &rec.Status, &rec.PollHandle, &rec.IsTestMode,
		&rec.TestBehavior, &rec.InitiatedAt, &rec.LastNotification,
		&rec.ManuallyVerified, &rec.VerifiedBy, &rec.UpdatedAt,
	)
}
