package postgres

import (
	"context"
	"testing"
	"time"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentCols = []string{
	"id", "reference", "event_id", "customer_email", "customer_name", "amount", "currency",
	"status", "poll_handle", "is_test_mode", "test_behavior", "initiated_at", "last_notification",
	"manually_verified", "verified_by", "updated_at",
}

func samplePayment() *domain.PaymentRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.PaymentRecord{
		ID:            uuid.New(),
		Reference:     "conf-2026-1756600000000000000",
		EventID:       "conf-2026",
		CustomerEmail: "dana@example.com",
		CustomerName:  "Dana",
		Amount:        decimal.NewFromInt(25),
		Currency:      "USD",
		Status:        domain.PaymentStatusCreated,
		PollHandle:    "https://gateway.example.com/poll/abc",
		InitiatedAt:   now,
		UpdatedAt:     now,
	}
}

func paymentRow(rec *domain.PaymentRecord) *pgxmock.Rows {
	return pgxmock.NewRows(paymentCols).AddRow(
		rec.ID, rec.Reference, rec.EventID, rec.CustomerEmail, rec.CustomerName,
		rec.Amount, rec.Currency, rec.Status, rec.PollHandle, rec.IsTestMode,
		rec.TestBehavior, rec.InitiatedAt, rec.LastNotification,
		rec.ManuallyVerified, rec.VerifiedBy, rec.UpdatedAt,
	)
}

func TestPaymentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	rec := samplePayment()

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(
			rec.ID, rec.Reference, rec.EventID, rec.CustomerEmail, rec.CustomerName,
			rec.Amount, rec.Currency, rec.Status, rec.PollHandle, rec.IsTestMode,
			rec.TestBehavior, rec.InitiatedAt, rec.LastNotification,
			rec.ManuallyVerified, rec.VerifiedBy, rec.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_CreateDuplicateReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	rec := samplePayment()

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(
			rec.ID, rec.Reference, rec.EventID, rec.CustomerEmail, rec.CustomerName,
			rec.Amount, rec.Currency, rec.Status, rec.PollHandle, rec.IsTestMode,
			rec.TestBehavior, rec.InitiatedAt, rec.LastNotification,
			rec.ManuallyVerified, rec.VerifiedBy, rec.UpdatedAt,
		).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "payments_reference_key"})

	err = repo.Create(context.Background(), rec)
	assert.ErrorIs(t, err, ports.ErrDuplicateReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	rec := samplePayment()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE reference").
		WithArgs(rec.Reference).
		WillReturnRows(paymentRow(rec))

	got, err := repo.GetByReference(context.Background(), rec.Reference)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Status, got.Status)
	assert.True(t, rec.Amount.Equal(got.Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByReferenceMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payments WHERE reference").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(paymentCols))

	got, err := repo.GetByReference(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetByPollHandle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	rec := samplePayment()

	mock.ExpectQuery("SELECT .+ FROM payments WHERE poll_handle").
		WithArgs(rec.PollHandle).
		WillReturnRows(paymentRow(rec))

	got, err := repo.GetByPollHandle(context.Background(), rec.PollHandle)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Reference, got.Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_TransitionApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("UPDATE payments SET").
		WithArgs(id, domain.PaymentStatusPaid, "encrypted-payload").
		WillReturnRows(pgxmock.NewRows([]string{"status", "exists"}).
			AddRow(domain.PaymentStatusPending, true))

	prior, applied, err := repo.Transition(context.Background(), id, domain.PaymentStatusPaid, "encrypted-payload")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.PaymentStatusPending, prior)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_TransitionRefusedOnTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("UPDATE payments SET").
		WithArgs(id, domain.PaymentStatusCancelled, "").
		WillReturnRows(pgxmock.NewRows([]string{"status", "exists"}).
			AddRow(domain.PaymentStatusPaid, false))

	prior, applied, err := repo.Transition(context.Background(), id, domain.PaymentStatusCancelled, "")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, domain.PaymentStatusPaid, prior)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_TransitionUnknownPayment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("UPDATE payments SET").
		WithArgs(id, domain.PaymentStatusPaid, "").
		WillReturnRows(pgxmock.NewRows([]string{"status", "exists"}))

	_, _, err = repo.Transition(context.Background(), id, domain.PaymentStatusPaid, "")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_MarkManuallyVerified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE payments SET manually_verified").
		WithArgs(id, "ops@example.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkManuallyVerified(context.Background(), id, "ops@example.com")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	rec := samplePayment()
	eventID := "conf-2026"
	status := domain.PaymentStatusPaid

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(eventID, status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM payments .+ ORDER BY initiated_at DESC").
		WithArgs(eventID, status, 20, 0).
		WillReturnRows(paymentRow(rec))

	recs, total, err := repo.List(context.Background(), ports.PaymentListParams{
		EventID:  &eventID,
		Status:   &status,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.Reference, recs[0].Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"total", "paid", "pending", "cancelled"}).
			AddRow(int64(10), int64(6), int64(3), int64(1)))

	stats, err := repo.GetStats(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(6), stats.Paid)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
