package handler

import (
	"strconv"
	"time"

	"ticketing-payments/internal/adapter/http/dto"
	"ticketing-payments/internal/adapter/http/middleware"
	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/pkg/apperror"
	"ticketing-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AdminHandler serves the operator endpoints: manual verification, payment
// listing and aggregate stats.
type AdminHandler struct {
	reconcilerSvc ports.ReconcilerService
	payments      ports.PaymentRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reconcilerSvc ports.ReconcilerService, payments ports.PaymentRepository) *AdminHandler {
	return &AdminHandler{reconcilerSvc: reconcilerSvc, payments: payments}
}

// VerifyPayment handles POST /api/v1/admin/payments/verify. With
// mark_as_paid set the payment is forced to paid under the operator's
// identity; otherwise the gateway is re-queried.
func (h *AdminHandler) VerifyPayment(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	var (
		result *ports.ReconcileResult
		err    error
	)
	if req.MarkAsPaid {
		result, err = h.reconcilerSvc.MarkPaid(c.Request.Context(), req.Reference, middleware.Subject(c))
	} else {
		result, err = h.reconcilerSvc.Reconcile(c.Request.Context(), ports.LookupKey{Reference: req.Reference})
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, pollResponseFrom(result))
}

// ListPayments handles GET /api/v1/admin/payments.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	params := ports.PaymentListParams{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", defaultPageSize),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		params.PageSize = defaultPageSize
	}
	if eventID := c.Query("event_id"); eventID != "" {
		params.EventID = &eventID
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.PaymentStatus(raw)
		params.Status = &status
	}

	records, total, err := h.payments.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PaymentSummary, 0, len(records))
	for i := range records {
		items = append(items, paymentSummaryFrom(&records[i]))
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	response.OK(c, dto.PaymentListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

// GetStats handles GET /api/v1/admin/stats.
func (h *AdminHandler) GetStats(c *gin.Context) {
	var eventID *string
	if id := c.Query("event_id"); id != "" {
		eventID = &id
	}

	stats, err := h.payments.GetStats(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StatsResponse{
		Total:     stats.Total,
		Paid:      stats.Paid,
		Pending:   stats.Pending,
		Cancelled: stats.Cancelled,
	})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func paymentSummaryFrom(rec *domain.PaymentRecord) dto.PaymentSummary {
	summary := dto.PaymentSummary{
		ID:               rec.ID.String(),
		Reference:        rec.Reference,
		EventID:          rec.EventID,
		CustomerEmail:    rec.CustomerEmail,
		Amount:           rec.Amount.StringFixed(2),
		Currency:         rec.Currency,
		Status:           string(rec.Status),
		IsTestMode:       rec.IsTestMode,
		ManuallyVerified: rec.ManuallyVerified,
		InitiatedAt:      rec.InitiatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if rec.VerifiedBy != "" {
		verifiedBy := rec.VerifiedBy
		summary.VerifiedBy = &verifiedBy
	}
	return summary
}
