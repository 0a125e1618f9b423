package handler

import (
	"net/http"
	"strings"

	"ticketing-payments/internal/adapter/http/dto"
	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/pkg/apperror"
	"ticketing-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment creation and status polling.
type PaymentHandler struct {
	initiatorSvc  ports.InitiatorService
	reconcilerSvc ports.ReconcilerService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(initiatorSvc ports.InitiatorService, reconcilerSvc ports.ReconcilerService) *PaymentHandler {
	return &PaymentHandler{initiatorSvc: initiatorSvc, reconcilerSvc: reconcilerSvc}
}

// Create handles POST /api/v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	phone := ""
	if req.Phone != nil {
		phone = strings.TrimSpace(*req.Phone)
	}

	result, err := h.initiatorSvc.Initiate(c.Request.Context(), ports.InitiateRequest{
		EventID:       req.EventID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.Email,
		CustomerName:  req.Name,
		Phone:         phone,
		TestMode:      req.TestMode,
		TestBehavior:  domain.TestBehavior(req.TestBehavior),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreatePaymentResponse{
		Success:      true,
		PaymentID:    result.PaymentID.String(),
		Reference:    result.Reference,
		PollHandle:   result.PollHandle,
		RedirectURL:  result.RedirectURL,
		Instructions: result.Instructions,
		IsTestMode:   result.IsTestMode,
	})
}

// Poll handles GET and POST /api/v1/payments/poll. The payment may be
// identified by poll handle, payment id or reference; exactly one is needed.
func (h *PaymentHandler) Poll(c *gin.Context) {
	var req dto.PollRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	key, appErr := lookupKeyFrom(req)
	if appErr != nil {
		response.Error(c, appErr)
		return
	}

	result, err := h.reconcilerSvc.Reconcile(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, pollResponseFrom(result))
}

func lookupKeyFrom(req dto.PollRequest) (ports.LookupKey, *apperror.AppError) {
	var key ports.LookupKey
	switch {
	case req.PollURL != "":
		key.PollHandle = req.PollURL
	case req.PaymentID != "":
		id, err := uuid.Parse(req.PaymentID)
		if err != nil {
			return key, apperror.Validation("payment_id is not a valid UUID")
		}
		key.PaymentID = &id
	case req.Reference != "":
		key.Reference = req.Reference
	default:
		return key, apperror.Validation("one of poll_url, payment_id or reference is required")
	}
	return key, nil
}

func pollResponseFrom(result *ports.ReconcileResult) dto.PollResponse {
	return dto.PollResponse{
		Paid:           result.Paid,
		Status:         string(result.Status),
		Amount:         result.Amount.StringFixed(2),
		Reference:      result.Reference,
		NewlyConfirmed: result.NewlyConfirmed,
	}
}
