package handler

import (
	"net/http"

	"ticketing-payments/internal/core/ports"
	"ticketing-payments/pkg/apperror"
	"ticketing-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives payment status notifications from the gateway.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// HandleNotification handles POST /api/v1/payments/webhook. The gateway
// posts form-encoded fields and retries on any non-200, so accepted
// notifications always answer 200 even when they changed nothing.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		response.Error(c, apperror.Validation("malformed form body"))
		return
	}

	fields := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	result, err := h.webhookSvc.Receive(c.Request.Context(), fields)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "notification processed"
	if !result.Applied {
		message = "notification acknowledged"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
