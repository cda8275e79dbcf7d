package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type CheckoutHandler struct {
	checkout *services.CheckoutService
	logs     *services.SystemLogService
}

func NewCheckoutHandler(checkout *services.CheckoutService, logs *services.SystemLogService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logs: logs}
}

// Webhook receives provider events. The signature covers the raw body, so it
// is read before any decoding.
// POST /api/checkout/webhook
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}

	handled, err := h.checkout.HandleWebhook(c.Request.Context(), body, c.GetHeader(services.HeaderCheckoutSignature))
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			h.logs.Warning(services.LogEntry{
				Module:    "checkout",
				Action:    "webhook",
				Message:   "webhook signature rejected",
				IP:        c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			})
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Success: true,
		Message: "received",
		Data:    gin.H{"handled": handled},
	})
}
