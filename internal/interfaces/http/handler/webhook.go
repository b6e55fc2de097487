package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/logger"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/dto"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/middleware"
)

// WebhookProcessor handles one raw marketplace delivery
type WebhookProcessor interface {
	Handle(ctx context.Context, marketplace string, body []byte, headers http.Header) (*appintegration.WebhookResult, error)
}

// WebhookHandler receives marketplace webhooks. Responses use the flat
// {status} / {error} bodies marketplaces expect rather than the admin envelope.
type WebhookHandler struct {
	processor WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Receive godoc
// @ID           receiveWebhook
// @Summary      Receive a marketplace webhook
// @Description  Verifies the HMAC signature header and applies the event. Every authenticated
// @Description  and well-formed delivery is acknowledged, including unknown event types.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        marketplace              path   string true  "Marketplace code"
// @Param        X-Hepsiburada-Signature header string false "sha256=<hex HMAC of the body>"
// @Success      200 {object} dto.WebhookAck
// @Failure      400 {object} dto.WebhookError
// @Failure      401 {object} dto.WebhookError
// @Failure      404 {object} dto.WebhookError
// @Failure      413 {object} dto.WebhookError
// @Failure      500 {object} dto.WebhookError
// @Router       /webhook/{marketplace} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.WebhookError{Error: middleware.PayloadTooLargeMessage})
			return
		}
		c.JSON(http.StatusBadRequest, dto.WebhookError{Error: "Unable to read request body"})
		return
	}

	result, err := h.processor.Handle(c.Request.Context(), c.Param("marketplace"), body, c.Request.Header)
	if appintegration.IsAcknowledged(err) {
		c.JSON(http.StatusOK, dto.WebhookAck{Status: "success"})
		return
	}

	log := logger.L(c.Request.Context())
	switch {
	case errors.Is(err, integration.ErrMarketplaceNotConfigured), errors.Is(err, integration.ErrMarketplaceDisabled):
		c.JSON(http.StatusNotFound, dto.WebhookError{Error: "Unknown marketplace"})
	case errors.Is(err, integration.ErrAuthentication):
		log.Warn("webhook signature rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, dto.WebhookError{Error: "Invalid signature"})
	case errors.Is(err, integration.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.WebhookError{Error: err.Error()})
	default:
		fields := []zap.Field{zap.Error(err)}
		if result != nil {
			fields = append(fields, zap.Stringer("webhook_event_id", result.WebhookEventID))
		}
		log.Error("webhook processing failed", fields...)
		c.JSON(http.StatusInternalServerError, dto.WebhookError{Error: "Internal server error"})
	}
}
