// Package handler implements the webhook receiver, the health endpoint and
// the integration admin API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/domain/shared"
	"github.com/erp/marketplace-gateway/internal/infrastructure/logger"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/dto"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// List sends a list response with count metadata
func (h *BaseHandler) List(c *gin.Context, data any, count, limit int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, count, limit))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleDomainError converts shared domain errors and integration errors to
// HTTP responses. Only the public message of an integration error kind is
// returned; the full error is logged.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	kind := integration.KindOf(err)
	status := kind.HTTPStatus()
	log := logger.L(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err), zap.String("error_kind", kind.String()))
	} else {
		log.Warn("request rejected", zap.Error(err), zap.String("error_kind", kind.String()))
	}
	h.Error(c, status, dto.ErrorCodeForKind(kind), kind.PublicMessage())
}

// marketplaceParam parses the :marketplace path parameter
func marketplaceParam(c *gin.Context) integration.MarketplaceCode {
	return integration.ParseMarketplaceCode(c.Param("marketplace"))
}
