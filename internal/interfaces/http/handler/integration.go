package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/domain/shared"
	"github.com/erp/marketplace-gateway/internal/infrastructure/gateway"
	"github.com/erp/marketplace-gateway/internal/infrastructure/logger"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/dto"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/middleware"
)

// DefaultStatsWindow is the stats lookback when no since is given
const DefaultStatsWindow = 24 * time.Hour

// AuditReader reads the webhook log, notifications and outbound request log
type AuditReader interface {
	ListLogs(ctx context.Context, filter integration.LogFilter) ([]integration.WebhookLog, error)
	ListNotifications(ctx context.Context, filter integration.LogFilter) ([]integration.NotificationRecord, error)
	ListAPIRequests(ctx context.Context, filter integration.LogFilter) ([]integration.APIRequestLog, error)
	Stats(ctx context.Context, marketplace integration.MarketplaceCode, since time.Time) ([]integration.EventTypeStat, error)
}

// DeadLetterReplayer drains the dead-letter queue on demand
type DeadLetterReplayer interface {
	Replay(ctx context.Context, max int) (appintegration.ReplayReport, error)
	Pending(ctx context.Context) (int64, error)
}

// MarketplaceOperations are the outbound calls exposed to operators
type MarketplaceOperations interface {
	TestConnection(ctx context.Context, code integration.MarketplaceCode) gateway.Envelope
	FetchOrders(ctx context.Context, code integration.MarketplaceCode, filter integration.OrderFilter) gateway.Envelope
	FetchCategories(ctx context.Context, code integration.MarketplaceCode, query string) gateway.Envelope
	PushPrice(ctx context.Context, code integration.MarketplaceCode, sku string, price decimal.Decimal) gateway.Envelope
	PushInventory(ctx context.Context, code integration.MarketplaceCode, sku string, quantity int) gateway.Envelope
}

// GatewayInspector exposes the outbound gateway's resilience state
type GatewayInspector interface {
	Breakers() *gateway.BreakerRegistry
	RateLimiter() *gateway.RateLimiter
}

// IntegrationHandler serves the integration admin API
type IntegrationHandler struct {
	BaseHandler
	audit        AuditReader
	replayer     DeadLetterReplayer
	marketplaces MarketplaceOperations
	gateway      GatewayInspector
	now          func() time.Time
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(audit AuditReader, replayer DeadLetterReplayer, marketplaces MarketplaceOperations, gw GatewayInspector) *IntegrationHandler {
	return &IntegrationHandler{
		audit:        audit,
		replayer:     replayer,
		marketplaces: marketplaces,
		gateway:      gw,
		now:          time.Now,
	}
}

func (h *IntegrationHandler) bindAuditQuery(c *gin.Context) (integration.LogFilter, bool) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return integration.LogFilter{}, false
	}
	filter := integration.LogFilter{
		Marketplace: integration.ParseMarketplaceCode(query.Marketplace),
		EventType:   integration.EventType(query.EventType),
		Since:       query.Since,
		Limit:       query.Limit,
	}
	filter.Normalize()
	return filter, true
}

// ListWebhookLogs godoc
// @ID           listWebhookLogs
// @Summary      List webhook log entries
// @Tags         integration
// @Produce      json
// @Param        marketplace query string false "Marketplace code"
// @Param        event_type  query string false "Event type"
// @Param        since       query string false "RFC3339 lower bound"
// @Param        limit       query int    false "Page size"
// @Success      200 {object} dto.Response{data=[]integration.WebhookLog}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/webhooks/logs [get]
func (h *IntegrationHandler) ListWebhookLogs(c *gin.Context) {
	filter, ok := h.bindAuditQuery(c)
	if !ok {
		return
	}
	logs, err := h.audit.ListLogs(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.List(c, logs, len(logs), filter.Limit)
}

// ListNotifications godoc
// @ID           listNotifications
// @Summary      List notifications
// @Tags         integration
// @Produce      json
// @Param        marketplace query string false "Marketplace code"
// @Param        since       query string false "RFC3339 lower bound"
// @Param        limit       query int    false "Page size"
// @Success      200 {object} dto.Response{data=[]integration.NotificationRecord}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/notifications [get]
func (h *IntegrationHandler) ListNotifications(c *gin.Context) {
	filter, ok := h.bindAuditQuery(c)
	if !ok {
		return
	}
	notifications, err := h.audit.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.List(c, notifications, len(notifications), filter.Limit)
}

// ListAPIRequests godoc
// @ID           listAPIRequests
// @Summary      List outbound marketplace API calls
// @Tags         integration
// @Produce      json
// @Param        marketplace query string false "Marketplace code"
// @Param        since       query string false "RFC3339 lower bound"
// @Param        limit       query int    false "Page size"
// @Success      200 {object} dto.Response{data=[]integration.APIRequestLog}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/api-requests [get]
func (h *IntegrationHandler) ListAPIRequests(c *gin.Context) {
	filter, ok := h.bindAuditQuery(c)
	if !ok {
		return
	}
	requests, err := h.audit.ListAPIRequests(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.List(c, requests, len(requests), filter.Limit)
}

// WebhookStats godoc
// @ID           webhookStats
// @Summary      Count webhook outcomes per event type
// @Tags         integration
// @Produce      json
// @Param        marketplace query string false "Marketplace code"
// @Param        since       query string false "RFC3339 lower bound, defaults to 24h ago"
// @Success      200 {object} dto.Response{data=dto.StatsResponse}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/webhooks/stats [get]
func (h *IntegrationHandler) WebhookStats(c *gin.Context) {
	var query dto.StatsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	since := query.Since
	if since.IsZero() {
		since = h.now().Add(-DefaultStatsWindow)
	}

	stats, err := h.audit.Stats(c.Request.Context(), integration.ParseMarketplaceCode(query.Marketplace), since)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	var total int64
	for _, s := range stats {
		total += s.Count
	}
	h.Success(c, dto.StatsResponse{Since: since, Total: total, Stats: stats})
}

// CircuitBreakers godoc
// @ID           listCircuitBreakers
// @Summary      Show outbound circuit breaker states
// @Tags         gateway
// @Produce      json
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/gateway/breakers [get]
func (h *IntegrationHandler) CircuitBreakers(c *gin.Context) {
	states := h.gateway.Breakers().Snapshot()
	h.List(c, states, len(states), 0)
}

// RateLimits godoc
// @ID           listRateLimits
// @Summary      Show outbound rate limit buckets
// @Tags         gateway
// @Produce      json
// @Success      200 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/gateway/rate-limits [get]
func (h *IntegrationHandler) RateLimits(c *gin.Context) {
	buckets := h.gateway.RateLimiter().Snapshot()
	h.List(c, buckets, len(buckets), 0)
}

// PendingDeadLetters godoc
// @ID           pendingDeadLetters
// @Summary      Count queued dead letters
// @Tags         dead-letters
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/dead-letters [get]
func (h *IntegrationHandler) PendingDeadLetters(c *gin.Context) {
	pending, err := h.replayer.Pending(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, gin.H{"pending": pending})
}

// ReplayDeadLetters godoc
// @ID           replayDeadLetters
// @Summary      Replay dead-lettered webhook events
// @Description  An empty body replays the default batch
// @Tags         dead-letters
// @Accept       json
// @Produce      json
// @Param        request body dto.ReplayRequest false "Batch size"
// @Success      200 {object} dto.Response{data=dto.ReplayResponse}
// @Failure      400 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/dead-letters/replay [post]
func (h *IntegrationHandler) ReplayDeadLetters(c *gin.Context) {
	var req dto.ReplayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	report, err := h.replayer.Replay(ctx, req.Max)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	pending, err := h.replayer.Pending(ctx)
	if err != nil {
		logger.L(ctx).Warn("dead-letter queue length unavailable", zap.Error(err))
	}
	h.Success(c, dto.ReplayResponse{Report: report, Pending: pending})
}

// TestConnection godoc
// @ID           testMarketplaceConnection
// @Summary      Test marketplace credentials
// @Tags         marketplaces
// @Produce      json
// @Param        marketplace path string true "Marketplace code"
// @Success      200 {object} gateway.Envelope
// @Failure      503 {object} gateway.Envelope
// @Security     BearerAuth
// @Router       /api/v1/integration/marketplaces/{marketplace}/connection [get]
func (h *IntegrationHandler) TestConnection(c *gin.Context) {
	h.envelope(c, h.marketplaces.TestConnection(c.Request.Context(), marketplaceParam(c)))
}

// FetchOrders godoc
// @ID           fetchMarketplaceOrders
// @Summary      Fetch orders from a marketplace
// @Tags         marketplaces
// @Produce      json
// @Param        marketplace path  string true  "Marketplace code"
// @Param        status      query string false "Order status"
// @Param        since       query string false "RFC3339 lower bound"
// @Param        page        query int    false "Page"
// @Param        page_size   query int    false "Page size"
// @Success      200 {object} gateway.Envelope
// @Failure      400 {object} dto.Response
// @Failure      429 {object} gateway.Envelope
// @Security     BearerAuth
// @Router       /api/v1/integration/marketplaces/{marketplace}/orders [get]
func (h *IntegrationHandler) FetchOrders(c *gin.Context) {
	var query dto.OrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter := integration.OrderFilter{Status: query.Status, Page: query.Page, PageSize: query.PageSize}
	if query.Since != "" {
		since, err := time.Parse(time.RFC3339, query.Since)
		if err != nil {
			h.HandleDomainError(c, shared.NewDomainError("INVALID_INPUT", "since must be an RFC3339 timestamp"))
			return
		}
		filter.Since = since
	}
	h.envelope(c, h.marketplaces.FetchOrders(c.Request.Context(), marketplaceParam(c), filter))
}

// FetchCategories godoc
// @ID           fetchMarketplaceCategories
// @Summary      Fetch marketplace categories
// @Tags         marketplaces
// @Produce      json
// @Param        marketplace path  string true  "Marketplace code"
// @Param        q           query string false "Search text"
// @Success      200 {object} gateway.Envelope
// @Security     BearerAuth
// @Router       /api/v1/integration/marketplaces/{marketplace}/categories [get]
func (h *IntegrationHandler) FetchCategories(c *gin.Context) {
	var query dto.CategoriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.envelope(c, h.marketplaces.FetchCategories(c.Request.Context(), marketplaceParam(c), query.Query))
}

// UpdatePrice godoc
// @ID           pushMarketplacePrice
// @Summary      Push a listing price to a marketplace
// @Tags         marketplaces
// @Accept       json
// @Produce      json
// @Param        marketplace path string                 true "Marketplace code"
// @Param        request     body dto.PriceUpdateRequest true "New price"
// @Success      200 {object} gateway.Envelope
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/marketplaces/{marketplace}/prices [put]
func (h *IntegrationHandler) UpdatePrice(c *gin.Context) {
	var req dto.PriceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		h.HandleDomainError(c, shared.NewDomainError("INVALID_INPUT", "price must be a non-negative decimal"))
		return
	}
	h.envelope(c, h.marketplaces.PushPrice(c.Request.Context(), marketplaceParam(c), req.SKU, price))
}

// UpdateInventory godoc
// @ID           pushMarketplaceInventory
// @Summary      Push listing stock to a marketplace
// @Tags         marketplaces
// @Accept       json
// @Produce      json
// @Param        marketplace path string                     true "Marketplace code"
// @Param        request     body dto.InventoryUpdateRequest true "New stock"
// @Success      200 {object} gateway.Envelope
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/integration/marketplaces/{marketplace}/inventory [put]
func (h *IntegrationHandler) UpdateInventory(c *gin.Context) {
	var req dto.InventoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.envelope(c, h.marketplaces.PushInventory(c.Request.Context(), marketplaceParam(c), req.SKU, *req.Quantity))
}

// envelope writes a gateway envelope as-is with its own status code
func (h *IntegrationHandler) envelope(c *gin.Context, env gateway.Envelope) {
	status := env.StatusCode
	if status == 0 {
		status = env.ErrorKind.HTTPStatus()
	}
	c.JSON(status, env)
}
