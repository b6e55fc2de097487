package router

import (
	"errors"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/infrastructure/auth"
	"github.com/erp/marketplace-gateway/internal/infrastructure/logger"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/handler"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/middleware"
)

// DefaultWebhookBodyLimit caps inbound webhook payloads
const DefaultWebhookBodyLimit int64 = 64 * 1024

// EngineConfig configures the HTTP engine
type EngineConfig struct {
	ServiceName    string
	Logger         *zap.Logger
	Meter          metric.Meter
	TracingOptions []otelgin.Option
	Security       middleware.SecurityConfig
	TrustedProxies []string

	// WebhookBodyLimit defaults to DefaultWebhookBodyLimit
	WebhookBodyLimit int64
	// WebhookLimiter throttles deliveries per marketplace; nil disables it
	WebhookLimiter *middleware.RateLimiter
	// AdminLimiter throttles admin calls per client IP; nil disables it
	AdminLimiter   *middleware.RateLimiter
	TokenValidator middleware.TokenValidator
	// Swagger controls the API documentation under /swagger
	Swagger middleware.SwaggerConfig
}

// Handlers are the HTTP handlers served by the engine
type Handlers struct {
	Health      *handler.HealthHandler
	Webhook     *handler.WebhookHandler
	Integration *handler.IntegrationHandler
}

// NewEngine builds the gin engine with global middleware and all routes.
// Middleware order: request id, recovery, request logging, tracing, metrics,
// security headers.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	if cfg.TokenValidator == nil {
		return nil, errors.New("router: token validator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.WebhookBodyLimit <= 0 {
		cfg.WebhookBodyLimit = DefaultWebhookBodyLimit
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(middleware.RequestID(), logger.Recovery(cfg.Logger), logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingOptions...)...)
	engine.Use(middleware.SpanErrorMarker(), middleware.HTTPMetrics(cfg.Meter), middleware.SecureWithConfig(cfg.Security))

	engine.GET("/health", h.Health.Health)

	webhook := []gin.HandlerFunc{middleware.BodyLimit(cfg.WebhookBodyLimit)}
	if cfg.WebhookLimiter != nil {
		webhook = append(webhook, middleware.WebhookRateLimit(cfg.WebhookLimiter))
	}
	engine.POST("/webhook/:marketplace", append(webhook, h.Webhook.Receive)...)

	jwt := middleware.JWTAuth(middleware.JWTMiddlewareConfig{Validator: cfg.TokenValidator, Logger: cfg.Logger})
	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.Swagger, jwt), ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := IntegrationRoutes(h.Integration)
	admin.Use(jwt)
	if cfg.AdminLimiter != nil {
		admin.Use(middleware.RateLimit(cfg.AdminLimiter))
	}
	NewRouter(engine).Register(admin).Setup()

	return engine, nil
}

// IntegrationRoutes returns the admin API group. Reads need the read scope;
// replays and pushes to marketplaces need the write scope.
func IntegrationRoutes(h *handler.IntegrationHandler) *DomainGroup {
	read := middleware.RequireScope(auth.ScopeRead)
	write := middleware.RequireScope(auth.ScopeWrite)

	g := NewDomainGroup("integration", "/integration")
	g.GET("/webhooks/logs", read, h.ListWebhookLogs)
	g.GET("/webhooks/stats", read, h.WebhookStats)
	g.GET("/notifications", read, h.ListNotifications)
	g.GET("/api-requests", read, h.ListAPIRequests)
	g.GET("/gateway/breakers", read, h.CircuitBreakers)
	g.GET("/gateway/rate-limits", read, h.RateLimits)
	g.GET("/dead-letters", read, h.PendingDeadLetters)
	g.POST("/dead-letters/replay", write, h.ReplayDeadLetters)

	mp := g.Group("marketplaces", "/marketplaces/:marketplace")
	mp.GET("/connection", read, h.TestConnection)
	mp.GET("/orders", read, h.FetchOrders)
	mp.GET("/categories", read, h.FetchCategories)
	mp.PUT("/prices", write, h.UpdatePrice)
	mp.PUT("/inventory", write, h.UpdateInventory)
	return g
}
