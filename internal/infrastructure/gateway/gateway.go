package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/cache"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds every outbound call unless configured otherwise
const DefaultRequestTimeout = 15 * time.Second

// Request describes one outbound call
type Request struct {
	Marketplace integration.MarketplaceCode
	Endpoint    string
	Params      map[string]string
	Cacheable   bool
}

// CallFunc performs the real marketplace call. It must honor ctx.
type CallFunc func(ctx context.Context) (any, error)

// RequestRecorder persists one APIRequestLog per call
type RequestRecorder interface {
	RecordAPIRequest(ctx context.Context, log *integration.APIRequestLog) error
}

type marketplacePolicy struct {
	timeout  time.Duration
	cacheTTL time.Duration
}

// Gateway runs outbound calls through cache, breaker, limiter and timeout.
// Construct one per process.
type Gateway struct {
	cache    cache.ResponseCache
	breakers *BreakerRegistry
	limiter  *RateLimiter
	policies map[integration.MarketplaceCode]marketplacePolicy
	metrics  *telemetry.IntegrationMetrics
	recorder RequestRecorder
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Gateway
type Option func(*Gateway)

// WithMetrics records OpenTelemetry metrics for every call
func WithMetrics(m *telemetry.IntegrationMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithRecorder persists an APIRequestLog for every call
func WithRecorder(r RequestRecorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// WithClock overrides time.Now for the limiter, breakers and envelopes
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New builds a gateway from the marketplace configuration
func New(marketplaces map[string]config.MarketplaceConfig, responseCache cache.ResponseCache, opts ...Option) *Gateway {
	g := &Gateway{
		cache:    responseCache,
		policies: make(map[integration.MarketplaceCode]marketplacePolicy, len(marketplaces)),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("marketplace-gateway/gateway"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	limits := make(map[integration.MarketplaceCode]RateLimitPolicy, len(marketplaces))
	breakers := make(map[integration.MarketplaceCode]BreakerSettings, len(marketplaces))
	for key, mc := range marketplaces {
		code := integration.ParseMarketplaceCode(key)
		limits[code] = RateLimitPolicy{Limit: mc.MaxRequestsPerMinute, Window: time.Minute, Mode: mc.RateLimitMode}
		breakers[code] = BreakerSettings{Threshold: mc.CircuitBreakerThreshold, Cooldown: mc.CircuitBreakerCooldown}
		g.policies[code] = marketplacePolicy{timeout: mc.RequestTimeout, cacheTTL: mc.CacheTTL}
	}
	g.limiter = NewRateLimiter(limits)
	g.limiter.now = g.now
	g.breakers = NewBreakerRegistry(breakers, g.now)
	return g
}

// Breakers exposes breaker state for monitoring
func (g *Gateway) Breakers() *BreakerRegistry {
	return g.breakers
}

// RateLimiter exposes limiter state for monitoring
func (g *Gateway) RateLimiter() *RateLimiter {
	return g.limiter
}

func (g *Gateway) policy(marketplace integration.MarketplaceCode) marketplacePolicy {
	p := g.policies[marketplace]
	if p.timeout <= 0 {
		p.timeout = DefaultRequestTimeout
	}
	return p
}

// Call executes fn for req and wraps the outcome in an Envelope
func (g *Gateway) Call(ctx context.Context, req Request, fn CallFunc) Envelope {
	start := g.now()
	ctx, span := g.tracer.Start(ctx, "gateway.call", trace.WithAttributes(
		attribute.String("marketplace", req.Marketplace.String()),
		attribute.String("endpoint", req.Endpoint),
	))
	defer span.End()

	env := newEnvelope(req.Marketplace, start)
	record := &integration.APIRequestLog{
		ID:          uuid.New(),
		Marketplace: req.Marketplace,
		Endpoint:    req.Endpoint,
		Params:      req.Params,
		CreatedAt:   start.UTC(),
	}
	policy := g.policy(req.Marketplace)
	log := g.logger.With(
		zap.String("marketplace", req.Marketplace.String()),
		zap.String("endpoint", req.Endpoint),
	)

	finish := func(status CacheStatus) Envelope {
		elapsed := g.now().Sub(start)
		env.Meta = Meta{ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000, CacheStatus: status}
		record.Success = env.Success
		record.StatusCode = env.StatusCode
		record.DurationMs = env.Meta.ProcessingTimeMs
		record.CacheHit = status == CacheHit
		record.ErrorKind = env.ErrorKind

		outcome := "success"
		if !env.Success {
			outcome = env.ErrorKind.String()
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(
			attribute.Int("status_code", env.StatusCode),
			attribute.String("cache_status", string(status)),
			attribute.Bool("cacheable", req.Cacheable),
		)
		g.metrics.RecordGatewayCall(ctx, req.Marketplace.String(), req.Endpoint, outcome, elapsed)
		g.recordRequest(ctx, record, log)
		return env
	}

	// 1. Cache
	var cacheKey string
	if req.Cacheable && g.cache != nil && policy.cacheTTL > 0 {
		cacheKey = cache.Key(req.Marketplace.String(), req.Endpoint, req.Params)
		if raw, ok := g.cache.Get(ctx, cacheKey); ok {
			g.metrics.RecordCacheHit(ctx, req.Marketplace.String(), req.Endpoint)
			env.succeed(json.RawMessage(raw))
			return finish(CacheHit)
		}
	}

	// 2. Circuit breaker
	breaker := g.breakers.Get(req.Marketplace, req.Endpoint)
	if err := breaker.Allow(); err != nil {
		record.CircuitOpen = true
		g.metrics.RecordCircuitOpen(ctx, req.Marketplace.String(), req.Endpoint)
		log.Warn("circuit open, failing fast")
		env.fail(integration.KindOf(err))
		return finish(CacheMiss)
	}

	// 3. Rate limiter
	if err := g.limiter.Acquire(ctx, req.Marketplace); err != nil {
		breaker.Release()
		record.RateLimited = true
		g.metrics.RecordRateLimited(ctx, req.Marketplace.String(), req.Endpoint)
		log.Warn("rate limit exceeded", zap.Error(err))
		env.fail(integration.ErrorKindRateLimited)
		return finish(CacheMiss)
	}

	// 4. Call with timeout
	data, err := g.invoke(ctx, policy.timeout, fn)
	if err != nil {
		kind := integration.KindOf(err)
		if countsAsFailure(kind) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
		span.RecordError(err)
		log.Error("marketplace call failed", zap.String("error_kind", kind.String()), zap.Error(err))
		env.fail(kind)
		return finish(CacheMiss)
	}

	// 5. Success
	breaker.RecordSuccess()
	if cacheKey != "" {
		if raw, err := json.Marshal(data); err != nil {
			log.Warn("response not cacheable", zap.Error(err))
		} else if err := g.cache.Set(ctx, cacheKey, raw, policy.cacheTTL); err != nil {
			log.Warn("failed to cache response", zap.Error(err))
		}
	}
	env.succeed(data)
	return finish(CacheMiss)
}

// invoke runs fn under a timeout. A fn that ignores ctx is abandoned when the
// deadline passes.
func (g *Gateway) invoke(ctx context.Context, timeout time.Duration, fn CallFunc) (data any, err error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data any
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("marketplace call panicked: %v", r)}
			}
		}()
		d, e := fn(callCtx)
		done <- result{data: d, err: e}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && !errors.Is(r.err, integration.ErrTimeout) {
			r.err = fmt.Errorf("%w: %w", integration.ErrTimeout, r.err)
		}
		return r.data, r.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", integration.ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("%w: %w", integration.ErrDownstreamUnavailable, callCtx.Err())
	}
}

// countsAsFailure reports whether an error kind trips the breaker.
// Validation and configuration errors do not.
func countsAsFailure(kind integration.ErrorKind) bool {
	switch kind {
	case integration.ErrorKindValidation, integration.ErrorKindNotConfigured:
		return false
	default:
		return true
	}
}

func (g *Gateway) recordRequest(ctx context.Context, record *integration.APIRequestLog, log *zap.Logger) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.RecordAPIRequest(context.WithoutCancel(ctx), record); err != nil {
		log.Warn("failed to record api request", zap.Int("status_code", record.StatusCode), zap.Error(err))
	}
}
