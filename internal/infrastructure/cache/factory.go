package cache

import (
	"fmt"

	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResponseCacheFactory creates response caches based on configuration
type ResponseCacheFactory struct {
	redisConfig           config.RedisConfig
	gatewayConfig         config.GatewayConfig
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ResponseCacheFactoryOption is a functional option for configuring the factory
type ResponseCacheFactoryOption func(*ResponseCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ResponseCacheFactoryOption {
	return func(f *ResponseCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory cache when Redis is unavailable.
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) ResponseCacheFactoryOption {
	return func(f *ResponseCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithRedisClient reuses an already connected client
func WithRedisClient(client *redis.Client) ResponseCacheFactoryOption {
	return func(f *ResponseCacheFactory) {
		f.client = client
	}
}

// NewResponseCacheFactory creates a new factory
func NewResponseCacheFactory(redisCfg config.RedisConfig, gatewayCfg config.GatewayConfig, opts ...ResponseCacheFactoryOption) *ResponseCacheFactory {
	f := &ResponseCacheFactory{
		redisConfig:           redisCfg,
		gatewayConfig:         gatewayCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed cache
func (f *ResponseCacheFactory) CreateRedisCache() (*RedisResponseCache, error) {
	client := f.client
	if client == nil {
		var err error
		client, err = NewRedisClient(f.redisConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis response cache: %w", err)
		}
	}
	return NewRedisResponseCache(client, f.gatewayConfig.CacheKeyPrefix, f.logger), nil
}

// CreateInMemoryCache creates an in-memory cache local to this process
func (f *ResponseCacheFactory) CreateInMemoryCache() *InMemoryResponseCache {
	return NewInMemoryResponseCache(f.gatewayConfig.SweepInterval)
}

// CreateCache returns the configured backend. With backend "redis" it tries
// Redis first and falls back to memory if allowed.
func (f *ResponseCacheFactory) CreateCache() (ResponseCache, error) {
	if f.gatewayConfig.CacheBackend != "redis" {
		f.logger.Info("using in-memory response cache")
		return f.CreateInMemoryCache(), nil
	}

	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis response cache")
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for response cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory response cache. "+
		"Cached responses will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
