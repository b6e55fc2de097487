package deadletter

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/infrastructure/cache"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
)

// FactoryOption configures NewQueue
type FactoryOption func(*factory)

type factory struct {
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) {
		f.logger = logger
	}
}

// WithRedisClient reuses an already connected client
func WithRedisClient(client *redis.Client) FactoryOption {
	return func(f *factory) {
		f.client = client
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewQueue returns a Redis queue when Redis is configured and reachable,
// otherwise an in-memory queue.
func NewQueue(redisCfg config.RedisConfig, gatewayCfg config.GatewayConfig, opts ...FactoryOption) (Queue, error) {
	f := &factory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	client := f.client
	if client == nil {
		if redisCfg.Host == "" {
			f.logger.Info("using in-memory dead-letter queue")
			return NewInMemoryQueue(), nil
		}
		var err error
		client, err = cache.NewRedisClient(redisCfg)
		if err != nil {
			if !f.allowInMemoryFallback {
				return nil, fmt.Errorf("redis required for dead-letter queue but unavailable: %w", err)
			}
			f.logger.Warn("Redis unavailable, falling back to in-memory dead-letter queue. "+
				"Failed events will be lost on restart.",
				zap.Error(err),
			)
			return NewInMemoryQueue(), nil
		}
	}

	f.logger.Info("using Redis dead-letter queue", zap.String("key", gatewayCfg.DeadLetterKey))
	return NewRedisQueue(client, gatewayCfg.DeadLetterKey, f.logger), nil
}
