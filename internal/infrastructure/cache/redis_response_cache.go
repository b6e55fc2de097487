package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "mpgw:cache:"

// NewRedisClient connects to Redis and verifies the connection with PING
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("redis host not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisResponseCache implements ResponseCache with Redis SET ... EX.
// Entries are shared by every gateway instance using the same Redis.
type RedisResponseCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisResponseCache creates a cache on an existing client
func NewRedisResponseCache(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisResponseCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisResponseCache{client: client, keyPrefix: keyPrefix, logger: logger}
}

// Get returns the stored value; Redis errors are logged and reported as misses
func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return value, true
}

// Set stores value with an expiry of ttl
func (c *RedisResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache response: %w", err)
	}
	return nil
}

// Delete removes a key
func (c *RedisResponseCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}

// Close is a no-op; the client is owned by whoever created it
func (c *RedisResponseCache) Close() error {
	return nil
}

// Client returns the underlying Redis client
func (c *RedisResponseCache) Client() *redis.Client {
	return c.client
}

var _ ResponseCache = (*RedisResponseCache)(nil)
