package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestKey(t *testing.T) {
	t.Run("independent of param order", func(t *testing.T) {
		a := Key("hepsiburada", "fetch_orders", map[string]string{"limit": "50", "status": "new"})
		b := Key("hepsiburada", "fetch_orders", map[string]string{"status": "new", "limit": "50"})
		assert.Equal(t, a, b)
		assert.Contains(t, a, "hepsiburada:fetch_orders:")
	})

	t.Run("differs by params and endpoint", func(t *testing.T) {
		a := Key("hepsiburada", "fetch_orders", map[string]string{"limit": "50"})
		assert.NotEqual(t, a, Key("hepsiburada", "fetch_orders", map[string]string{"limit": "51"}))
		assert.NotEqual(t, a, Key("hepsiburada", "fetch_categories", map[string]string{"limit": "50"}))
		assert.NotEqual(t, a, Key("trendyol", "fetch_orders", map[string]string{"limit": "50"}))
	})

	t.Run("nil params", func(t *testing.T) {
		assert.Equal(t, Key("n11", "x", nil), Key("n11", "x", map[string]string{}))
	})
}

func TestInMemoryResponseCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryResponseCache(time.Hour)
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	t.Run("hit within ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))
		v, ok := c.Get(ctx, "k1")
		assert.True(t, ok)
		assert.Equal(t, []byte("v1"), v)
	})

	t.Run("miss after ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k2", []byte("v2"), time.Minute))
		now = now.Add(time.Minute)
		_, ok := c.Get(ctx, "k2")
		assert.False(t, ok)
	})

	t.Run("sweep removes expired", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k3", []byte("v3"), time.Hour))
		c.sweep()
		assert.Equal(t, 1, c.Size())
	})

	t.Run("stored value is a copy", func(t *testing.T) {
		buf := []byte("abc")
		require.NoError(t, c.Set(ctx, "k4", buf, time.Minute))
		buf[0] = 'x'
		v, _ := c.Get(ctx, "k4")
		assert.Equal(t, "abc", string(v))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "k4"))
		_, ok := c.Get(ctx, "k4")
		assert.False(t, ok)
	})

	t.Run("zero ttl is not stored", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k5", []byte("v"), 0))
		_, ok := c.Get(ctx, "k5")
		assert.False(t, ok)
	})

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestResponseCacheFactory_CreateCache(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		f := NewResponseCacheFactory(config.RedisConfig{}, config.GatewayConfig{CacheBackend: "memory"})
		c, err := f.CreateCache()
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemoryResponseCache{}, c)
	})

	t.Run("falls back to memory when redis is unavailable", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := NewResponseCacheFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1},
			config.GatewayConfig{CacheBackend: "redis"}, WithLogger(zap.New(core)))

		c, err := f.CreateCache()
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemoryResponseCache{}, c)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("fails without fallback", func(t *testing.T) {
		f := NewResponseCacheFactory(config.RedisConfig{}, config.GatewayConfig{CacheBackend: "redis"},
			WithInMemoryFallback(false))
		_, err := f.CreateCache()
		assert.Error(t, err)
	})
}
