package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Reject(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(map[integration.MarketplaceCode]RateLimitPolicy{
		integration.MarketplaceHepsiburada: {Limit: 3, Window: time.Minute},
	})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx, integration.MarketplaceHepsiburada))
	}
	err := l.Acquire(ctx, integration.MarketplaceHepsiburada)
	assert.ErrorIs(t, err, integration.ErrRateLimited)

	t.Run("other marketplaces are independent", func(t *testing.T) {
		assert.NoError(t, l.Acquire(ctx, integration.MarketplaceTrendyol))
	})

	t.Run("window resets", func(t *testing.T) {
		now = now.Add(time.Minute)
		assert.NoError(t, l.Acquire(ctx, integration.MarketplaceHepsiburada))
	})

	t.Run("snapshot", func(t *testing.T) {
		buckets := l.Snapshot()
		require.Len(t, buckets, 2)
		assert.Equal(t, integration.MarketplaceHepsiburada, buckets[0].Marketplace)
		assert.Equal(t, 1, buckets[0].Used)
		assert.Equal(t, 3, buckets[0].Limit)
		assert.Equal(t, integration.MarketplaceTrendyol, buckets[1].Marketplace)
		assert.Equal(t, DefaultRateLimitPolicy.Limit, buckets[1].Limit)
	})
}

func TestRateLimiter_ConcurrentLimitPlusOne(t *testing.T) {
	l := NewRateLimiter(map[integration.MarketplaceCode]RateLimitPolicy{
		integration.MarketplaceN11: {Limit: 50},
	})

	var allowed, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 51; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background(), integration.MarketplaceN11); err != nil {
				rejected.Add(1)
				return
			}
			allowed.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), allowed.Load())
	assert.Equal(t, int32(1), rejected.Load())
}

func TestRateLimiter_Block(t *testing.T) {
	l := NewRateLimiter(map[integration.MarketplaceCode]RateLimitPolicy{
		integration.MarketplaceAmazon: {Limit: 1, Window: 50 * time.Millisecond, Mode: config.RateLimitModeBlock},
	})

	t.Run("waits for the next window", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, l.Acquire(ctx, integration.MarketplaceAmazon))

		start := time.Now()
		require.NoError(t, l.Acquire(ctx, integration.MarketplaceAmazon))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = l.Acquire(context.Background(), integration.MarketplaceAmazon)

		err := l.Acquire(ctx, integration.MarketplaceAmazon)
		assert.ErrorIs(t, err, integration.ErrRateLimited)
	})
}
