package gateway

import (
	"testing"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	clock := newFakeClock()
	b := NewCircuitBreaker(BreakerSettings{Threshold: 3, Cooldown: time.Minute}, clock.Now)

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure()
	}
	assert.Equal(t, BreakerClosed, b.State())

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())

	t.Run("fails fast during cooldown", func(t *testing.T) {
		clock.Advance(59 * time.Second)
		assert.ErrorIs(t, b.Allow(), integration.ErrCircuitOpen)
	})

	t.Run("single trial after cooldown", func(t *testing.T) {
		clock.Advance(time.Second)
		require.NoError(t, b.Allow())
		assert.Equal(t, BreakerHalfOpen, b.State())
		assert.ErrorIs(t, b.Allow(), integration.ErrCircuitOpen)
	})

	t.Run("failed trial reopens", func(t *testing.T) {
		b.RecordFailure()
		assert.Equal(t, BreakerOpen, b.State())
		assert.ErrorIs(t, b.Allow(), integration.ErrCircuitOpen)
	})

	t.Run("successful trial closes", func(t *testing.T) {
		clock.Advance(time.Minute)
		require.NoError(t, b.Allow())
		b.RecordSuccess()
		assert.Equal(t, BreakerClosed, b.State())
		assert.NoError(t, b.Allow())
	})
}

func TestCircuitBreaker_ReleaseFreesTrial(t *testing.T) {
	clock := newFakeClock()
	b := NewCircuitBreaker(BreakerSettings{Threshold: 1, Cooldown: time.Second}, clock.Now)
	b.RecordFailure()
	clock.Advance(time.Second)

	require.NoError(t, b.Allow())
	b.Release()
	assert.NoError(t, b.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewCircuitBreaker(BreakerSettings{Threshold: 2, Cooldown: time.Second}, nil)
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerRegistry(t *testing.T) {
	clock := newFakeClock()
	r := NewBreakerRegistry(map[integration.MarketplaceCode]BreakerSettings{
		integration.MarketplaceHepsiburada: {Threshold: 1, Cooldown: time.Minute},
	}, clock.Now)

	hb := r.Get(integration.MarketplaceHepsiburada, "fetch_orders")
	assert.Same(t, hb, r.Get(integration.MarketplaceHepsiburada, "fetch_orders"))
	assert.NotSame(t, hb, r.Get(integration.MarketplaceHepsiburada, "push_price"))

	hb.RecordFailure()
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "fetch_orders", snap[0].Endpoint)
	assert.Equal(t, BreakerOpen, snap[0].State)
	require.NotNil(t, snap[0].RetryAt)
	assert.Equal(t, clock.Now().Add(time.Minute), *snap[0].RetryAt)
	assert.Equal(t, BreakerClosed, snap[1].State)
	assert.Nil(t, snap[1].OpenedAt)

	ty := r.Get(integration.MarketplaceTrendyol, "fetch_orders")
	assert.Equal(t, DefaultBreakerSettings.Threshold, ty.settings.Threshold)
}
