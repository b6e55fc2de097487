package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/cache"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type memoryRecorder struct {
	mu   sync.Mutex
	logs []integration.APIRequestLog
}

func (r *memoryRecorder) RecordAPIRequest(_ context.Context, log *integration.APIRequestLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memoryRecorder) last() integration.APIRequestLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[len(r.logs)-1]
}

func testMarketplaces() map[string]config.MarketplaceConfig {
	return map[string]config.MarketplaceConfig{
		"hepsiburada": {
			Enabled:                 true,
			MaxRequestsPerMinute:    100,
			CircuitBreakerThreshold: 5,
			CircuitBreakerCooldown:  time.Minute,
			CacheTTL:                5 * time.Minute,
			RequestTimeout:          100 * time.Millisecond,
			RateLimitMode:           config.RateLimitModeReject,
		},
	}
}

func newTestGateway(t *testing.T, opts ...Option) (*Gateway, *memoryRecorder) {
	t.Helper()
	c := cache.NewInMemoryResponseCache(time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	rec := &memoryRecorder{}
	opts = append([]Option{WithRecorder(rec)}, opts...)
	return New(testMarketplaces(), c, opts...), rec
}

func TestGateway_CacheHitInvokesOnce(t *testing.T) {
	g, rec := newTestGateway(t)
	ctx := context.Background()

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return []string{"Electronics"}, nil
	}
	req := Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "fetch_categories",
		Params: map[string]string{"q": "el"}, Cacheable: true}

	first := g.Call(ctx, req, fn)
	second := g.Call(ctx, req, fn)

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, first.Success)
	assert.Equal(t, CacheMiss, first.Meta.CacheStatus)
	assert.Equal(t, CacheHit, second.Meta.CacheStatus)

	var categories []string
	require.NoError(t, second.Decode(&categories))
	assert.Equal(t, []string{"Electronics"}, categories)
	assert.True(t, rec.last().CacheHit)
}

func TestGateway_NonCacheableAlwaysCalls(t *testing.T) {
	g, _ := newTestGateway(t)
	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}
	req := Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "push_price"}

	env := g.Call(context.Background(), req, fn)
	g.Call(context.Background(), req, fn)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, CacheMiss, env.Meta.CacheStatus)
}

func TestReject(t *testing.T) {
	env := Reject(integration.MarketplaceHepsiburada, integration.ErrValidation)

	assert.False(t, env.Success)
	assert.Equal(t, integration.ErrorKindValidation, env.ErrorKind)
	assert.Equal(t, CacheMiss, env.Meta.CacheStatus)
}

func TestGateway_BreakerFailsFast(t *testing.T) {
	clock := newFakeClock()
	g, rec := newTestGateway(t, WithClock(clock.Now))
	ctx := context.Background()

	var calls atomic.Int32
	failing := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, fmt.Errorf("%w: HTTP 503 from upstream secret-host", integration.ErrDownstreamUnavailable)
	}
	req := Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "fetch_orders"}

	for i := 0; i < 5; i++ {
		env := g.Call(ctx, req, failing)
		assert.False(t, env.Success)
		assert.Equal(t, 503, env.StatusCode)
		assert.NotContains(t, env.Message, "secret-host")
	}
	assert.Equal(t, int32(5), calls.Load())

	env := g.Call(ctx, req, failing)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, 503, env.StatusCode)
	assert.Equal(t, integration.ErrorKindCircuitOpen, env.ErrorKind)
	assert.True(t, rec.last().CircuitOpen)

	t.Run("single trial after cooldown", func(t *testing.T) {
		clock.Advance(time.Minute)
		release := make(chan struct{})
		started := make(chan struct{})
		slow := func(context.Context) (any, error) {
			close(started)
			<-release
			return "ok", nil
		}

		done := make(chan Envelope)
		go func() { done <- g.Call(ctx, req, slow) }()
		<-started

		concurrent := g.Call(ctx, req, failing)
		assert.Equal(t, integration.ErrorKindCircuitOpen, concurrent.ErrorKind)

		close(release)
		trial := <-done
		assert.True(t, trial.Success)
		assert.Equal(t, BreakerClosed, g.Breakers().Get(integration.MarketplaceHepsiburada, "fetch_orders").State())
	})
}

func TestGateway_RateLimited(t *testing.T) {
	marketplaces := testMarketplaces()
	hb := marketplaces["hepsiburada"]
	hb.MaxRequestsPerMinute = 2
	marketplaces["hepsiburada"] = hb
	g := New(marketplaces, nil)

	ok := func(context.Context) (any, error) { return "ok", nil }
	req := Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "push_inventory"}

	assert.True(t, g.Call(context.Background(), req, ok).Success)
	assert.True(t, g.Call(context.Background(), req, ok).Success)
	env := g.Call(context.Background(), req, ok)
	assert.False(t, env.Success)
	assert.Equal(t, 429, env.StatusCode)
	assert.Equal(t, "Marketplace rate limit exceeded", env.Message)

	assert.Equal(t, 2, g.RateLimiter().Snapshot()[0].Used)
}

func TestGateway_Timeout(t *testing.T) {
	g, _ := newTestGateway(t)
	slow := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	ignoresCtx := func(context.Context) (any, error) {
		time.Sleep(300 * time.Millisecond)
		return "late", nil
	}

	for name, fn := range map[string]CallFunc{"honors ctx": slow, "ignores ctx": ignoresCtx} {
		t.Run(name, func(t *testing.T) {
			env := g.Call(context.Background(), Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "fetch_orders"}, fn)
			assert.False(t, env.Success)
			assert.Equal(t, 504, env.StatusCode)
			assert.Equal(t, integration.ErrorKindTimeout, env.ErrorKind)
		})
	}
}

func TestGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"auth", fmt.Errorf("%w: 401", integration.ErrRemoteAuthFailed), 401},
		{"validation", fmt.Errorf("%w: bad sku", integration.ErrValidation), 400},
		{"request failed", fmt.Errorf("%w: 404", integration.ErrRequestFailed), 502},
		{"remote rate limit", fmt.Errorf("%w: 429", integration.ErrRateLimited), 429},
		{"unexpected", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGateway(t)
			env := g.Call(context.Background(), Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "x"},
				func(context.Context) (any, error) { return nil, tt.err })
			assert.Equal(t, tt.status, env.StatusCode)
			assert.Nil(t, env.Data)
		})
	}
}

func TestGateway_PanicIsFailure(t *testing.T) {
	g, _ := newTestGateway(t)
	env := g.Call(context.Background(), Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "x"},
		func(context.Context) (any, error) { panic("adapter bug") })
	assert.False(t, env.Success)
	assert.Equal(t, 500, env.StatusCode)
}

func TestGateway_EnvelopeJSON(t *testing.T) {
	g, _ := newTestGateway(t)
	env := g.Call(context.Background(), Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "test_connection"},
		func(context.Context) (any, error) { return map[string]any{"ok": true}, nil })

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"success", "status_code", "message", "data", "timestamp", "marketplace", "meta"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "ErrorKind")
	_, err = time.Parse(time.RFC3339, decoded["timestamp"].(string))
	assert.NoError(t, err)
	meta := decoded["meta"].(map[string]any)
	assert.Contains(t, meta, "processing_time_ms")
	assert.Equal(t, "miss", meta["cache_status"])
}

func TestGateway_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	g, _ := newTestGateway(t, WithTracer(tp.Tracer("test")))

	g.Call(context.Background(), Request{Marketplace: integration.MarketplaceHepsiburada, Endpoint: "fetch_orders"},
		func(context.Context) (any, error) { return nil, nil })

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "gateway.call", spans[0].Name())
}
