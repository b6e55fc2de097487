package deadletter

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
)

func newLetter(eventType string) DeadLetter {
	return DeadLetter{
		WebhookEventID: uuid.New(),
		Marketplace:    "hepsiburada",
		EventType:      eventType,
		RawPayload:     json.RawMessage(`{"eventType":"` + eventType + `"}`),
		Error:          "db down",
		Attempts:       1,
		FailedAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("pops oldest first", func(t *testing.T) {
		q := NewInMemoryQueue()
		require.NoError(t, q.Push(ctx, newLetter("ORDER_CREATED")))
		require.NoError(t, q.Push(ctx, newLetter("ORDER_SHIPPED")))
		require.NoError(t, q.Push(ctx, newLetter("ORDER_DELIVERED")))

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		letters, err := q.Pop(ctx, 2)
		require.NoError(t, err)
		require.Len(t, letters, 2)
		assert.Equal(t, "ORDER_CREATED", letters[0].EventType)
		assert.Equal(t, "ORDER_SHIPPED", letters[1].EventType)

		letters, err = q.Pop(ctx, 10)
		require.NoError(t, err)
		require.Len(t, letters, 1)
		assert.Equal(t, "ORDER_DELIVERED", letters[0].EventType)

		n, _ = q.Len(ctx)
		assert.Zero(t, n)
	})

	t.Run("empty and zero pops", func(t *testing.T) {
		q := NewInMemoryQueue()
		letters, err := q.Pop(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, letters)

		require.NoError(t, q.Push(ctx, newLetter("X")))
		letters, err = q.Pop(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, letters)
	})

	t.Run("concurrent pushes", func(t *testing.T) {
		q := NewInMemoryQueue()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = q.Push(ctx, newLetter("ORDER_CREATED"))
			}()
		}
		wg.Wait()

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(50), n)
	})
}

func TestDeadLetter_JSON(t *testing.T) {
	letter := newLetter("ORDER_CREATED")
	b, err := json.Marshal(letter)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"raw_payload":{"eventType":"ORDER_CREATED"}`)
	assert.Contains(t, string(b), `"webhook_event_id":"`+letter.WebhookEventID.String()+`"`)
}

func TestNewQueue(t *testing.T) {
	t.Run("memory when redis not configured", func(t *testing.T) {
		q, err := NewQueue(config.RedisConfig{}, config.GatewayConfig{DeadLetterKey: DefaultKey})
		require.NoError(t, err)
		assert.IsType(t, &InMemoryQueue{}, q)
	})

	t.Run("falls back when redis unreachable", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		q, err := NewQueue(config.RedisConfig{Host: "127.0.0.1", Port: 1}, config.GatewayConfig{},
			WithLogger(zap.New(core)))

		require.NoError(t, err)
		assert.IsType(t, &InMemoryQueue{}, q)
		assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewQueue(config.RedisConfig{Host: "127.0.0.1", Port: 1}, config.GatewayConfig{},
			WithInMemoryFallback(false))
		assert.Error(t, err)
	})
}
