package integration_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/webhook"
)

const orderCreatedHB1001 = `{"eventType":"ORDER_CREATED","data":{"orderNumber":"HB-1001","items":[{"sku":"A1","qty":2}]}}`

func TestWebhookPipeline_OrderCreatedScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.stock.Adjust(ctx, "A1", 10)
	require.NoError(t, err)

	result := f.deliver(t, orderCreatedHB1001)

	assert.Equal(t, integration.ProcessingStatusApplied, result.Status)
	assert.Equal(t, integration.LogOutcomeApplied, result.Outcome)

	order, err := f.orders.FindByExternalID(ctx, integration.MarketplaceHepsiburada, "HB-1001")
	require.NoError(t, err)
	assert.Equal(t, integration.OrderStatusReceived, order.Status)
	assert.Equal(t, 1, order.Version)

	level, err := f.stock.FindBySKU(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 8, level.Quantity)

	notifications := f.allNotifications(t)
	require.Len(t, notifications, 1)
	assert.Equal(t, integration.NotificationSuccess, notifications[0].Level)
	assert.Equal(t, "Hepsiburada ORDER_CREATED", notifications[0].Title)

	logs := f.allLogs(t)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].WebhookEventID)
	assert.Equal(t, result.WebhookEventID, *logs[0].WebhookEventID)

	event, err := f.events.FindByID(ctx, result.WebhookEventID)
	require.NoError(t, err)
	assert.Equal(t, integration.ProcessingStatusApplied, event.Status)
	assert.NotNil(t, event.ProcessedAt)
}

func TestWebhookPipeline_LowStockFoldsIntoSingleNotification(t *testing.T) {
	f := newFixture(t)

	result := f.deliver(t, orderCreatedHB1001)
	assert.Equal(t, integration.LogOutcomeApplied, result.Outcome)

	notifications := f.allNotifications(t)
	require.Len(t, notifications, 1)
	assert.Equal(t, integration.NotificationWarning, notifications[0].Level)
	assert.Equal(t, "Hepsiburada ORDER_CREATED", notifications[0].Title)
	assert.Contains(t, notifications[0].Message, "order HB-1001 created")
	assert.Contains(t, notifications[0].Message, "SKU A1 has -2 left")
	require.NotNil(t, notifications[0].WebhookEventID)
	assert.Equal(t, result.WebhookEventID, *notifications[0].WebhookEventID)
}

func TestWebhookPipeline_RedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.stock.Adjust(ctx, "A1", 10)
	require.NoError(t, err)

	first := f.deliver(t, orderCreatedHB1001)
	second := f.deliver(t, orderCreatedHB1001)

	assert.Equal(t, integration.LogOutcomeApplied, first.Outcome)
	assert.Equal(t, integration.LogOutcomeNoop, second.Outcome)
	assert.Equal(t, integration.ProcessingStatusApplied, second.Status)
	assert.NotEqual(t, first.WebhookEventID, second.WebhookEventID)

	level, err := f.stock.FindBySKU(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 8, level.Quantity, "stock is decremented once")

	orders, err := f.orders.List(ctx, integration.MarketplaceHepsiburada, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	assert.Len(t, f.allLogs(t), 2)

	firstEvent, err := f.events.FindByID(ctx, first.WebhookEventID)
	require.NoError(t, err)
	count, err := f.events.CountByEventKey(ctx, integration.MarketplaceHepsiburada, firstEvent.EventKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestWebhookPipeline_ConcurrentRedeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.stock.Adjust(ctx, "A1", 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var applied int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.pipeline.Handle(ctx, "hepsiburada", []byte(orderCreatedHB1001), signedHeaders(orderCreatedHB1001))
			if err == nil && result.Outcome == integration.LogOutcomeApplied {
				atomic.AddInt32(&applied, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), applied)
	level, err := f.stock.FindBySKU(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 98, level.Quantity)
	assert.Len(t, f.allLogs(t), 8)
}

func TestWebhookPipeline_RejectsInvalidSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		headers http.Header
	}{
		{"missing header", http.Header{}},
		{"wrong secret", func() http.Header {
			h := http.Header{}
			h.Set("X-Hepsiburada-Signature", "sha256=00ff")
			return h
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pipeline.Handle(ctx, "hepsiburada", []byte(orderCreatedHB1001), tt.headers)
			assert.ErrorIs(t, err, integration.ErrAuthentication)
		})
	}

	_, err := f.orders.FindByExternalID(ctx, integration.MarketplaceHepsiburada, "HB-1001")
	assert.ErrorIs(t, err, integration.ErrRecordNotFound)
	assert.Empty(t, f.allNotifications(t))

	logs := f.allLogs(t)
	require.Len(t, logs, 2)
	assert.Equal(t, integration.LogOutcomeRejected, logs[0].Outcome)
	assert.Nil(t, logs[0].WebhookEventID)
}

func TestWebhookPipeline_MarketplaceChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Handle(ctx, "n11", []byte(orderCreatedHB1001), http.Header{})
	assert.ErrorIs(t, err, integration.ErrMarketplaceNotConfigured)

	_, err = f.pipeline.Handle(ctx, "trendyol", []byte(orderCreatedHB1001), http.Header{})
	assert.ErrorIs(t, err, integration.ErrMarketplaceDisabled)

	result, err := f.pipeline.Handle(ctx, "HepsiBurada", []byte(orderCreatedHB1001), signedHeaders(orderCreatedHB1001))
	require.NoError(t, err)
	assert.Equal(t, integration.MarketplaceHepsiburada, result.Marketplace)
}

func TestWebhookPipeline_MalformedPayload(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{"eventType":`, `{"data":{}}`, `{"eventType":"ORDER_CREATED","data":"x"}`} {
		_, err := f.pipeline.Handle(context.Background(), "hepsiburada", []byte(body), signedHeaders(body))
		assert.ErrorIs(t, err, integration.ErrValidation, body)
	}
	assert.Len(t, f.allLogs(t), 3)
	assert.Empty(t, f.allNotifications(t))
}

func TestWebhookPipeline_UnknownEventTypeIsAcknowledged(t *testing.T) {
	f := newFixture(t)

	result := f.deliver(t, `{"eventType":"SELLER_RATED","data":{}}`)

	assert.Equal(t, integration.ProcessingStatusRejected, result.Status)
	assert.Equal(t, "unknown event type", result.Message)
	notifications := f.allNotifications(t)
	require.Len(t, notifications, 1)
	assert.Equal(t, integration.NotificationWarning, notifications[0].Level)
	assert.Zero(t, f.dlqLen(t))
}

func TestWebhookPipeline_OrderLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.deliver(t, orderCreatedHB1001)
	shipped := f.deliver(t, `{"eventType":"order.shipped","webhookId":"wh-2","data":{"orderNumber":"HB-1001"}}`)
	assert.Equal(t, integration.LogOutcomeApplied, shipped.Outcome)

	regress := f.deliver(t, `{"eventType":"ORDER_UPDATED","webhookId":"wh-3","data":{"orderNumber":"HB-1001","status":"Received"}}`)
	assert.Equal(t, integration.ProcessingStatusRejected, regress.Status)
	assert.Equal(t, integration.LogOutcomeConflict, regress.Outcome)

	delivered := f.deliver(t, `{"eventType":"ORDER_DELIVERED","webhookId":"wh-4","data":{"orderNumber":"HB-1001"}}`)
	assert.Equal(t, integration.LogOutcomeApplied, delivered.Outcome)

	order, err := f.orders.FindByExternalID(ctx, integration.MarketplaceHepsiburada, "HB-1001")
	require.NoError(t, err)
	assert.Equal(t, integration.OrderStatusDelivered, order.Status)
	assert.Equal(t, 3, order.Version)
	assert.Equal(t, "wh-4", order.LastAppliedEventID)
	assert.Zero(t, f.dlqLen(t), "conflicts are not dead-lettered")
}

func TestWebhookPipeline_StatusForMissingOrderIsConflict(t *testing.T) {
	f := newFixture(t)

	result := f.deliver(t, `{"eventType":"ORDER_CANCELLED","data":{"orderNumber":"HB-404"}}`)

	assert.Equal(t, integration.ProcessingStatusRejected, result.Status)
	assert.Equal(t, integration.LogOutcomeConflict, result.Outcome)
	assert.Contains(t, result.Message, "order not found")
}

func TestWebhookPipeline_OutOfOrderInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newer := f.deliver(t, `{"eventType":"INVENTORY_UPDATED","webhookId":"inv-2","data":{"sku":"A1","stock":7,"timestamp":"2026-03-01T10:05:00Z"}}`)
	older := f.deliver(t, `{"eventType":"product.stock_changed","webhookId":"inv-1","data":{"sku":"A1","stock":3,"timestamp":"2026-03-01T10:00:00Z"}}`)

	assert.Equal(t, integration.LogOutcomeApplied, newer.Outcome)
	assert.Equal(t, integration.LogOutcomeNoop, older.Outcome)

	record, err := f.products.FindBySKU(ctx, integration.MarketplaceHepsiburada, "A1")
	require.NoError(t, err)
	assert.Equal(t, 7, record.LastSyncedStock)
	assert.Equal(t, "inv-2", record.LastAppliedEventID)
}

func TestWebhookPipeline_PriceAndModeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.deliver(t, `{"eventType":"PRICE_UPDATED","webhookId":"p-1","data":{"merchantSku":"A1","newPrice":"249.90","timestamp":1767225600}}`)
	f.deliver(t, `{"eventType":"PRODUCT_REJECTED","webhookId":"m-1","data":{"merchantSku":"A1","rejectionReason":"missing images"}}`)

	record, err := f.products.FindBySKU(ctx, integration.MarketplaceHepsiburada, "A1")
	require.NoError(t, err)
	assert.Equal(t, "249.9", record.LastSyncedPrice.String())
	assert.Equal(t, integration.ApprovalStatusRejected, record.ApprovalStatus)
	assert.Equal(t, "missing images", record.RejectionReason)

	invalid := f.deliver(t, `{"eventType":"INVENTORY_UPDATED","data":{"sku":"A1","stock":-1}}`)
	assert.Equal(t, integration.ProcessingStatusRejected, invalid.Status)
	assert.Equal(t, integration.LogOutcomeRejected, invalid.Outcome)
}

// flakyHandler fails until healthy is set
type flakyHandler struct {
	healthy atomic.Bool
	calls   atomic.Int32
}

func (h *flakyHandler) Handle(context.Context, *integration.WebhookEvent, appintegration.EventData) (appintegration.ApplyOutcome, error) {
	h.calls.Add(1)
	if !h.healthy.Load() {
		return appintegration.ApplyOutcome{}, errors.New("ledger unavailable")
	}
	return appintegration.ApplyOutcome{Kind: appintegration.OutcomeApplied, Message: "payment booked"}, nil
}

func TestWebhookPipeline_FailedEventIsReplayed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	handler := &flakyHandler{}
	f.router.Register(integration.MarketplaceHepsiburada, integration.EventPaymentReceived, handler)

	body := `{"eventType":"PAYMENT_RECEIVED","webhookId":"pay-1","data":{"orderNumber":"HB-1001","amount":"10"}}`
	failed := f.deliver(t, body)
	assert.Equal(t, integration.ProcessingStatusFailed, failed.Status)
	assert.Equal(t, 1, f.dlqLen(t))

	handler.healthy.Store(true)
	report, err := f.replay.Replay(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, appintegration.ReplayReport{Popped: 1, Applied: 1}, report)
	assert.Zero(t, f.dlqLen(t))

	count, err := f.events.CountByEventKey(ctx, integration.MarketplaceHepsiburada, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "replay creates a new webhook event")

	original, err := f.events.FindByID(ctx, failed.WebhookEventID)
	require.NoError(t, err)
	assert.Equal(t, integration.ProcessingStatusFailed, original.Status, "history is not revised")

	levels := map[integration.NotificationLevel]int{}
	for _, n := range f.allNotifications(t) {
		levels[n.Level]++
	}
	assert.Equal(t, map[integration.NotificationLevel]int{integration.NotificationError: 1, integration.NotificationSuccess: 1}, levels)
}

func TestWebhookPipeline_RetryBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	handler := &flakyHandler{}
	f.router.Register(integration.MarketplaceHepsiburada, integration.EventRefundProcessed, handler)

	f.deliver(t, `{"eventType":"REFUND_PROCESSED","webhookId":"ref-1","data":{}}`)
	for i := 0; i < 3; i++ {
		_, err := f.replay.Replay(ctx, 10)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(appintegration.DefaultMaxRetryAttempts), handler.calls.Load())
	assert.Zero(t, f.dlqLen(t))
	count, err := f.events.CountByEventKey(ctx, integration.MarketplaceHepsiburada, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, int64(appintegration.DefaultMaxRetryAttempts), count)
}

// downScope fails every transaction
type downScope struct{}

func (downScope) Execute(context.Context, func(appintegration.TransactionalRepositories) error) error {
	return errors.New("db down")
}

func TestWebhookPipeline_OutcomeRecordedWhenTransactionFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.stock.Adjust(ctx, "A1", 10)
	require.NoError(t, err)

	pipeline := appintegration.NewWebhookPipeline(appintegration.WebhookPipelineConfig{
		Marketplaces:  f.marketplaces,
		Verifier:      webhook.NewVerifier(config.WebhookConfig{}, f.marketplaces),
		Router:        f.router,
		Events:        f.events,
		Logs:          f.logs,
		Notifications: f.notifications,
		Scope:         downScope{},
		DeadLetters:   f.dlq,
	})

	result, err := pipeline.Handle(ctx, "hepsiburada", []byte(orderCreatedHB1001), signedHeaders(orderCreatedHB1001))
	require.NoError(t, err, "delivery is still acknowledged")
	assert.True(t, appintegration.IsAcknowledged(err))
	assert.Equal(t, integration.ProcessingStatusApplied, result.Status)

	event, err := f.events.FindByID(ctx, result.WebhookEventID)
	require.NoError(t, err)
	assert.Equal(t, integration.ProcessingStatusApplied, event.Status, "event does not stay pending")

	logs := f.allLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, integration.LogOutcomeApplied, logs[0].Outcome)
	assert.Len(t, f.allNotifications(t), 1)
}
