package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormWebhookEventRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormWebhookEventRepository(db.DB)

	event := integration.NewWebhookEvent(integration.MarketplaceHepsiburada, integration.EventOrderCreated,
		"wh-1", []byte(`{"orderId":"HB-1"}`))
	require.NoError(t, repo.Create(ctx, event))

	t.Run("finds stored event", func(t *testing.T) {
		found, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.EventKey, found.EventKey)
		assert.Equal(t, integration.ProcessingStatusPending, found.Status)
		assert.JSONEq(t, `{"orderId":"HB-1"}`, string(found.RawPayload))
	})

	t.Run("finish is applied once", func(t *testing.T) {
		require.NoError(t, event.MarkApplied("ok"))
		require.NoError(t, repo.Finish(ctx, event))

		second := *event
		second.Status = integration.ProcessingStatusFailed
		assert.ErrorIs(t, repo.Finish(ctx, &second), integration.ErrTerminalStatus)

		found, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.ProcessingStatusApplied, found.Status)
		assert.NotNil(t, found.ProcessedAt)
	})

	t.Run("retries share the event key", func(t *testing.T) {
		retry := event.NewRetry()
		require.NoError(t, repo.Create(ctx, retry))

		count, err := repo.CountByEventKey(ctx, integration.MarketplaceHepsiburada, event.EventKey)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := repo.FindByID(ctx, integration.NewWebhookEvent("x", "", "", nil).ID)
		assert.ErrorIs(t, err, integration.ErrRecordNotFound)
	})
}

func TestGormOrderRecordRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormOrderRecordRepository(db.DB)

	order, err := integration.NewOrderRecord(integration.MarketplaceHepsiburada, "HB-1001", "evt-1",
		time.Now().UTC(), []integration.OrderItem{{SKU: "A1", Quantity: 2}})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	t.Run("unique idempotency key", func(t *testing.T) {
		dup, err := integration.NewOrderRecord(integration.MarketplaceHepsiburada, "HB-1001", "evt-2", time.Now(), nil)
		require.NoError(t, err)
		assert.Error(t, repo.Create(ctx, dup))
	})

	t.Run("round trips items", func(t *testing.T) {
		found, err := repo.FindByExternalID(ctx, integration.MarketplaceHepsiburada, "HB-1001")
		require.NoError(t, err)
		assert.Equal(t, []integration.OrderItem{{SKU: "A1", Quantity: 2}}, found.Items)
		assert.Equal(t, integration.OrderStatusReceived, found.Status)
	})

	t.Run("optimistic update", func(t *testing.T) {
		found, err := repo.FindByExternalID(ctx, integration.MarketplaceHepsiburada, "HB-1001")
		require.NoError(t, err)
		expected := found.Version
		_, err = found.TransitionTo(integration.OrderStatusShipped, "evt-3", time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, repo.Update(ctx, found, expected))

		assert.ErrorIs(t, repo.Update(ctx, found, expected), integration.ErrStaleVersion)

		list, err := repo.List(ctx, integration.MarketplaceHepsiburada, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, integration.OrderStatusShipped, list[0].Status)
		assert.Equal(t, 2, list[0].Version)
	})

	t.Run("other marketplace is a different key", func(t *testing.T) {
		_, err := repo.FindByExternalID(ctx, integration.MarketplaceTrendyol, "HB-1001")
		assert.ErrorIs(t, err, integration.ErrRecordNotFound)
	})
}

func TestGormProductSyncRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormProductSyncRepository(db.DB)

	record, err := integration.NewProductSyncRecord(integration.MarketplaceTrendyol, "SKU-9", "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, record))

	found, err := repo.FindBySKU(ctx, integration.MarketplaceTrendyol, "SKU-9")
	require.NoError(t, err)
	expected := found.Version
	_, err = found.ApplyPrice(decimal.RequireFromString("149.9900"), time.Now().UTC(), "evt-1")
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, found, expected))

	reloaded, err := repo.FindBySKU(ctx, integration.MarketplaceTrendyol, "SKU-9")
	require.NoError(t, err)
	assert.True(t, reloaded.LastSyncedPrice.Equal(decimal.RequireFromString("149.99")))
	assert.Equal(t, expected+1, reloaded.Version)

	assert.ErrorIs(t, repo.Update(ctx, found, expected), integration.ErrStaleVersion)
}

func TestGormStockLevelRepository_Adjust(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormStockLevelRepository(db.DB)

	level, err := repo.Adjust(ctx, "A1", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, level.Quantity)

	level, err = repo.Adjust(ctx, "A1", -3)
	require.NoError(t, err)
	assert.Equal(t, 7, level.Quantity)

	_, err = repo.FindBySKU(ctx, "missing")
	assert.ErrorIs(t, err, integration.ErrRecordNotFound)
}

func TestGormStockLevelRepository_ConcurrentAdjust(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormStockLevelRepository(db.DB)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Adjust(ctx, "A1", -1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	level, err := repo.FindBySKU(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, -20, level.Quantity)
}

func TestGormAuditRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	logs := NewGormWebhookLogRepository(db.DB)
	notifications := NewGormNotificationRepository(db.DB)
	apiLogs := NewGormAPIRequestLogRepository(db.DB)

	event := integration.NewWebhookEvent(integration.MarketplaceHepsiburada, integration.EventOrderCreated, "wh-1", nil)
	for _, outcome := range []integration.LogOutcome{integration.LogOutcomeApplied, integration.LogOutcomeNoop, integration.LogOutcomeApplied} {
		entry := integration.NewWebhookLog(event, outcome, "", 3*time.Millisecond)
		require.NoError(t, logs.Append(ctx, &entry))
	}
	old := integration.NewWebhookLog(event, integration.LogOutcomeFailed, "db down", 0)
	old.CreatedAt = time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, logs.Append(ctx, &old))

	t.Run("stats group by outcome", func(t *testing.T) {
		stats, err := logs.Stats(ctx, integration.LogFilter{Marketplace: integration.MarketplaceHepsiburada})
		require.NoError(t, err)

		counts := map[integration.LogOutcome]int64{}
		for _, s := range stats {
			assert.Equal(t, integration.EventOrderCreated, s.EventType)
			counts[s.Outcome] = s.Count
		}
		assert.Equal(t, int64(2), counts[integration.LogOutcomeApplied])
		assert.Equal(t, int64(1), counts[integration.LogOutcomeNoop])
		assert.Equal(t, int64(1), counts[integration.LogOutcomeFailed])
	})

	t.Run("retention removes old entries", func(t *testing.T) {
		deleted, err := logs.DeleteBefore(ctx, time.Now().UTC().Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		list, err := logs.List(ctx, integration.LogFilter{})
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("notifications filter by marketplace", func(t *testing.T) {
		n1 := integration.NewNotification(integration.MarketplaceHepsiburada, integration.NotificationInfo, "Order received", "HB-1")
		n2 := integration.NewNotification(integration.MarketplaceTrendyol, integration.NotificationWarning, "Low stock", "A1")
		require.NoError(t, notifications.Append(ctx, &n1))
		require.NoError(t, notifications.Append(ctx, &n2))

		list, err := notifications.List(ctx, integration.LogFilter{Marketplace: integration.MarketplaceTrendyol})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Low stock", list[0].Title)
	})

	t.Run("api logs keep params", func(t *testing.T) {
		entry := integration.APIRequestLog{
			ID:          event.ID,
			Marketplace: integration.MarketplaceHepsiburada,
			Endpoint:    "getOrders",
			Params:      map[string]string{"limit": "50"},
			StatusCode:  503,
			CircuitOpen: true,
			ErrorKind:   integration.ErrorKindCircuitOpen,
			CreatedAt:   time.Now().UTC(),
		}
		require.NoError(t, apiLogs.Append(ctx, &entry))

		list, err := apiLogs.List(ctx, integration.LogFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "50", list[0].Params["limit"])
		assert.True(t, list[0].CircuitOpen)
	})
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	scope := NewGormTransactionScope(db.DB)

	t.Run("rolls back every repository on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appintegration.TransactionalRepositories) error {
			order, err := integration.NewOrderRecord(integration.MarketplaceN11, "N-1", "evt-1", time.Now().UTC(), nil)
			require.NoError(t, err)
			require.NoError(t, repos.Orders().Create(ctx, order))
			_, err = repos.Stock().Adjust(ctx, "A1", -1)
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = NewGormOrderRecordRepository(db.DB).FindByExternalID(ctx, integration.MarketplaceN11, "N-1")
		assert.ErrorIs(t, err, integration.ErrRecordNotFound)
		_, err = NewGormStockLevelRepository(db.DB).FindBySKU(ctx, "A1")
		assert.ErrorIs(t, err, integration.ErrRecordNotFound)
	})

	t.Run("commits on success", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos appintegration.TransactionalRepositories) error {
			n := integration.NewNotification(integration.MarketplaceN11, integration.NotificationInfo, "ok", "")
			return repos.Notifications().Append(ctx, &n)
		})
		require.NoError(t, err)

		list, err := NewGormNotificationRepository(db.DB).List(ctx, integration.LogFilter{})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestGormWebhookEventRepository_FinishSQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormWebhookEventRepository(db.DB)

	event := integration.NewWebhookEvent(integration.MarketplaceHepsiburada, integration.EventOrderCreated, "wh-1", nil)
	require.NoError(t, event.MarkFailed("boom"))

	mock.ExpectExec(`UPDATE "webhook_events" SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Finish(context.Background(), event)
	assert.ErrorIs(t, err, integration.ErrTerminalStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
