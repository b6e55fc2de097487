package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/deadletter"
	"github.com/erp/marketplace-gateway/internal/infrastructure/persistence"
	"github.com/erp/marketplace-gateway/internal/infrastructure/webhook"
)

const testSecret = "hb-webhook-secret"

// fixture wires the inbound pipeline onto an isolated in-memory sqlite database
type fixture struct {
	db            *persistence.Database
	events        *persistence.GormWebhookEventRepository
	orders        *persistence.GormOrderRecordRepository
	products      *persistence.GormProductSyncRepository
	stock         *persistence.GormStockLevelRepository
	logs          *persistence.GormWebhookLogRepository
	notifications *persistence.GormNotificationRepository
	dlq           *deadletter.InMemoryQueue
	reconciler    *appintegration.Reconciler
	router        *appintegration.EventRouter
	pipeline      *appintegration.WebhookPipeline
	replay        *appintegration.ReplayService
	marketplaces  map[string]config.MarketplaceConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	f := &fixture{
		db:            db,
		events:        persistence.NewGormWebhookEventRepository(db.DB),
		orders:        persistence.NewGormOrderRecordRepository(db.DB),
		products:      persistence.NewGormProductSyncRepository(db.DB),
		stock:         persistence.NewGormStockLevelRepository(db.DB),
		logs:          persistence.NewGormWebhookLogRepository(db.DB),
		notifications: persistence.NewGormNotificationRepository(db.DB),
		dlq:           deadletter.NewInMemoryQueue(),
		marketplaces: map[string]config.MarketplaceConfig{
			"hepsiburada": {Enabled: true, WebhookSecret: testSecret},
			"trendyol":    {Enabled: false, WebhookSecret: "other"},
		},
	}

	scope := persistence.NewGormTransactionScope(db.DB)
	f.reconciler = appintegration.NewReconciler(appintegration.ReconcilerConfig{Scope: scope, Logger: logger})
	f.router = appintegration.NewEventRouter(logger)
	f.reconciler.RegisterHandlers(f.router)
	require.NoError(t, f.router.Validate())

	f.pipeline = appintegration.NewWebhookPipeline(appintegration.WebhookPipelineConfig{
		Marketplaces:  f.marketplaces,
		Verifier:      webhook.NewVerifier(config.WebhookConfig{}, f.marketplaces),
		Router:        f.router,
		Events:        f.events,
		Logs:          f.logs,
		Notifications: f.notifications,
		Scope:         scope,
		DeadLetters:   f.dlq,
		Logger:        logger,
	})
	f.replay = appintegration.NewReplayService(f.dlq, f.events, f.pipeline, logger)
	return f
}

// deliver posts body to the hepsiburada pipeline with a valid signature
func (f *fixture) deliver(t *testing.T, body string) *appintegration.WebhookResult {
	t.Helper()
	result, err := f.pipeline.Handle(context.Background(), "hepsiburada", []byte(body), signedHeaders(body))
	require.NoError(t, err)
	return result
}

func signedHeaders(body string) http.Header {
	h := http.Header{}
	h.Set("X-Hepsiburada-Signature", webhook.Sign(testSecret, []byte(body)))
	return h
}

func (f *fixture) allLogs(t *testing.T) []integration.WebhookLog {
	t.Helper()
	logs, err := f.logs.List(context.Background(), integration.LogFilter{Limit: 500})
	require.NoError(t, err)
	return logs
}

func (f *fixture) allNotifications(t *testing.T) []integration.NotificationRecord {
	t.Helper()
	n, err := f.notifications.List(context.Background(), integration.LogFilter{Limit: 500})
	require.NoError(t, err)
	return n
}

func (f *fixture) dlqLen(t *testing.T) int {
	t.Helper()
	n, err := f.dlq.Len(context.Background())
	require.NoError(t, err)
	return int(n)
}
