package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/telemetry"
)

// DefaultOrderSyncLookbehind is the window of the first sync of a marketplace
const DefaultOrderSyncLookbehind = time.Hour

// OrderSyncReport summarizes one sync run of one marketplace
type OrderSyncReport struct {
	Marketplace integration.MarketplaceCode `json:"marketplace"`
	Fetched     int                         `json:"fetched"`
	Applied     int                         `json:"applied"`
	Noop        int                         `json:"noop"`
	Conflicts   int                         `json:"conflicts"`
	Errors      int                         `json:"errors"`
}

// OrderSyncService pulls orders through the gateway and records them. It
// complements webhooks for deliveries the marketplace never sent.
type OrderSyncService struct {
	client     *MarketplaceClient
	reconciler *Reconciler
	lookbehind time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	lastRun map[integration.MarketplaceCode]time.Time
}

// NewOrderSyncService creates a new OrderSyncService
func NewOrderSyncService(client *MarketplaceClient, reconciler *Reconciler, lookbehind time.Duration, logger *zap.Logger) *OrderSyncService {
	if lookbehind <= 0 {
		lookbehind = DefaultOrderSyncLookbehind
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSyncService{
		client:     client,
		reconciler: reconciler,
		lookbehind: lookbehind,
		logger:     logger,
		lastRun:    make(map[integration.MarketplaceCode]time.Time),
	}
}

// Sync fetches orders changed since the previous successful run and records each one
func (s *OrderSyncService) Sync(ctx context.Context, code integration.MarketplaceCode) (OrderSyncReport, error) {
	report := OrderSyncReport{Marketplace: code}
	started := time.Now().UTC()
	since := s.since(code, started)

	ctx, span := telemetry.StartServiceSpan(ctx, "order_sync", "Sync", telemetry.WithAttribute("marketplace", string(code)))
	defer span.End()

	env := s.client.FetchOrders(ctx, code, integration.OrderFilter{Since: since, PageSize: 100})
	if !env.Success {
		err := fmt.Errorf("fetch orders from %s: %s", code, env.Message)
		telemetry.RecordError(span, err)
		return report, err
	}
	var orders []integration.RemoteOrder
	if err := env.Decode(&orders); err != nil {
		telemetry.RecordError(span, err)
		return report, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
	}
	report.Fetched = len(orders)

	for _, o := range orders {
		status, ok := integration.ParseOrderStatus(o.Status)
		if !ok {
			status = integration.OrderStatusReceived
		}
		outcome, err := s.reconciler.RecordOrder(ctx, RecordOrderCommand{
			Marketplace:     code,
			ExternalOrderID: o.ExternalOrderID,
			Status:          status,
			Items:           o.Items,
			EventKey:        fmt.Sprintf("sync:%s:%s", o.ExternalOrderID, status),
			EventAt:         o.CreatedAt,
		})
		if err != nil {
			report.Errors++
			s.logger.Error("failed to record synced order",
				zap.String("marketplace", string(code)),
				zap.String("external_order_id", o.ExternalOrderID),
				zap.Error(err))
			continue
		}
		switch outcome.Kind {
		case OutcomeApplied:
			report.Applied++
		case OutcomeNoop:
			report.Noop++
		default:
			report.Conflicts++
		}
	}

	telemetry.SetAttributes(span, "fetched", report.Fetched, "applied", report.Applied, "errors", report.Errors)
	if report.Errors == 0 {
		s.mu.Lock()
		s.lastRun[code] = started
		s.mu.Unlock()
	}
	s.logger.Info("order sync completed",
		zap.String("marketplace", string(code)),
		zap.Int("fetched", report.Fetched),
		zap.Int("applied", report.Applied),
		zap.Int("conflicts", report.Conflicts),
		zap.Int("errors", report.Errors))
	return report, nil
}

func (s *OrderSyncService) since(code integration.MarketplaceCode, now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastRun[code]; ok {
		return last
	}
	return now.Add(-s.lookbehind)
}
