package integration

import (
	"context"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/gateway"
)

// Facade is the single entry point other modules use to reach marketplace
// state, the audit trail and outbound marketplace APIs.
type Facade struct {
	reconciler *Reconciler
	sink       *EventSink
	client     *MarketplaceClient
}

// NewFacade creates a new Facade
func NewFacade(reconciler *Reconciler, sink *EventSink, client *MarketplaceClient) *Facade {
	return &Facade{reconciler: reconciler, sink: sink, client: client}
}

// RecordOrder creates or aligns an order record
func (f *Facade) RecordOrder(ctx context.Context, cmd RecordOrderCommand) (ApplyOutcome, error) {
	return f.reconciler.RecordOrder(ctx, cmd)
}

// UpdateProductStatus applies a moderation outcome to a listing
func (f *Facade) UpdateProductStatus(ctx context.Context, cmd UpdateProductStatusCommand) (ApplyOutcome, error) {
	return f.reconciler.UpdateProductStatus(ctx, cmd)
}

// UpdateInventory records marketplace-reported stock
func (f *Facade) UpdateInventory(ctx context.Context, cmd UpdateInventoryCommand) (ApplyOutcome, error) {
	return f.reconciler.UpdateInventory(ctx, cmd)
}

// UpdatePrice records a marketplace-reported price
func (f *Facade) UpdatePrice(ctx context.Context, cmd UpdatePriceCommand) (ApplyOutcome, error) {
	return f.reconciler.UpdatePrice(ctx, cmd)
}

// LogEvent appends a webhook log entry
func (f *Facade) LogEvent(ctx context.Context, log integration.WebhookLog) error {
	return f.sink.LogEvent(ctx, log)
}

// AddNotification appends a notification
func (f *Facade) AddNotification(ctx context.Context, n integration.NotificationRecord) error {
	return f.sink.AddNotification(ctx, n)
}

// CallMarketplaceAPI runs a named marketplace operation through the gateway
func (f *Facade) CallMarketplaceAPI(ctx context.Context, marketplace integration.MarketplaceCode, operation string, params map[string]string) gateway.Envelope {
	return f.client.Call(ctx, integration.ParseMarketplaceCode(string(marketplace)), operation, params)
}
