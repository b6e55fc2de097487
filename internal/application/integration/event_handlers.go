package integration

import (
	"context"
	"fmt"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// RegisterHandlers routes every canonical event type of every marketplace to the reconciler
func (r *Reconciler) RegisterHandlers(router *EventRouter) {
	router.Register(AnyMarketplace, integration.EventOrderCreated, HandlerFunc(r.handleOrderCreated))
	router.Register(AnyMarketplace, integration.EventOrderUpdated, HandlerFunc(r.handleOrderUpdated))
	for eventType, status := range map[integration.EventType]integration.OrderStatus{
		integration.EventOrderCancelled: integration.OrderStatusCancelled,
		integration.EventOrderShipped:   integration.OrderStatusShipped,
		integration.EventOrderDelivered: integration.OrderStatusDelivered,
	} {
		router.Register(AnyMarketplace, eventType, r.orderStatusHandler(status))
	}
	router.Register(AnyMarketplace, integration.EventProductApproved, r.approvalHandler(integration.ApprovalStatusApproved))
	router.Register(AnyMarketplace, integration.EventProductRejected, r.approvalHandler(integration.ApprovalStatusRejected))
	router.Register(AnyMarketplace, integration.EventInventoryUpdated, HandlerFunc(r.handleInventoryUpdated))
	router.Register(AnyMarketplace, integration.EventPriceUpdated, HandlerFunc(r.handlePriceUpdated))
	router.Register(AnyMarketplace, integration.EventPaymentReceived, HandlerFunc(handlePaymentNotice))
	router.Register(AnyMarketplace, integration.EventRefundProcessed, HandlerFunc(handlePaymentNotice))
}

func (r *Reconciler) handleOrderCreated(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
	return r.RecordOrder(ctx, RecordOrderCommand{
		Marketplace:     event.Marketplace,
		ExternalOrderID: data.ExternalOrderID(),
		Items:           data.Items,
		EventKey:        event.EventKey,
		EventAt:         data.EventTime(event.ReceivedAt),
	})
}

func (r *Reconciler) handleOrderUpdated(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
	if data.Status == "" {
		return ApplyOutcome{}, fmt.Errorf("%w: status is required", integration.ErrValidation)
	}
	status, ok := integration.ParseOrderStatus(data.Status)
	if !ok {
		return conflict(fmt.Errorf("%w: unknown status %q", integration.ErrInvalidTransition, data.Status)), nil
	}
	return r.UpdateOrderStatus(ctx, UpdateOrderStatusCommand{
		Marketplace:     event.Marketplace,
		ExternalOrderID: data.ExternalOrderID(),
		Status:          status,
		EventKey:        event.EventKey,
		EventAt:         data.EventTime(event.ReceivedAt),
	})
}

func (r *Reconciler) orderStatusHandler(status integration.OrderStatus) HandlerFunc {
	return func(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
		return r.UpdateOrderStatus(ctx, UpdateOrderStatusCommand{
			Marketplace:     event.Marketplace,
			ExternalOrderID: data.ExternalOrderID(),
			Status:          status,
			EventKey:        event.EventKey,
			EventAt:         data.EventTime(event.ReceivedAt),
		})
	}
}

func (r *Reconciler) approvalHandler(status integration.ApprovalStatus) HandlerFunc {
	return func(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
		return r.UpdateProductStatus(ctx, UpdateProductStatusCommand{
			Marketplace: event.Marketplace,
			SKU:         data.ListingSKU(),
			ProductID:   string(data.ProductID),
			Status:      status,
			Reason:      data.RejectReason(),
			EventKey:    event.EventKey,
		})
	}
}

func (r *Reconciler) handleInventoryUpdated(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
	quantity, ok := data.ListingStock()
	if !ok {
		return ApplyOutcome{}, fmt.Errorf("%w: stock is required", integration.ErrValidation)
	}
	return r.UpdateInventory(ctx, UpdateInventoryCommand{
		Marketplace: event.Marketplace,
		SKU:         data.ListingSKU(),
		ProductID:   string(data.ProductID),
		Quantity:    quantity,
		EventKey:    event.EventKey,
		EventAt:     data.EventTime(event.ReceivedAt),
	})
}

func (r *Reconciler) handlePriceUpdated(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
	price, ok := data.ListingPrice()
	if !ok {
		return ApplyOutcome{}, fmt.Errorf("%w: price is required", integration.ErrValidation)
	}
	return r.UpdatePrice(ctx, UpdatePriceCommand{
		Marketplace: event.Marketplace,
		SKU:         data.ListingSKU(),
		ProductID:   string(data.ProductID),
		Price:       price,
		EventKey:    event.EventKey,
		EventAt:     data.EventTime(event.ReceivedAt),
	})
}

// handlePaymentNotice only produces a notification; no record changes
func handlePaymentNotice(_ context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
	subject := data.ExternalOrderID()
	if subject == "" {
		subject = "unknown order"
	}
	verb := "payment received"
	if event.EventType == integration.EventRefundProcessed {
		verb = "refund processed"
	}
	if data.Amount != nil {
		return noop("%s for %s (%s)", verb, subject, data.Amount.StringFixed(2)), nil
	}
	return noop("%s for %s", verb, subject), nil
}
