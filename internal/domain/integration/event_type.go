package integration

import "strings"

// ---------------------------------------------------------------------------
// EventType is the canonical type of an inbound marketplace webhook
// ---------------------------------------------------------------------------

// EventType is the canonical type of an inbound marketplace webhook
type EventType string

const (
	EventOrderCreated     EventType = "ORDER_CREATED"
	EventOrderUpdated     EventType = "ORDER_UPDATED"
	EventOrderCancelled   EventType = "ORDER_CANCELLED"
	EventOrderShipped     EventType = "ORDER_SHIPPED"
	EventOrderDelivered   EventType = "ORDER_DELIVERED"
	EventProductApproved  EventType = "PRODUCT_APPROVED"
	EventProductRejected  EventType = "PRODUCT_REJECTED"
	EventInventoryUpdated EventType = "INVENTORY_UPDATED"
	EventPriceUpdated     EventType = "PRICE_UPDATED"
	EventPaymentReceived  EventType = "PAYMENT_RECEIVED"
	EventRefundProcessed  EventType = "REFUND_PROCESSED"
)

// AllEventTypes returns every canonical event type
func AllEventTypes() []EventType {
	return []EventType{
		EventOrderCreated,
		EventOrderUpdated,
		EventOrderCancelled,
		EventOrderShipped,
		EventOrderDelivered,
		EventProductApproved,
		EventProductRejected,
		EventInventoryUpdated,
		EventPriceUpdated,
		EventPaymentReceived,
		EventRefundProcessed,
	}
}

// eventAliases maps dotted marketplace spellings onto canonical types
var eventAliases = map[string]EventType{
	"order.created":         EventOrderCreated,
	"order.updated":         EventOrderUpdated,
	"order.cancelled":       EventOrderCancelled,
	"order.canceled":        EventOrderCancelled,
	"order.shipped":         EventOrderShipped,
	"order.delivered":       EventOrderDelivered,
	"product.approved":      EventProductApproved,
	"product.rejected":      EventProductRejected,
	"product.stock_changed": EventInventoryUpdated,
	"inventory.updated":     EventInventoryUpdated,
	"product.price_changed": EventPriceUpdated,
	"price.updated":         EventPriceUpdated,
	"payment.received":      EventPaymentReceived,
	"refund.processed":      EventRefundProcessed,
}

// ParseEventType normalizes a marketplace-supplied event type string.
// Unrecognized input is returned upper-cased so that it can still be logged;
// IsValid reports whether it is known.
func ParseEventType(s string) EventType {
	trimmed := strings.TrimSpace(s)
	if alias, ok := eventAliases[strings.ToLower(trimmed)]; ok {
		return alias
	}
	return EventType(strings.ToUpper(trimmed))
}

// IsValid returns true if the event type is a known canonical type
func (t EventType) IsValid() bool {
	switch t {
	case EventOrderCreated, EventOrderUpdated, EventOrderCancelled, EventOrderShipped,
		EventOrderDelivered, EventProductApproved, EventProductRejected,
		EventInventoryUpdated, EventPriceUpdated, EventPaymentReceived, EventRefundProcessed:
		return true
	default:
		return false
	}
}

// String returns the string representation of EventType
func (t EventType) String() string {
	return string(t)
}

// EventCategory groups event types by the record they affect
type EventCategory string

const (
	EventCategoryOrder     EventCategory = "order"
	EventCategoryProduct   EventCategory = "product"
	EventCategoryInventory EventCategory = "inventory"
	EventCategoryPrice     EventCategory = "price"
	EventCategoryPayment   EventCategory = "payment"
	EventCategoryUnknown   EventCategory = "unknown"
)

// Category returns the category of the event type
func (t EventType) Category() EventCategory {
	switch t {
	case EventOrderCreated, EventOrderUpdated, EventOrderCancelled, EventOrderShipped, EventOrderDelivered:
		return EventCategoryOrder
	case EventProductApproved, EventProductRejected:
		return EventCategoryProduct
	case EventInventoryUpdated:
		return EventCategoryInventory
	case EventPriceUpdated:
		return EventCategoryPrice
	case EventPaymentReceived, EventRefundProcessed:
		return EventCategoryPayment
	default:
		return EventCategoryUnknown
	}
}
