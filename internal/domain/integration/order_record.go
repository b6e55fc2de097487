package integration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// OrderStatus is the local lifecycle of a marketplace order
// ---------------------------------------------------------------------------

// OrderStatus is the local lifecycle status of a marketplace order
type OrderStatus string

const (
	// OrderStatusReceived indicates the order was created on the marketplace
	OrderStatusReceived OrderStatus = "Received"
	// OrderStatusShipped indicates the order left the warehouse
	OrderStatusShipped OrderStatus = "Shipped"
	// OrderStatusDelivered indicates the buyer received the order
	OrderStatusDelivered OrderStatus = "Delivered"
	// OrderStatusCancelled indicates the order was cancelled
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// allowedOrderTransitions lists the forward transitions. Cancellation is
// handled separately: any non-cancelled status may be cancelled.
var allowedOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusReceived: {OrderStatusShipped},
	OrderStatusShipped:  {OrderStatusDelivered},
}

// ParseOrderStatus maps marketplace spellings onto OrderStatus
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "received", "created", "new", "pending", "paid":
		return OrderStatusReceived, true
	case "shipped", "in_transit", "shipping":
		return OrderStatusShipped, true
	case "delivered", "completed":
		return OrderStatusDelivered, true
	case "cancelled", "canceled":
		return OrderStatusCancelled, true
	default:
		return "", false
	}
}

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusReceived, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to next is a forward transition
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return s != OrderStatusCancelled
	}
	for _, allowed := range allowedOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// OrderRecord
// ---------------------------------------------------------------------------

// OrderItem is a line item of a marketplace order
type OrderItem struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"qty" validate:"gt=0"`
}

// OrderRecord is the local projection of a marketplace order.
// (Marketplace, ExternalOrderID) is the idempotency key.
type OrderRecord struct {
	// ID is the surrogate key
	ID uuid.UUID
	// Marketplace is the marketplace the order belongs to
	Marketplace MarketplaceCode
	// ExternalOrderID is the order number on the marketplace
	ExternalOrderID string
	// LocalOrderID is the back office order id, once linked (optional)
	LocalOrderID *string
	// Status is the local lifecycle status
	Status OrderStatus
	// Items are the line items captured on creation
	Items []OrderItem
	// LastAppliedEventID is the event key of the last applied event
	LastAppliedEventID string
	// LastEventAt is the marketplace timestamp of the last applied event
	LastEventAt time.Time
	// Version increments on every applied event
	Version int
	// CreatedAt is when the record was created
	CreatedAt time.Time
	// UpdatedAt is when the record was last changed
	UpdatedAt time.Time
}

// NewOrderRecord creates a Received order record at version 1
func NewOrderRecord(marketplace MarketplaceCode, externalOrderID, eventKey string, eventAt time.Time, items []OrderItem) (*OrderRecord, error) {
	if !marketplace.IsValid() {
		return nil, fmt.Errorf("%w: invalid marketplace %q", ErrValidation, marketplace)
	}
	if strings.TrimSpace(externalOrderID) == "" {
		return nil, fmt.Errorf("%w: external order id is required", ErrValidation)
	}
	for _, item := range items {
		if item.SKU == "" || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: invalid line item %+v", ErrValidation, item)
		}
	}
	now := time.Now().UTC()
	return &OrderRecord{
		ID:                 uuid.New(),
		Marketplace:        marketplace,
		ExternalOrderID:    externalOrderID,
		Status:             OrderStatusReceived,
		Items:              items,
		LastAppliedEventID: eventKey,
		LastEventAt:        eventAt,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// HasApplied reports whether the event with the given key was the last one applied
func (o *OrderRecord) HasApplied(eventKey string) bool {
	return eventKey != "" && o.LastAppliedEventID == eventKey
}

// TransitionTo applies a status change. It returns false without error when
// the event is a duplicate or the order is already in the requested status.
// Regressive or skipping transitions return ErrInvalidTransition and leave the
// record untouched.
func (o *OrderRecord) TransitionTo(next OrderStatus, eventKey string, eventAt time.Time) (bool, error) {
	if !next.IsValid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if o.HasApplied(eventKey) || o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.LastAppliedEventID = eventKey
	if eventAt.After(o.LastEventAt) {
		o.LastEventAt = eventAt
	}
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}
