package integration

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

var validate = validator.New()

// OutcomeKind classifies the effect of one apply
type OutcomeKind string

const (
	OutcomeApplied  OutcomeKind = "applied"
	OutcomeNoop     OutcomeKind = "noop"
	OutcomeConflict OutcomeKind = "conflict"
)

// ApplyOutcome is returned by every reconciler operation
type ApplyOutcome struct {
	Kind    OutcomeKind `json:"kind"`
	Message string      `json:"message"`
	// Warnings are side observations of an applied change, such as stock
	// falling to the low-stock threshold
	Warnings []string `json:"warnings,omitempty"`
}

func applied(format string, args ...any) ApplyOutcome {
	return ApplyOutcome{Kind: OutcomeApplied, Message: fmt.Sprintf(format, args...)}
}

func noop(format string, args ...any) ApplyOutcome {
	return ApplyOutcome{Kind: OutcomeNoop, Message: fmt.Sprintf(format, args...)}
}

func conflict(err error) ApplyOutcome {
	return ApplyOutcome{Kind: OutcomeConflict, Message: err.Error()}
}

// RecordOrderCommand records a marketplace order. Status defaults to Received.
type RecordOrderCommand struct {
	Marketplace     integration.MarketplaceCode `json:"marketplace" validate:"required"`
	ExternalOrderID string                      `json:"external_order_id" validate:"required,max=128"`
	Status          integration.OrderStatus     `json:"status"`
	Items           []integration.OrderItem     `json:"items" validate:"dive"`
	EventKey        string                      `json:"event_key"`
	EventAt         time.Time                   `json:"event_at"`
}

// UpdateOrderStatusCommand moves an existing order to a new status
type UpdateOrderStatusCommand struct {
	Marketplace     integration.MarketplaceCode `json:"marketplace" validate:"required"`
	ExternalOrderID string                      `json:"external_order_id" validate:"required,max=128"`
	Status          integration.OrderStatus     `json:"status" validate:"required"`
	EventKey        string                      `json:"event_key"`
	EventAt         time.Time                   `json:"event_at"`
}

// UpdateProductStatusCommand applies a moderation outcome to a listing
type UpdateProductStatusCommand struct {
	Marketplace integration.MarketplaceCode `json:"marketplace" validate:"required"`
	SKU         string                      `json:"sku" validate:"required,max=128"`
	ProductID   string                      `json:"product_id"`
	Status      integration.ApprovalStatus  `json:"status" validate:"required"`
	Reason      string                      `json:"reason"`
	EventKey    string                      `json:"event_key"`
}

// UpdateInventoryCommand records marketplace-reported stock for a listing
type UpdateInventoryCommand struct {
	Marketplace integration.MarketplaceCode `json:"marketplace" validate:"required"`
	SKU         string                      `json:"sku" validate:"required,max=128"`
	ProductID   string                      `json:"product_id"`
	Quantity    int                         `json:"quantity" validate:"gte=0"`
	EventKey    string                      `json:"event_key"`
	EventAt     time.Time                   `json:"event_at"`
}

// UpdatePriceCommand records a marketplace-reported price for a listing
type UpdatePriceCommand struct {
	Marketplace integration.MarketplaceCode `json:"marketplace" validate:"required"`
	SKU         string                      `json:"sku" validate:"required,max=128"`
	ProductID   string                      `json:"product_id"`
	Price       decimal.Decimal             `json:"price"`
	EventKey    string                      `json:"event_key"`
	EventAt     time.Time                   `json:"event_at"`
}

// validateCommand runs struct validation and reports failures as ErrValidation
func validateCommand(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", integration.ErrValidation, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", integration.ErrValidation, err)
	}
	return nil
}

// eventTimeOrNow returns t, or the current time when t is zero
func eventTimeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
