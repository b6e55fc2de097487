package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// DefaultLowStockThreshold is used when no threshold is configured
const DefaultLowStockThreshold = 5

// Reconciler applies marketplace events to local state. Every apply holds the
// per-record lock and runs inside one transaction, so concurrent deliveries of
// the same order or listing are serialized.
type Reconciler struct {
	scope             TransactionScope
	locks             *KeyedMutex
	lowStockThreshold int
	logger            *zap.Logger
}

// ReconcilerConfig contains configuration for Reconciler
type ReconcilerConfig struct {
	Scope             TransactionScope
	Locks             *KeyedMutex
	LowStockThreshold int
	Logger            *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Locks == nil {
		cfg.Locks = NewKeyedMutex()
	}
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = DefaultLowStockThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Reconciler{
		scope:             cfg.Scope,
		locks:             cfg.Locks,
		lowStockThreshold: cfg.LowStockThreshold,
		logger:            cfg.Logger,
	}
}

func orderLockKey(m integration.MarketplaceCode, externalOrderID string) string {
	return "order:" + string(m) + ":" + externalOrderID
}

func productLockKey(m integration.MarketplaceCode, sku string) string {
	return "product:" + string(m) + ":" + sku
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// RecordOrder creates the order if it is unknown and decrements local stock for
// each line item. For a known order it aligns the status (used by order sync);
// a repeated creation is a no-op.
func (r *Reconciler) RecordOrder(ctx context.Context, cmd RecordOrderCommand) (ApplyOutcome, error) {
	cmd.Marketplace = integration.ParseMarketplaceCode(string(cmd.Marketplace))
	if err := validateCommand(&cmd); err != nil {
		return ApplyOutcome{}, err
	}
	target := cmd.Status
	if target == "" {
		target = integration.OrderStatusReceived
	}
	if !target.IsValid() {
		return ApplyOutcome{}, fmt.Errorf("%w: unknown order status %q", integration.ErrValidation, target)
	}
	eventAt := eventTimeOrNow(cmd.EventAt)

	unlock := r.locks.Lock(orderLockKey(cmd.Marketplace, cmd.ExternalOrderID))
	defer unlock()

	var outcome ApplyOutcome
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Orders().FindByExternalID(ctx, cmd.Marketplace, cmd.ExternalOrderID)
		switch {
		case err == nil:
			if target == integration.OrderStatusReceived || existing.Status == target {
				outcome = noop("order %s already recorded", cmd.ExternalOrderID)
				return nil
			}
			prev := existing.Version
			changed, err := advanceOrder(existing, target, cmd.EventKey, eventAt)
			if err != nil {
				if errors.Is(err, integration.ErrReconciliationConflict) {
					outcome = conflict(err)
					return nil
				}
				return err
			}
			if !changed {
				outcome = noop("order %s already %s", cmd.ExternalOrderID, existing.Status)
				return nil
			}
			if err := repos.Orders().Update(ctx, existing, prev); err != nil {
				return err
			}
			outcome = applied("order %s moved to %s", cmd.ExternalOrderID, existing.Status)
			return nil

		case errors.Is(err, integration.ErrRecordNotFound):
			return r.createOrder(ctx, repos, cmd, target, eventAt, &outcome)

		default:
			return err
		}
	})
	if err != nil {
		return ApplyOutcome{}, err
	}
	r.logOutcome("order recorded", cmd.Marketplace, cmd.ExternalOrderID, outcome)
	return outcome, nil
}

func (r *Reconciler) createOrder(ctx context.Context, repos TransactionalRepositories, cmd RecordOrderCommand,
	target integration.OrderStatus, eventAt time.Time, outcome *ApplyOutcome,
) error {
	creationKey := cmd.EventKey
	if target != integration.OrderStatusReceived && creationKey != "" {
		creationKey += "#" + string(integration.OrderStatusReceived)
	}
	order, err := integration.NewOrderRecord(cmd.Marketplace, cmd.ExternalOrderID, creationKey, eventAt, cmd.Items)
	if err != nil {
		return err
	}
	if target != integration.OrderStatusReceived {
		if _, err := advanceOrder(order, target, cmd.EventKey, eventAt); err != nil {
			return err
		}
	}
	if err := repos.Orders().Create(ctx, order); err != nil {
		return err
	}

	var lowStock []string
	for _, item := range order.Items {
		level, err := repos.Stock().Adjust(ctx, item.SKU, -item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to adjust stock of %s: %w", item.SKU, err)
		}
		if level.IsLow(r.lowStockThreshold) {
			lowStock = append(lowStock, fmt.Sprintf("SKU %s has %d left", item.SKU, level.Quantity))
		}
	}

	*outcome = applied("order %s created with %d item(s)", cmd.ExternalOrderID, len(order.Items))
	outcome.Warnings = lowStock
	return nil
}

// advanceOrder moves order to target. Delivered is reachable from Received
// through Shipped when the shipment event was never observed.
func advanceOrder(order *integration.OrderRecord, target integration.OrderStatus, eventKey string, eventAt time.Time) (bool, error) {
	if order.Status == integration.OrderStatusReceived && target == integration.OrderStatusDelivered {
		if _, err := order.TransitionTo(integration.OrderStatusShipped, eventKey+"#"+string(integration.OrderStatusShipped), eventAt); err != nil {
			return false, err
		}
	}
	return order.TransitionTo(target, eventKey, eventAt)
}

// UpdateOrderStatus applies a status event to an existing order. Missing
// orders and regressive transitions are conflicts and leave state untouched.
func (r *Reconciler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (ApplyOutcome, error) {
	cmd.Marketplace = integration.ParseMarketplaceCode(string(cmd.Marketplace))
	if err := validateCommand(&cmd); err != nil {
		return ApplyOutcome{}, err
	}
	eventAt := eventTimeOrNow(cmd.EventAt)

	unlock := r.locks.Lock(orderLockKey(cmd.Marketplace, cmd.ExternalOrderID))
	defer unlock()

	var outcome ApplyOutcome
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.Orders().FindByExternalID(ctx, cmd.Marketplace, cmd.ExternalOrderID)
		if err != nil {
			if errors.Is(err, integration.ErrRecordNotFound) {
				outcome = conflict(fmt.Errorf("%w: %s", integration.ErrOrderNotFound, cmd.ExternalOrderID))
				return nil
			}
			return err
		}

		prev := order.Version
		changed, err := order.TransitionTo(cmd.Status, cmd.EventKey, eventAt)
		if err != nil {
			if errors.Is(err, integration.ErrReconciliationConflict) {
				outcome = conflict(err)
				return nil
			}
			return err
		}
		if !changed {
			outcome = noop("order %s already %s", cmd.ExternalOrderID, order.Status)
			return nil
		}
		if err := repos.Orders().Update(ctx, order, prev); err != nil {
			return err
		}
		outcome = applied("order %s moved to %s", cmd.ExternalOrderID, order.Status)
		return nil
	})
	if err != nil {
		return ApplyOutcome{}, err
	}
	r.logOutcome("order status applied", cmd.Marketplace, cmd.ExternalOrderID, outcome)
	return outcome, nil
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

// UpdateProductStatus records a moderation outcome, creating the listing if absent
func (r *Reconciler) UpdateProductStatus(ctx context.Context, cmd UpdateProductStatusCommand) (ApplyOutcome, error) {
	cmd.Marketplace = integration.ParseMarketplaceCode(string(cmd.Marketplace))
	if err := validateCommand(&cmd); err != nil {
		return ApplyOutcome{}, err
	}
	return r.applyToListing(ctx, cmd.Marketplace, cmd.SKU, cmd.ProductID,
		func(rec *integration.ProductSyncRecord) (bool, error) {
			return rec.ApplyApproval(cmd.Status, cmd.Reason, cmd.EventKey)
		},
		func(rec *integration.ProductSyncRecord) string {
			if rec.ApprovalStatus == integration.ApprovalStatusRejected {
				return fmt.Sprintf("product %s rejected: %s", cmd.SKU, rec.RejectionReason)
			}
			return fmt.Sprintf("product %s %s", cmd.SKU, rec.ApprovalStatus)
		},
	)
}

// UpdateInventory records marketplace stock; older events are no-ops
func (r *Reconciler) UpdateInventory(ctx context.Context, cmd UpdateInventoryCommand) (ApplyOutcome, error) {
	cmd.Marketplace = integration.ParseMarketplaceCode(string(cmd.Marketplace))
	if err := validateCommand(&cmd); err != nil {
		return ApplyOutcome{}, err
	}
	eventAt := eventTimeOrNow(cmd.EventAt)
	return r.applyToListing(ctx, cmd.Marketplace, cmd.SKU, cmd.ProductID,
		func(rec *integration.ProductSyncRecord) (bool, error) {
			return rec.ApplyStock(cmd.Quantity, eventAt, cmd.EventKey)
		},
		func(rec *integration.ProductSyncRecord) string {
			return fmt.Sprintf("stock of %s set to %d", cmd.SKU, rec.LastSyncedStock)
		},
	)
}

// UpdatePrice records a marketplace price; older events are no-ops
func (r *Reconciler) UpdatePrice(ctx context.Context, cmd UpdatePriceCommand) (ApplyOutcome, error) {
	cmd.Marketplace = integration.ParseMarketplaceCode(string(cmd.Marketplace))
	if err := validateCommand(&cmd); err != nil {
		return ApplyOutcome{}, err
	}
	eventAt := eventTimeOrNow(cmd.EventAt)
	return r.applyToListing(ctx, cmd.Marketplace, cmd.SKU, cmd.ProductID,
		func(rec *integration.ProductSyncRecord) (bool, error) {
			return rec.ApplyPrice(cmd.Price, eventAt, cmd.EventKey)
		},
		func(rec *integration.ProductSyncRecord) string {
			return fmt.Sprintf("price of %s set to %s", cmd.SKU, rec.LastSyncedPrice.StringFixed(2))
		},
	)
}

// applyToListing loads or creates the listing, applies mutate and persists the
// result when it changed.
func (r *Reconciler) applyToListing(
	ctx context.Context,
	marketplace integration.MarketplaceCode,
	sku, productID string,
	mutate func(*integration.ProductSyncRecord) (bool, error),
	describe func(*integration.ProductSyncRecord) string,
) (ApplyOutcome, error) {
	unlock := r.locks.Lock(productLockKey(marketplace, sku))
	defer unlock()

	var outcome ApplyOutcome
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		rec, err := repos.Products().FindBySKU(ctx, marketplace, sku)
		isNew := false
		if err != nil {
			if !errors.Is(err, integration.ErrRecordNotFound) {
				return err
			}
			rec, err = integration.NewProductSyncRecord(marketplace, sku, productID)
			if err != nil {
				return err
			}
			isNew = true
		}

		prev := rec.Version
		changed, err := mutate(rec)
		if err != nil {
			return err
		}
		if !changed {
			outcome = noop("product %s unchanged", sku)
			return nil
		}
		if rec.ProductID == "" && productID != "" {
			rec.ProductID = productID
		}
		if isNew {
			err = repos.Products().Create(ctx, rec)
		} else {
			err = repos.Products().Update(ctx, rec, prev)
		}
		if err != nil {
			return err
		}
		outcome = applied("%s", describe(rec))
		return nil
	})
	if err != nil {
		return ApplyOutcome{}, err
	}
	r.logOutcome("listing applied", marketplace, sku, outcome)
	return outcome, nil
}

func (r *Reconciler) logOutcome(msg string, m integration.MarketplaceCode, key string, outcome ApplyOutcome) {
	fields := []zap.Field{
		zap.String("marketplace", string(m)),
		zap.String("key", key),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("message", outcome.Message),
	}
	if outcome.Kind == OutcomeConflict {
		r.logger.Warn("reconciliation conflict", fields...)
		return
	}
	if len(outcome.Warnings) > 0 {
		r.logger.Warn("low stock", append(fields, zap.Strings("warnings", outcome.Warnings))...)
		return
	}
	r.logger.Debug(msg, fields...)
}
