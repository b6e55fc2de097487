package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookEventRepository persists webhook deliveries
type WebhookEventRepository interface {
	// Create stores a new delivery
	Create(ctx context.Context, event *WebhookEvent) error
	// Finish persists a terminal status. Only Pending rows are updated;
	// ErrTerminalStatus is returned if the stored row is already terminal.
	Finish(ctx context.Context, event *WebhookEvent) error
	// FindByID returns ErrRecordNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*WebhookEvent, error)
	// CountByEventKey counts deliveries of a logical event
	CountByEventKey(ctx context.Context, marketplace MarketplaceCode, eventKey string) (int64, error)
}

// OrderRecordRepository persists order projections
type OrderRecordRepository interface {
	// FindByExternalID returns ErrRecordNotFound when absent
	FindByExternalID(ctx context.Context, marketplace MarketplaceCode, externalOrderID string) (*OrderRecord, error)
	// Create stores a new order record
	Create(ctx context.Context, order *OrderRecord) error
	// Update stores a changed record; expectedVersion guards against lost updates
	Update(ctx context.Context, order *OrderRecord, expectedVersion int) error
	// List returns the most recently updated orders of a marketplace
	List(ctx context.Context, marketplace MarketplaceCode, limit int) ([]*OrderRecord, error)
}

// ProductSyncRepository persists product sync records
type ProductSyncRepository interface {
	// FindBySKU returns ErrRecordNotFound when absent
	FindBySKU(ctx context.Context, marketplace MarketplaceCode, sku string) (*ProductSyncRecord, error)
	// Create stores a new record
	Create(ctx context.Context, record *ProductSyncRecord) error
	// Update stores a changed record; expectedVersion guards against lost updates
	Update(ctx context.Context, record *ProductSyncRecord, expectedVersion int) error
}

// StockLevelRepository persists local stock counters
type StockLevelRepository interface {
	// Adjust adds delta to the SKU's quantity, creating the row at 0 if needed
	Adjust(ctx context.Context, sku string, delta int) (*StockLevel, error)
	// FindBySKU returns ErrRecordNotFound when absent
	FindBySKU(ctx context.Context, sku string) (*StockLevel, error)
}

// WebhookLogRepository appends and queries webhook logs
type WebhookLogRepository interface {
	Append(ctx context.Context, log *WebhookLog) error
	List(ctx context.Context, filter LogFilter) ([]WebhookLog, error)
	Stats(ctx context.Context, filter LogFilter) ([]EventTypeStat, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// NotificationRepository appends and queries notifications
type NotificationRepository interface {
	Append(ctx context.Context, n *NotificationRecord) error
	List(ctx context.Context, filter LogFilter) ([]NotificationRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// APIRequestLogRepository appends outbound call logs
type APIRequestLogRepository interface {
	Append(ctx context.Context, log *APIRequestLog) error
	List(ctx context.Context, filter LogFilter) ([]APIRequestLog, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
