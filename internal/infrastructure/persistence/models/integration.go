package models

import (
	"encoding/json"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// All returns every model managed by this package, in migration order
func All() []any {
	return []any{
		&WebhookEventModel{},
		&OrderRecordModel{},
		&ProductSyncRecordModel{},
		&StockLevelModel{},
		&WebhookLogModel{},
		&NotificationModel{},
		&APIRequestLogModel{},
	}
}

// ---------------------------------------------------------------------------
// WebhookEventModel
// ---------------------------------------------------------------------------

// WebhookEventModel is the persistence model for integration.WebhookEvent
type WebhookEventModel struct {
	ID             uuid.UUID                    `gorm:"type:uuid;primaryKey"`
	Marketplace    integration.MarketplaceCode  `gorm:"type:varchar(32);not null;index:idx_webhook_events_key,priority:1"`
	EventType      integration.EventType        `gorm:"type:varchar(64);not null;index"`
	WebhookID      string                       `gorm:"type:varchar(128)"`
	EventKey       string                       `gorm:"type:varchar(128);not null;index:idx_webhook_events_key,priority:2"`
	RawPayload     datatypes.JSON               `gorm:"not null"`
	ReceivedAt     time.Time                    `gorm:"not null;index"`
	SignatureValid bool                         `gorm:"not null"`
	Status         integration.ProcessingStatus `gorm:"type:varchar(16);not null;index"`
	StatusReason   string                       `gorm:"type:text"`
	RetryOf        *uuid.UUID                   `gorm:"type:uuid;index"`
	Attempt        int                          `gorm:"not null"`
	ProcessedAt    *time.Time
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent
func (m *WebhookEventModel) ToDomain() *integration.WebhookEvent {
	return &integration.WebhookEvent{
		ID:             m.ID,
		Marketplace:    m.Marketplace,
		EventType:      m.EventType,
		WebhookID:      m.WebhookID,
		EventKey:       m.EventKey,
		RawPayload:     []byte(m.RawPayload),
		ReceivedAt:     m.ReceivedAt,
		SignatureValid: m.SignatureValid,
		Status:         m.Status,
		StatusReason:   m.StatusReason,
		RetryOf:        m.RetryOf,
		Attempt:        m.Attempt,
		ProcessedAt:    m.ProcessedAt,
	}
}

// WebhookEventModelFromDomain creates a persistence model from a domain WebhookEvent
func WebhookEventModelFromDomain(e *integration.WebhookEvent) *WebhookEventModel {
	raw := e.RawPayload
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return &WebhookEventModel{
		ID:             e.ID,
		Marketplace:    e.Marketplace,
		EventType:      e.EventType,
		WebhookID:      e.WebhookID,
		EventKey:       e.EventKey,
		RawPayload:     datatypes.JSON(raw),
		ReceivedAt:     e.ReceivedAt,
		SignatureValid: e.SignatureValid,
		Status:         e.Status,
		StatusReason:   e.StatusReason,
		RetryOf:        e.RetryOf,
		Attempt:        e.Attempt,
		ProcessedAt:    e.ProcessedAt,
	}
}

// ---------------------------------------------------------------------------
// OrderRecordModel
// ---------------------------------------------------------------------------

// OrderRecordModel is the persistence model for integration.OrderRecord
type OrderRecordModel struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Marketplace        integration.MarketplaceCode `gorm:"type:varchar(32);not null;uniqueIndex:uk_order_records_key,priority:1"`
	ExternalOrderID    string                      `gorm:"type:varchar(128);not null;uniqueIndex:uk_order_records_key,priority:2"`
	LocalOrderID       *string                     `gorm:"type:varchar(64)"`
	Status             integration.OrderStatus     `gorm:"type:varchar(16);not null"`
	Items              datatypes.JSON
	LastAppliedEventID string    `gorm:"type:varchar(128)"`
	LastEventAt        time.Time `gorm:"not null"`
	Version            int       `gorm:"not null"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OrderRecordModel) TableName() string {
	return "order_records"
}

// ToDomain converts the persistence model to a domain OrderRecord
func (m *OrderRecordModel) ToDomain() *integration.OrderRecord {
	order := &integration.OrderRecord{
		ID:                 m.ID,
		Marketplace:        m.Marketplace,
		ExternalOrderID:    m.ExternalOrderID,
		LocalOrderID:       m.LocalOrderID,
		Status:             m.Status,
		Items:              make([]integration.OrderItem, 0),
		LastAppliedEventID: m.LastAppliedEventID,
		LastEventAt:        m.LastEventAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if len(m.Items) > 0 {
		var items []integration.OrderItem
		if err := json.Unmarshal(m.Items, &items); err == nil {
			order.Items = items
		}
	}
	return order
}

// OrderRecordModelFromDomain creates a persistence model from a domain OrderRecord
func OrderRecordModelFromDomain(o *integration.OrderRecord) *OrderRecordModel {
	items := o.Items
	if items == nil {
		items = []integration.OrderItem{}
	}
	encoded, _ := json.Marshal(items)
	return &OrderRecordModel{
		ID:                 o.ID,
		Marketplace:        o.Marketplace,
		ExternalOrderID:    o.ExternalOrderID,
		LocalOrderID:       o.LocalOrderID,
		Status:             o.Status,
		Items:              datatypes.JSON(encoded),
		LastAppliedEventID: o.LastAppliedEventID,
		LastEventAt:        o.LastEventAt,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// ProductSyncRecordModel
// ---------------------------------------------------------------------------

// ProductSyncRecordModel is the persistence model for integration.ProductSyncRecord
type ProductSyncRecordModel struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	ProductID          string                      `gorm:"type:varchar(64);index"`
	Marketplace        integration.MarketplaceCode `gorm:"type:varchar(32);not null;uniqueIndex:uk_product_sync_sku,priority:1"`
	MarketplaceSKU     string                      `gorm:"type:varchar(128);not null;uniqueIndex:uk_product_sync_sku,priority:2"`
	ApprovalStatus     integration.ApprovalStatus  `gorm:"type:varchar(16);not null"`
	RejectionReason    string                      `gorm:"type:text"`
	LastSyncedPrice    decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	LastSyncedStock    int                         `gorm:"not null"`
	PriceEventAt       time.Time
	StockEventAt       time.Time
	LastAppliedEventID string    `gorm:"type:varchar(128)"`
	Version            int       `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductSyncRecordModel) TableName() string {
	return "product_sync_records"
}

// ToDomain converts the persistence model to a domain ProductSyncRecord
func (m *ProductSyncRecordModel) ToDomain() *integration.ProductSyncRecord {
	return &integration.ProductSyncRecord{
		ID:                 m.ID,
		ProductID:          m.ProductID,
		Marketplace:        m.Marketplace,
		MarketplaceSKU:     m.MarketplaceSKU,
		ApprovalStatus:     m.ApprovalStatus,
		RejectionReason:    m.RejectionReason,
		LastSyncedPrice:    m.LastSyncedPrice,
		LastSyncedStock:    m.LastSyncedStock,
		PriceEventAt:       m.PriceEventAt,
		StockEventAt:       m.StockEventAt,
		LastAppliedEventID: m.LastAppliedEventID,
		Version:            m.Version,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ProductSyncRecordModelFromDomain creates a persistence model from a domain ProductSyncRecord
func ProductSyncRecordModelFromDomain(p *integration.ProductSyncRecord) *ProductSyncRecordModel {
	return &ProductSyncRecordModel{
		ID:                 p.ID,
		ProductID:          p.ProductID,
		Marketplace:        p.Marketplace,
		MarketplaceSKU:     p.MarketplaceSKU,
		ApprovalStatus:     p.ApprovalStatus,
		RejectionReason:    p.RejectionReason,
		LastSyncedPrice:    p.LastSyncedPrice,
		LastSyncedStock:    p.LastSyncedStock,
		PriceEventAt:       p.PriceEventAt,
		StockEventAt:       p.StockEventAt,
		LastAppliedEventID: p.LastAppliedEventID,
		Version:            p.Version,
		UpdatedAt:          p.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// StockLevelModel
// ---------------------------------------------------------------------------

// StockLevelModel is the persistence model for integration.StockLevel
type StockLevelModel struct {
	SKU       string    `gorm:"type:varchar(128);primaryKey"`
	Quantity  int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "stock_levels"
}

// ToDomain converts the persistence model to a domain StockLevel
func (m *StockLevelModel) ToDomain() *integration.StockLevel {
	return &integration.StockLevel{SKU: m.SKU, Quantity: m.Quantity, UpdatedAt: m.UpdatedAt}
}

// ---------------------------------------------------------------------------
// Audit models
// ---------------------------------------------------------------------------

// WebhookLogModel is the persistence model for integration.WebhookLog
type WebhookLogModel struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	WebhookEventID *uuid.UUID                  `gorm:"type:uuid;index"`
	Marketplace    integration.MarketplaceCode `gorm:"type:varchar(32);index:idx_webhook_logs_stats,priority:1"`
	EventType      integration.EventType       `gorm:"type:varchar(64);index:idx_webhook_logs_stats,priority:2"`
	Outcome        integration.LogOutcome      `gorm:"type:varchar(16);not null"`
	Message        string                      `gorm:"type:text"`
	DurationMs     int64
	CreatedAt      time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (WebhookLogModel) TableName() string {
	return "webhook_logs"
}

// ToDomain converts the persistence model to a domain WebhookLog
func (m *WebhookLogModel) ToDomain() integration.WebhookLog {
	return integration.WebhookLog{
		ID:             m.ID,
		WebhookEventID: m.WebhookEventID,
		Marketplace:    m.Marketplace,
		EventType:      m.EventType,
		Outcome:        m.Outcome,
		Message:        m.Message,
		DurationMs:     m.DurationMs,
		CreatedAt:      m.CreatedAt,
	}
}

// WebhookLogModelFromDomain creates a persistence model from a domain WebhookLog
func WebhookLogModelFromDomain(l *integration.WebhookLog) *WebhookLogModel {
	return &WebhookLogModel{
		ID:             l.ID,
		WebhookEventID: l.WebhookEventID,
		Marketplace:    l.Marketplace,
		EventType:      l.EventType,
		Outcome:        l.Outcome,
		Message:        l.Message,
		DurationMs:     l.DurationMs,
		CreatedAt:      l.CreatedAt,
	}
}

// NotificationModel is the persistence model for integration.NotificationRecord
type NotificationModel struct {
	ID             uuid.UUID                     `gorm:"type:uuid;primaryKey"`
	Marketplace    integration.MarketplaceCode   `gorm:"type:varchar(32);index"`
	Level          integration.NotificationLevel `gorm:"type:varchar(16);not null"`
	Title          string                        `gorm:"type:varchar(255);not null"`
	Message        string                        `gorm:"type:text"`
	WebhookEventID *uuid.UUID                    `gorm:"type:uuid;index"`
	CreatedAt      time.Time                     `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain NotificationRecord
func (m *NotificationModel) ToDomain() integration.NotificationRecord {
	return integration.NotificationRecord{
		ID:             m.ID,
		Marketplace:    m.Marketplace,
		Level:          m.Level,
		Title:          m.Title,
		Message:        m.Message,
		WebhookEventID: m.WebhookEventID,
		CreatedAt:      m.CreatedAt,
	}
}

// NotificationModelFromDomain creates a persistence model from a domain NotificationRecord
func NotificationModelFromDomain(n *integration.NotificationRecord) *NotificationModel {
	return &NotificationModel{
		ID:             n.ID,
		Marketplace:    n.Marketplace,
		Level:          n.Level,
		Title:          n.Title,
		Message:        n.Message,
		WebhookEventID: n.WebhookEventID,
		CreatedAt:      n.CreatedAt,
	}
}

// APIRequestLogModel is the persistence model for integration.APIRequestLog
type APIRequestLogModel struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Marketplace integration.MarketplaceCode `gorm:"type:varchar(32);index"`
	Endpoint    string                      `gorm:"type:varchar(64);not null"`
	Params      datatypes.JSON
	Success     bool                  `gorm:"not null"`
	StatusCode  int                   `gorm:"not null"`
	DurationMs  float64               `gorm:"not null"`
	CacheHit    bool                  `gorm:"not null"`
	RateLimited bool                  `gorm:"not null"`
	CircuitOpen bool                  `gorm:"not null"`
	ErrorKind   integration.ErrorKind `gorm:"type:varchar(32)"`
	CreatedAt   time.Time             `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (APIRequestLogModel) TableName() string {
	return "api_request_logs"
}

// ToDomain converts the persistence model to a domain APIRequestLog
func (m *APIRequestLogModel) ToDomain() integration.APIRequestLog {
	log := integration.APIRequestLog{
		ID:          m.ID,
		Marketplace: m.Marketplace,
		Endpoint:    m.Endpoint,
		Success:     m.Success,
		StatusCode:  m.StatusCode,
		DurationMs:  m.DurationMs,
		CacheHit:    m.CacheHit,
		RateLimited: m.RateLimited,
		CircuitOpen: m.CircuitOpen,
		ErrorKind:   m.ErrorKind,
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Params) > 0 {
		_ = json.Unmarshal(m.Params, &log.Params)
	}
	return log
}

// APIRequestLogModelFromDomain creates a persistence model from a domain APIRequestLog
func APIRequestLogModelFromDomain(l *integration.APIRequestLog) *APIRequestLogModel {
	params := l.Params
	if params == nil {
		params = map[string]string{}
	}
	encoded, _ := json.Marshal(params)
	return &APIRequestLogModel{
		ID:          l.ID,
		Marketplace: l.Marketplace,
		Endpoint:    l.Endpoint,
		Params:      datatypes.JSON(encoded),
		Success:     l.Success,
		StatusCode:  l.StatusCode,
		DurationMs:  l.DurationMs,
		CacheHit:    l.CacheHit,
		RateLimited: l.RateLimited,
		CircuitOpen: l.CircuitOpen,
		ErrorKind:   l.ErrorKind,
		CreatedAt:   l.CreatedAt,
	}
}
