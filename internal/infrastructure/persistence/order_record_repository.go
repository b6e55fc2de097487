package persistence

import (
	"context"
	"errors"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRecordRepository implements OrderRecordRepository using GORM
type GormOrderRecordRepository struct {
	db *gorm.DB
}

// NewGormOrderRecordRepository creates a new GormOrderRecordRepository
func NewGormOrderRecordRepository(db *gorm.DB) *GormOrderRecordRepository {
	return &GormOrderRecordRepository{db: db}
}

// FindByExternalID finds an order by its idempotency key
func (r *GormOrderRecordRepository) FindByExternalID(ctx context.Context, marketplace integration.MarketplaceCode, externalOrderID string) (*integration.OrderRecord, error) {
	var model models.OrderRecordModel
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND external_order_id = ?", marketplace, externalOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create stores a new order record
func (r *GormOrderRecordRepository) Create(ctx context.Context, order *integration.OrderRecord) error {
	return r.db.WithContext(ctx).Create(models.OrderRecordModelFromDomain(order)).Error
}

// Update stores a changed order if the stored version still equals expectedVersion
func (r *GormOrderRecordRepository) Update(ctx context.Context, order *integration.OrderRecord, expectedVersion int) error {
	model := models.OrderRecordModelFromDomain(order)
	result := r.db.WithContext(ctx).
		Model(&models.OrderRecordModel{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(map[string]any{
			"status":                model.Status,
			"local_order_id":        model.LocalOrderID,
			"items":                 model.Items,
			"last_applied_event_id": model.LastAppliedEventID,
			"last_event_at":         model.LastEventAt,
			"version":               model.Version,
			"updated_at":            model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrStaleVersion
	}
	return nil
}

// List returns the most recently updated orders of a marketplace
func (r *GormOrderRecordRepository) List(ctx context.Context, marketplace integration.MarketplaceCode, limit int) ([]*integration.OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.OrderRecordModel
	query := r.db.WithContext(ctx).Order("updated_at DESC").Limit(limit)
	if marketplace != "" {
		query = query.Where("marketplace = ?", marketplace)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]*integration.OrderRecord, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}
	return orders, nil
}

var _ integration.OrderRecordRepository = (*GormOrderRecordRepository)(nil)
