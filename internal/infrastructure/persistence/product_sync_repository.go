package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductSyncRepository implements ProductSyncRepository using GORM
type GormProductSyncRepository struct {
	db *gorm.DB
}

// NewGormProductSyncRepository creates a new GormProductSyncRepository
func NewGormProductSyncRepository(db *gorm.DB) *GormProductSyncRepository {
	return &GormProductSyncRepository{db: db}
}

// FindBySKU finds a sync record by marketplace SKU
func (r *GormProductSyncRepository) FindBySKU(ctx context.Context, marketplace integration.MarketplaceCode, sku string) (*integration.ProductSyncRecord, error) {
	var model models.ProductSyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND marketplace_sku = ?", marketplace, sku).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create stores a new sync record
func (r *GormProductSyncRepository) Create(ctx context.Context, record *integration.ProductSyncRecord) error {
	return r.db.WithContext(ctx).Create(models.ProductSyncRecordModelFromDomain(record)).Error
}

// Update stores a changed record if the stored version still equals expectedVersion
func (r *GormProductSyncRepository) Update(ctx context.Context, record *integration.ProductSyncRecord, expectedVersion int) error {
	model := models.ProductSyncRecordModelFromDomain(record)
	result := r.db.WithContext(ctx).
		Model(&models.ProductSyncRecordModel{}).
		Where("id = ? AND version = ?", record.ID, expectedVersion).
		Updates(map[string]any{
			"product_id":            model.ProductID,
			"approval_status":       model.ApprovalStatus,
			"rejection_reason":      model.RejectionReason,
			"last_synced_price":     model.LastSyncedPrice,
			"last_synced_stock":     model.LastSyncedStock,
			"price_event_at":        model.PriceEventAt,
			"stock_event_at":        model.StockEventAt,
			"last_applied_event_id": model.LastAppliedEventID,
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

var _ integration.ProductSyncRepository = (*GormProductSyncRepository)(nil)

// GormStockLevelRepository implements StockLevelRepository using GORM
type GormStockLevelRepository struct {
	db *gorm.DB
}

// NewGormStockLevelRepository creates a new GormStockLevelRepository
func NewGormStockLevelRepository(db *gorm.DB) *GormStockLevelRepository {
	return &GormStockLevelRepository{db: db}
}

// Adjust atomically adds delta to the SKU's quantity, inserting the row if missing
func (r *GormStockLevelRepository) Adjust(ctx context.Context, sku string, delta int) (*integration.StockLevel, error) {
	now := time.Now().UTC()
	row := models.StockLevelModel{SKU: sku, Quantity: delta, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("stock_levels.quantity + ?", delta),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.FindBySKU(ctx, sku)
}

// FindBySKU returns the current stock level
func (r *GormStockLevelRepository) FindBySKU(ctx context.Context, sku string) (*integration.StockLevel, error) {
	var model models.StockLevelModel
	if err := r.db.WithContext(ctx).First(&model, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ integration.StockLevelRepository = (*GormStockLevelRepository)(nil)
