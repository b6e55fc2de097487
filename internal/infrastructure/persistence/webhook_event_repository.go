package persistence

import (
	"context"
	"errors"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWebhookEventRepository implements WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Create stores a new delivery
func (r *GormWebhookEventRepository) Create(ctx context.Context, event *integration.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(models.WebhookEventModelFromDomain(event)).Error
}

// Finish persists the terminal status of a pending delivery
func (r *GormWebhookEventRepository) Finish(ctx context.Context, event *integration.WebhookEvent) error {
	result := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("id = ? AND status = ?", event.ID, integration.ProcessingStatusPending).
		Updates(map[string]any{
			"status":        event.Status,
			"status_reason": event.StatusReason,
			"processed_at":  event.ProcessedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrTerminalStatus
	}
	return nil
}

// FindByID finds a delivery by its ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountByEventKey counts deliveries sharing a logical event key
func (r *GormWebhookEventRepository) CountByEventKey(ctx context.Context, marketplace integration.MarketplaceCode, eventKey string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("marketplace = ? AND event_key = ?", marketplace, eventKey).
		Count(&count).Error
	return count, err
}

var _ integration.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
