package persistence

import (
	"context"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// applyLogFilter scopes an audit query by marketplace, event type and time
func applyLogFilter(query *gorm.DB, filter integration.LogFilter, withEventType bool) *gorm.DB {
	if filter.Marketplace != "" {
		query = query.Where("marketplace = ?", filter.Marketplace)
	}
	if withEventType && filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	return query
}

// ---------------------------------------------------------------------------
// Webhook logs
// ---------------------------------------------------------------------------

// GormWebhookLogRepository implements WebhookLogRepository using GORM
type GormWebhookLogRepository struct {
	db *gorm.DB
}

// NewGormWebhookLogRepository creates a new GormWebhookLogRepository
func NewGormWebhookLogRepository(db *gorm.DB) *GormWebhookLogRepository {
	return &GormWebhookLogRepository{db: db}
}

// Append stores a log entry
func (r *GormWebhookLogRepository) Append(ctx context.Context, log *integration.WebhookLog) error {
	return r.db.WithContext(ctx).Create(models.WebhookLogModelFromDomain(log)).Error
}

// List returns the newest entries matching filter
func (r *GormWebhookLogRepository) List(ctx context.Context, filter integration.LogFilter) ([]integration.WebhookLog, error) {
	filter.Normalize()
	var rows []models.WebhookLogModel
	query := applyLogFilter(r.db.WithContext(ctx).Model(&models.WebhookLogModel{}), filter, true)
	if err := query.Order("created_at DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	logs := make([]integration.WebhookLog, len(rows))
	for i := range rows {
		logs[i] = rows[i].ToDomain()
	}
	return logs, nil
}

// Stats counts entries per marketplace, event type and outcome
func (r *GormWebhookLogRepository) Stats(ctx context.Context, filter integration.LogFilter) ([]integration.EventTypeStat, error) {
	var stats []integration.EventTypeStat
	query := applyLogFilter(r.db.WithContext(ctx).Model(&models.WebhookLogModel{}), filter, true)
	err := query.
		Select("marketplace, event_type, outcome, COUNT(*) AS count").
		Group("marketplace, event_type, outcome").
		Order("marketplace, event_type, outcome").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteBefore removes entries older than before
func (r *GormWebhookLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.WebhookLogModel{})
	return result.RowsAffected, result.Error
}

var _ integration.WebhookLogRepository = (*GormWebhookLogRepository)(nil)

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

// GormNotificationRepository implements NotificationRepository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Append stores a notification
func (r *GormNotificationRepository) Append(ctx context.Context, n *integration.NotificationRecord) error {
	return r.db.WithContext(ctx).Create(models.NotificationModelFromDomain(n)).Error
}

// List returns the newest notifications matching filter
func (r *GormNotificationRepository) List(ctx context.Context, filter integration.LogFilter) ([]integration.NotificationRecord, error) {
	filter.Normalize()
	var rows []models.NotificationModel
	query := applyLogFilter(r.db.WithContext(ctx).Model(&models.NotificationModel{}), filter, false)
	if err := query.Order("created_at DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.NotificationRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// DeleteBefore removes notifications older than before
func (r *GormNotificationRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.NotificationModel{})
	return result.RowsAffected, result.Error
}

var _ integration.NotificationRepository = (*GormNotificationRepository)(nil)

// ---------------------------------------------------------------------------
// API request logs
// ---------------------------------------------------------------------------

// GormAPIRequestLogRepository implements APIRequestLogRepository using GORM
type GormAPIRequestLogRepository struct {
	db *gorm.DB
}

// NewGormAPIRequestLogRepository creates a new GormAPIRequestLogRepository
func NewGormAPIRequestLogRepository(db *gorm.DB) *GormAPIRequestLogRepository {
	return &GormAPIRequestLogRepository{db: db}
}

// Append stores an outbound call record
func (r *GormAPIRequestLogRepository) Append(ctx context.Context, log *integration.APIRequestLog) error {
	return r.db.WithContext(ctx).Create(models.APIRequestLogModelFromDomain(log)).Error
}

// List returns the newest call records matching filter
func (r *GormAPIRequestLogRepository) List(ctx context.Context, filter integration.LogFilter) ([]integration.APIRequestLog, error) {
	filter.Normalize()
	var rows []models.APIRequestLogModel
	query := applyLogFilter(r.db.WithContext(ctx).Model(&models.APIRequestLogModel{}), filter, false)
	if err := query.Order("created_at DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.APIRequestLog, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// DeleteBefore removes call records older than before
func (r *GormAPIRequestLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.APIRequestLogModel{})
	return result.RowsAffected, result.Error
}

var _ integration.APIRequestLogRepository = (*GormAPIRequestLogRepository)(nil)
