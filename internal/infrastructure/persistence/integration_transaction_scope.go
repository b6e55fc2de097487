package persistence

import (
	"context"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appintegration.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Events() integration.WebhookEventRepository {
	return NewGormWebhookEventRepository(r.tx)
}

func (r *gormTransactionalRepositories) Orders() integration.OrderRecordRepository {
	return NewGormOrderRecordRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() integration.ProductSyncRepository {
	return NewGormProductSyncRepository(r.tx)
}

func (r *gormTransactionalRepositories) Stock() integration.StockLevelRepository {
	return NewGormStockLevelRepository(r.tx)
}

func (r *gormTransactionalRepositories) WebhookLogs() integration.WebhookLogRepository {
	return NewGormWebhookLogRepository(r.tx)
}

func (r *gormTransactionalRepositories) Notifications() integration.NotificationRepository {
	return NewGormNotificationRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appintegration.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appintegration.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
