package integration

import (
	"context"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// TransactionScope provides transactional access to the reconciliation repositories.
// All repository operations inside fn commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error (or panics) the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories of one transaction.
// Only these repositories may be used inside Execute.
type TransactionalRepositories interface {
	Events() integration.WebhookEventRepository
	Orders() integration.OrderRecordRepository
	Products() integration.ProductSyncRepository
	Stock() integration.StockLevelRepository
	WebhookLogs() integration.WebhookLogRepository
	Notifications() integration.NotificationRepository
}
