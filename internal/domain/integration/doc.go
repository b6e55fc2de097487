// Package integration contains the Marketplace Integration bounded context.
// It covers inbound marketplace webhooks and outbound marketplace API calls.
//
// Key concepts:
//   - WebhookEvent: a received marketplace notification and its processing status
//   - OrderRecord: local projection of a marketplace order, keyed by (marketplace, externalOrderId)
//   - ProductSyncRecord: local view of a product's moderation, price and stock on a marketplace
//   - StockLevel: local inventory counter decremented by marketplace orders
//   - WebhookLog / NotificationRecord / APIRequestLog: append-only audit records
//   - MarketplaceAdapter: port implemented per marketplace for outbound calls
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
