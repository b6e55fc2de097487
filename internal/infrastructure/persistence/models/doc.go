// Package models contains GORM persistence models for the integration tables.
// Domain entities in internal/domain/integration carry no ORM tags; each model
// converts to and from its entity with ToDomain / FromDomain.
//
// Tables:
//   - webhook_events: every inbound delivery and its processing status
//   - order_records, product_sync_records, stock_levels: reconciled state
//   - webhook_logs, notifications, api_request_logs: append-only audit trail
package models
