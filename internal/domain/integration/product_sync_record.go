package integration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ApprovalStatus of a product listing on a marketplace
// ---------------------------------------------------------------------------

// ApprovalStatus is the marketplace moderation status of a product listing
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// IsValid returns true if the status is valid
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of ApprovalStatus
func (s ApprovalStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// ProductSyncRecord
// ---------------------------------------------------------------------------

// ProductSyncRecord tracks a product listing on one marketplace.
// (Marketplace, MarketplaceSKU) is unique.
type ProductSyncRecord struct {
	// ID is the surrogate key
	ID uuid.UUID
	// ProductID is the back office product identifier (optional)
	ProductID string
	// Marketplace is the marketplace the listing lives on
	Marketplace MarketplaceCode
	// MarketplaceSKU is the SKU on the marketplace
	MarketplaceSKU string
	// ApprovalStatus is the moderation status
	ApprovalStatus ApprovalStatus
	// RejectionReason is set when ApprovalStatus is Rejected
	RejectionReason string
	// LastSyncedPrice is the last price reported by the marketplace
	LastSyncedPrice decimal.Decimal
	// LastSyncedStock is the last stock reported by the marketplace
	LastSyncedStock int
	// PriceEventAt is the event time of the applied price
	PriceEventAt time.Time
	// StockEventAt is the event time of the applied stock
	StockEventAt time.Time
	// LastAppliedEventID is the event key of the last applied event
	LastAppliedEventID string
	// Version increments on every applied change
	Version int
	// UpdatedAt is when the record was last changed
	UpdatedAt time.Time
}

// NewProductSyncRecord creates a Pending record with no synced price or stock
func NewProductSyncRecord(marketplace MarketplaceCode, sku, productID string) (*ProductSyncRecord, error) {
	if !marketplace.IsValid() {
		return nil, fmt.Errorf("%w: invalid marketplace %q", ErrValidation, marketplace)
	}
	if strings.TrimSpace(sku) == "" {
		return nil, fmt.Errorf("%w: marketplace sku is required", ErrValidation)
	}
	return &ProductSyncRecord{
		ID:              uuid.New(),
		ProductID:       productID,
		Marketplace:     marketplace,
		MarketplaceSKU:  sku,
		ApprovalStatus:  ApprovalStatusPending,
		LastSyncedPrice: decimal.Zero,
		UpdatedAt:       time.Now().UTC(),
	}, nil
}

// ApplyApproval sets the moderation outcome. Rejection stores the reason;
// approval clears it. Returns false when nothing changed.
func (p *ProductSyncRecord) ApplyApproval(status ApprovalStatus, reason, eventKey string) (bool, error) {
	if !status.IsValid() {
		return false, fmt.Errorf("%w: invalid approval status %q", ErrValidation, status)
	}
	if status != ApprovalStatusRejected {
		reason = ""
	}
	if p.ApprovalStatus == status && p.RejectionReason == reason {
		return false, nil
	}
	p.ApprovalStatus = status
	p.RejectionReason = reason
	p.touch(eventKey)
	return true, nil
}

// ApplyPrice overwrites the synced price when eventAt is strictly newer than
// the last applied price event.
func (p *ProductSyncRecord) ApplyPrice(price decimal.Decimal, eventAt time.Time, eventKey string) (bool, error) {
	if price.IsNegative() {
		return false, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if !eventAt.After(p.PriceEventAt) {
		return false, nil
	}
	p.LastSyncedPrice = price
	p.PriceEventAt = eventAt
	p.touch(eventKey)
	return true, nil
}

// ApplyStock overwrites the synced stock when eventAt is strictly newer than
// the last applied stock event.
func (p *ProductSyncRecord) ApplyStock(quantity int, eventAt time.Time, eventKey string) (bool, error) {
	if quantity < 0 {
		return false, fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	if !eventAt.After(p.StockEventAt) {
		return false, nil
	}
	p.LastSyncedStock = quantity
	p.StockEventAt = eventAt
	p.touch(eventKey)
	return true, nil
}

func (p *ProductSyncRecord) touch(eventKey string) {
	p.LastAppliedEventID = eventKey
	p.Version++
	p.UpdatedAt = time.Now().UTC()
}

// ---------------------------------------------------------------------------
// StockLevel
// ---------------------------------------------------------------------------

// StockLevel is the local on-hand quantity of a SKU
type StockLevel struct {
	SKU       string
	Quantity  int
	UpdatedAt time.Time
}

// IsLow reports whether the quantity is at or below the threshold
func (s *StockLevel) IsLow(threshold int) bool {
	return s.Quantity <= threshold
}
