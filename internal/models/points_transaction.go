package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionType classifies a ledger entry.
type TransactionType string

// Ledger entry types.
const (
	TransactionPurchase        TransactionType = "purchase"
	TransactionRedemption      TransactionType = "redemption"
	TransactionSpinCost        TransactionType = "spin_cost"
	TransactionSpinWin         TransactionType = "spin_win"
	TransactionExpiry          TransactionType = "expiry"
	TransactionAdminAdjustment TransactionType = "admin_adjustment"
)

// Valid reports whether t is a declared entry type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionRedemption, TransactionSpinCost,
		TransactionSpinWin, TransactionExpiry, TransactionAdminAdjustment:
		return true
	}
	return false
}

// PointsTransaction is an immutable ledger entry. Rows are inserted and never updated.
type PointsTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64          `gorm:"not null;index:idx_points_tx_user_created,priority:1"` // Owning user.
	Type   TransactionType `gorm:"type:varchar(32);not null;index"`                      // Entry type.

	Points       int64 `gorm:"not null"` // Signed amount; negative for debits.
	BalanceAfter int64 `gorm:"not null"` // Profile balance once this entry applied.

	Description string            `gorm:"type:text"`  // Human-readable reason.
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"` // Source event, order, offer and reason references.

	CreatedAt time.Time  `gorm:"not null;index:idx_points_tx_user_created,priority:2;index"` // Append time.
	ExpiresAt *time.Time `gorm:"index"`                                                      // Set for purchase credits only.
}
