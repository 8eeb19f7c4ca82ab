package models

import "time"

// RewardOffer is a catalog item that can be bought with points.
type RewardOffer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null"` // Display name.
	Description string `gorm:"type:text"`          // Optional details.
	PointsCost  int64  `gorm:"not null"`           // Points debited per redemption.

	IsActive   bool       `gorm:"not null"` // Whether the offer is redeemable.
	ValidFrom  *time.Time // Start of the redemption window.
	ValidUntil *time.Time // End of the redemption window.

	MaxRedemptions     int64 `gorm:"not null;default:0"` // Capacity; zero means unlimited.
	CurrentRedemptions int64 `gorm:"not null;default:0"` // Monotonic counter.

	CogsValueCents      int64 `gorm:"not null;default:0"`  // Cost of goods to fulfil one redemption.
	RedemptionValidDays int   `gorm:"not null;default:30"` // Lifetime of an unused redemption.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// AvailableAt reports whether the offer can be redeemed at now.
func (o *RewardOffer) AvailableAt(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	if o.ValidFrom != nil && now.Before(*o.ValidFrom) {
		return false
	}
	if o.ValidUntil != nil && !now.Before(*o.ValidUntil) {
		return false
	}
	if o.MaxRedemptions > 0 && o.CurrentRedemptions >= o.MaxRedemptions {
		return false
	}
	return true
}
