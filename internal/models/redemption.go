package models

import "time"

// RedemptionStatus is the lifecycle state of a redemption.
type RedemptionStatus string

// Redemption states. Used and expired are terminal.
const (
	RedemptionActive  RedemptionStatus = "active"
	RedemptionUsed    RedemptionStatus = "used"
	RedemptionExpired RedemptionStatus = "expired"
)

// Redemption records points exchanged for an offer.
type Redemption struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID.

	UserID  uint64 `gorm:"not null;index"` // Redeeming user.
	OfferID uint64 `gorm:"not null;index"` // Redeemed offer.

	PointsUsed     int64 `gorm:"not null"`           // Points debited.
	CogsValueCents int64 `gorm:"not null;default:0"` // Offer COGS at redemption time.

	Status         RedemptionStatus `gorm:"type:varchar(16);not null;index"` // Lifecycle state.
	RedeemedAt     time.Time        `gorm:"not null;index"`                  // Creation time.
	ExpiresAt      *time.Time       `gorm:"index"`                           // Expiry of an unused redemption.
	UsedAt         *time.Time       // Consumption time.
	OrderReference string           `gorm:"type:text"` // Order that consumed it.

	Offer RewardOffer `gorm:"foreignKey:OfferID"` // Offer relation.
}
