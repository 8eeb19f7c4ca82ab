package models

import "time"

// Tier is the customer's loyalty tier.
type Tier string

// Loyalty tiers.
const (
	TierRegular   Tier = "regular"
	TierSenior    Tier = "senior"
	TierVolunteer Tier = "volunteer"
)

// Valid reports whether t is a declared tier.
func (t Tier) Valid() bool {
	switch t {
	case TierRegular, TierSenior, TierVolunteer:
		return true
	}
	return false
}

// LoyaltyProfile is the cached projection of a user's ledger.
//
// Balance fields are written only by ledger.Apply inside the same transaction
// that appends the matching ledger entry.
type LoyaltyProfile struct {
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"` // Owning user.

	CurrentPoints int64 `gorm:"not null;default:0"` // Spendable balance.
	TotalEarned   int64 `gorm:"not null;default:0"` // Sum of all credits.
	TotalRedeemed int64 `gorm:"not null;default:0"` // Sum of non-expiry debits.
	TotalExpired  int64 `gorm:"not null;default:0"` // Sum of expiry debits.

	Tier       Tier       `gorm:"type:varchar(32);not null;default:'regular'"` // Loyalty tier.
	CanSpin    bool       `gorm:"not null"`                                   // Spin feature flag.
	LastSpinAt *time.Time // Time of the most recent spin.

	Version int64 `gorm:"not null;default:0"` // Optimistic concurrency counter.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null"`                // Last mutation timestamp.
}

// Consistent reports whether the cached balance matches its totals.
func (p *LoyaltyProfile) Consistent() bool {
	return p.CurrentPoints == p.TotalEarned-p.TotalRedeemed-p.TotalExpired
}
