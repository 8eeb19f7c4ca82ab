package models

import (
	"encoding/json"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/orderstatus"
	"gorm.io/datatypes"
)

// OrderItem is one purchased line.
type OrderItem struct {
	Label       string `json:"label"`
	Quantity    int64  `json:"quantity"`
	AmountCents int64  `json:"amount_cents"` // Line total.
}

// Order is a paid order materialized from a payment event.
type Order struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID.

	UserID        *uint64 `gorm:"index"`     // Linked user, when the email resolved.
	CustomerEmail string  `gorm:"type:text"` // Email reported by the gateway.

	Status        orderstatus.Status    `gorm:"type:varchar(32);not null;index"` // Lifecycle state.
	OrderType     orderstatus.OrderType `gorm:"type:varchar(16);not null"`       // Delivery or pickup.
	PaymentStatus string                `gorm:"type:varchar(16);not null"`       // Gateway payment state.

	Items datatypes.JSON `gorm:"type:jsonb"` // []OrderItem.

	SubtotalCents int64 `gorm:"not null;default:0"` // Sum of line items.
	EligibleCents int64 `gorm:"not null;default:0"` // Point-earning part of the subtotal.
	DiscountCents int64 `gorm:"not null;default:0"` // Discounts applied, including volunteer discount.
	TotalCents    int64 `gorm:"not null;default:0"` // Amount charged.
	PointsEarned  int64 `gorm:"not null;default:0"` // Points accrued for this order.

	AccrualPending bool `gorm:"not null;default:false"` // Paid, but no itemized event has arrived yet.

	PickupCodeHash string `gorm:"type:text"` // bcrypt hash of the pickup code.

	PaymentReference *string `gorm:"type:varchar(191);uniqueIndex"` // Gateway payment id.
	SourceEventID    string  `gorm:"type:varchar(191);not null;index"` // Event that created the order.

	StatusHistory []OrderStatusEvent `gorm:"foreignKey:OrderID"` // Append-only status history.

	CreatedAt time.Time `gorm:"not null;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null"`       // Last update timestamp.
}

// LineItems decodes the stored items.
func (o *Order) LineItems() []OrderItem {
	if len(o.Items) == 0 {
		return nil
	}
	var items []OrderItem
	if errDecode := json.Unmarshal(o.Items, &items); errDecode != nil {
		return nil
	}
	return items
}

// OrderStatusEvent is one append-only status history entry.
type OrderStatusEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID   string             `gorm:"type:varchar(36);not null;index"` // Owning order.
	Status    orderstatus.Status `gorm:"type:varchar(32);not null"`       // State entered.
	Reason    string             `gorm:"type:text"`                       // Optional caller reason.
	ActorRole string             `gorm:"type:varchar(16)"`                // Role that made the change.

	CreatedAt time.Time `gorm:"not null"` // Transition time.
}
