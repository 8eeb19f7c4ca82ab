package models

import "time"

// ProcessedEvent marks a payment-gateway event as handled.
//
// It is written in the same transaction as the order and its accrual entry.
type ProcessedEvent struct {
	ExternalEventID string    `gorm:"type:varchar(191);primaryKey"` // Gateway event id.
	EventType       string    `gorm:"type:varchar(64);not null"`    // Gateway event type.
	OrderID         string    `gorm:"type:varchar(36);not null;index"`
	ProcessedAt     time.Time `gorm:"not null"`
}
