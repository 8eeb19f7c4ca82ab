package models

import "time"

// User is a local account that payment events are linked to by email.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Login and receipt email, stored lowercase.
	Name     string `gorm:"type:text"`                      // Display name.
	Disabled bool   `gorm:"not null;default:false"`         // Disabled accounts are not linked to orders.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
