package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a runtime tunable stored as JSON, keyed by name.
type Setting struct {
	Key       string         `gorm:"type:varchar(255);primaryKey"` // Tunable name.
	Value     datatypes.JSON `gorm:"type:jsonb"`                   // JSON-encoded value.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"`      // Last update timestamp.
}
