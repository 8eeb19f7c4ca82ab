package db

import (
	"fmt"

	"github.com/larkspur-kitchen/rewards/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the rewards schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Setting{},
		&models.LoyaltyProfile{},
		&models.PointsTransaction{},
		&models.RewardOffer{},
		&models.Redemption{},
		&models.Order{},
		&models.OrderStatusEvent{},
		&models.ProcessedEvent{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
