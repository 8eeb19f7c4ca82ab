package redemption

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"gorm.io/gorm"
)

// OfferInput carries the editable fields of an offer. Nil pointers leave a field unchanged on update.
type OfferInput struct {
	Name                *string    `json:"name"`
	Description         *string    `json:"description"`
	PointsCost          *int64     `json:"points_cost"`
	IsActive            *bool      `json:"is_active"`
	ValidFrom           *time.Time `json:"valid_from"`
	ValidUntil          *time.Time `json:"valid_until"`
	MaxRedemptions      *int64     `json:"max_redemptions"`
	CogsValueCents      *int64     `json:"cogs_value_cents"`
	RedemptionValidDays *int       `json:"redemption_valid_days"`
}

// Catalog manages reward offers.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog constructs a Catalog.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Available lists offers redeemable at now, cheapest first.
func (c *Catalog) Available(ctx context.Context, now time.Time) ([]models.RewardOffer, error) {
	var rows []models.RewardOffer
	if errFind := c.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("points_cost ASC, id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, apperr.Internal("list offers failed", errFind)
	}
	out := rows[:0]
	for i := range rows {
		if rows[i].AvailableAt(now) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

// All lists every offer for administration.
func (c *Catalog) All(ctx context.Context) ([]models.RewardOffer, error) {
	var rows []models.RewardOffer
	if errFind := c.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, apperr.Internal("list offers failed", errFind)
	}
	return rows, nil
}

// Create validates in and inserts a new offer. Offers are active unless stated otherwise.
func (c *Catalog) Create(ctx context.Context, in OfferInput) (models.RewardOffer, error) {
	offer := models.RewardOffer{IsActive: true, RedemptionValidDays: 30}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return models.RewardOffer{}, apperr.Validation("missing name")
	}
	if in.PointsCost == nil {
		return models.RewardOffer{}, apperr.Validation("missing points_cost")
	}
	if errApply := applyOfferInput(&offer, in); errApply != nil {
		return models.RewardOffer{}, errApply
	}
	if errCreate := c.db.WithContext(ctx).Create(&offer).Error; errCreate != nil {
		return models.RewardOffer{}, apperr.Internal("create offer failed", errCreate)
	}
	return offer, nil
}

// Update applies the non-nil fields of in to offer id.
func (c *Catalog) Update(ctx context.Context, id uint64, in OfferInput) (models.RewardOffer, error) {
	var offer models.RewardOffer
	if errFind := c.db.WithContext(ctx).Where("id = ?", id).Take(&offer).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.RewardOffer{}, ErrOfferNotFound
		}
		return models.RewardOffer{}, apperr.Internal("load offer failed", errFind)
	}
	if errApply := applyOfferInput(&offer, in); errApply != nil {
		return models.RewardOffer{}, errApply
	}
	// current_redemptions is owned by Redeem and never written here.
	if errSave := c.db.WithContext(ctx).
		Model(&models.RewardOffer{}).
		Where("id = ?", offer.ID).
		Updates(map[string]any{
			"name":                  offer.Name,
			"description":           offer.Description,
			"points_cost":           offer.PointsCost,
			"is_active":             offer.IsActive,
			"valid_from":            offer.ValidFrom,
			"valid_until":           offer.ValidUntil,
			"max_redemptions":       offer.MaxRedemptions,
			"cogs_value_cents":      offer.CogsValueCents,
			"redemption_valid_days": offer.RedemptionValidDays,
			"updated_at":            time.Now().UTC(),
		}).Error; errSave != nil {
		return models.RewardOffer{}, apperr.Internal("update offer failed", errSave)
	}
	return offer, nil
}

func applyOfferInput(offer *models.RewardOffer, in OfferInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("name cannot be empty")
		}
		offer.Name = name
	}
	if in.Description != nil {
		offer.Description = strings.TrimSpace(*in.Description)
	}
	if in.PointsCost != nil {
		if *in.PointsCost <= 0 {
			return apperr.Validation("points_cost must be positive")
		}
		offer.PointsCost = *in.PointsCost
	}
	if in.IsActive != nil {
		offer.IsActive = *in.IsActive
	}
	if in.ValidFrom != nil {
		offer.ValidFrom = in.ValidFrom
	}
	if in.ValidUntil != nil {
		offer.ValidUntil = in.ValidUntil
	}
	if offer.ValidFrom != nil && offer.ValidUntil != nil && !offer.ValidUntil.After(*offer.ValidFrom) {
		return apperr.Validation("valid_until must be after valid_from")
	}
	if in.MaxRedemptions != nil {
		if *in.MaxRedemptions < 0 {
			return apperr.Validation("max_redemptions cannot be negative")
		}
		offer.MaxRedemptions = *in.MaxRedemptions
	}
	if in.CogsValueCents != nil {
		if *in.CogsValueCents < 0 {
			return apperr.Validation("cogs_value_cents cannot be negative")
		}
		offer.CogsValueCents = *in.CogsValueCents
	}
	if in.RedemptionValidDays != nil {
		if *in.RedemptionValidDays <= 0 {
			return apperr.Validation("redemption_valid_days must be positive")
		}
		offer.RedemptionValidDays = *in.RedemptionValidDays
	}
	return nil
}
