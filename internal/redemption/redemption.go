// Package redemption exchanges points for catalog offers.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrOfferUnavailable is returned for inactive, out-of-window or sold-out offers.
	ErrOfferUnavailable = apperr.Conflict("offer unavailable")
	// ErrOfferNotFound is returned when the offer id does not exist.
	ErrOfferNotFound = apperr.NotFound("offer not found")
	// ErrRedemptionNotFound is returned when the redemption does not exist or belongs to another user.
	ErrRedemptionNotFound = apperr.NotFound("redemption not found")
)

// Service redeems offers and manages the redemption lifecycle.
type Service struct {
	db    *gorm.DB
	store *ledger.Store
	now   func() time.Time

	// offerLoaded runs inside the transaction once the offer passed its
	// availability check. Tests use it to interleave a competing claim.
	offerLoaded func(tx *gorm.DB)
}

// NewService constructs a Service. store may be nil when no notifications are needed.
func NewService(db *gorm.DB, store *ledger.Store) *Service {
	return &Service{db: db, store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Result is the outcome of a successful redemption.
type Result struct {
	Redemption     models.Redemption
	PointsDeducted int64
	Profile        models.LoyaltyProfile
}

// Redeem debits the offer cost from userID and creates an active redemption.
// Offer capacity, the ledger debit and the redemption row commit together.
func (s *Service) Redeem(ctx context.Context, userID, offerID uint64) (Result, error) {
	if userID == 0 {
		return Result{}, apperr.Validation("user id is required")
	}
	if offerID == 0 {
		return Result{}, apperr.Validation("offer_id is required")
	}

	var res Result
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		res = Result{}
		now := s.now()

		var offer models.RewardOffer
		if errFind := tx.WithContext(ctx).Where("id = ?", offerID).Take(&offer).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrOfferNotFound
			}
			return errFind
		}
		if !offer.AvailableAt(now) {
			return ErrOfferUnavailable
		}
		if s.offerLoaded != nil {
			s.offerLoaded(tx)
		}

		redemptionID := uuid.NewString()
		out, errApply := ledger.Apply(ctx, tx, ledger.Mutation{
			UserID:      userID,
			Type:        models.TransactionRedemption,
			Points:      -offer.PointsCost,
			Description: fmt.Sprintf("Redeemed %s", offer.Name),
			Metadata:    map[string]any{"offer_id": offer.ID, "redemption_id": redemptionID},
			At:          now,
		})
		if errApply != nil {
			if apperr.Is(errApply, apperr.KindNotFound) {
				return ledger.ErrInsufficientPoints
			}
			return errApply
		}

		if errClaim := claimOffer(ctx, tx, offer.ID, now); errClaim != nil {
			return errClaim
		}

		validDays := offer.RedemptionValidDays
		if validDays <= 0 {
			validDays = 30
		}
		expiresAt := now.AddDate(0, 0, validDays)
		redemption := models.Redemption{
			ID:             redemptionID,
			UserID:         userID,
			OfferID:        offer.ID,
			PointsUsed:     offer.PointsCost,
			CogsValueCents: offer.CogsValueCents,
			Status:         models.RedemptionActive,
			RedeemedAt:     now,
			ExpiresAt:      &expiresAt,
		}
		if errCreate := tx.WithContext(ctx).Create(&redemption).Error; errCreate != nil {
			return errCreate
		}
		redemption.Offer = offer

		res = Result{Redemption: redemption, PointsDeducted: offer.PointsCost, Profile: out.Profile}
		return nil
	})
	if errTx != nil {
		return Result{}, errTx
	}
	s.store.Notify(ctx, res.Profile)
	log.WithFields(log.Fields{
		"user_id":       userID,
		"offer_id":      offerID,
		"redemption_id": res.Redemption.ID,
		"points":        res.PointsDeducted,
	}).Info("redemption created")
	return res, nil
}

// claimOffer takes one unit of offer capacity. The condition is re-evaluated
// by the UPDATE itself, so a claim based on a stale read of the offer fails
// with ErrOfferUnavailable instead of overselling.
func claimOffer(ctx context.Context, tx *gorm.DB, offerID uint64, now time.Time) error {
	claim := tx.WithContext(ctx).
		Model(&models.RewardOffer{}).
		Where("id = ? AND is_active = ? AND (max_redemptions = 0 OR current_redemptions < max_redemptions)", offerID, true).
		Updates(map[string]any{
			"current_redemptions": gorm.Expr("current_redemptions + 1"),
			"updated_at":          now,
		})
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		return ErrOfferUnavailable
	}
	return nil
}

// Use consumes an active redemption owned by userID.
func (s *Service) Use(ctx context.Context, redemptionID string, userID uint64, orderReference string) (models.Redemption, error) {
	if redemptionID == "" {
		return models.Redemption{}, apperr.Validation("redemption id is required")
	}
	var redemption models.Redemption
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		now := s.now()
		if errFind := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", redemptionID, userID).
			Take(&redemption).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrRedemptionNotFound
			}
			return errFind
		}
		if redemption.Status != models.RedemptionActive {
			return apperr.Conflict(fmt.Sprintf("redemption is already %s", redemption.Status))
		}
		if redemption.ExpiresAt != nil && !now.Before(*redemption.ExpiresAt) {
			return apperr.Conflict("redemption has expired")
		}
		upd := tx.WithContext(ctx).
			Model(&models.Redemption{}).
			Where("id = ? AND status = ?", redemption.ID, models.RedemptionActive).
			Updates(map[string]any{
				"status":          models.RedemptionUsed,
				"used_at":         now,
				"order_reference": orderReference,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return dbutil.ErrConcurrentUpdate
		}
		redemption.Status = models.RedemptionUsed
		redemption.UsedAt = &now
		redemption.OrderReference = orderReference
		return nil
	})
	if errTx != nil {
		return models.Redemption{}, errTx
	}
	return redemption, nil
}

// ExpireDue moves every active redemption whose expiry has passed to expired.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.RedemptionActive, now).
		Update("status", models.RedemptionExpired)
	if res.Error != nil {
		return 0, apperr.Internal("expire redemptions failed", res.Error)
	}
	return res.RowsAffected, nil
}

// List returns the user's redemptions, newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, userID uint64, status models.RedemptionStatus) ([]models.Redemption, error) {
	q := s.db.WithContext(ctx).Preload("Offer").Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.Redemption
	if errFind := q.Order("redeemed_at DESC").Find(&rows).Error; errFind != nil {
		return nil, apperr.Internal("list redemptions failed", errFind)
	}
	return rows, nil
}
