// Package ledger owns the append-only points ledger and the loyalty profile
// projection derived from it.
//
// Apply is the only code path that changes a profile balance. It runs inside
// the caller's transaction so that a redemption, a spin or an order accrual
// commits its ledger entry together with the rest of its writes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseExpiry is the lifetime of points earned from a purchase.
const PurchaseExpiry = 30 * 24 * time.Hour

// Mutation describes one balance change.
type Mutation struct {
	UserID      uint64
	Type        models.TransactionType
	Points      int64 // Signed; negative for debits.
	Description string
	Metadata    map[string]any
	ExpiresAt   *time.Time
	At          time.Time // Defaults to now.
}

// Outcome is the state after a mutation was applied.
type Outcome struct {
	Profile models.LoyaltyProfile
	Entry   models.PointsTransaction
}

// ErrInsufficientPoints is the conflict returned when a debit exceeds the balance.
var ErrInsufficientPoints = apperr.Conflict("insufficient points")

// Apply reads the user's profile under lock, applies m, appends exactly one
// ledger entry and writes the profile back with a version check. tx must be an
// open transaction.
func Apply(ctx context.Context, tx *gorm.DB, m Mutation) (Outcome, error) {
	if errValidate := validateMutation(m); errValidate != nil {
		return Outcome{}, errValidate
	}
	at := m.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	profile, found, errLoad := LockProfile(ctx, tx, m.UserID)
	if errLoad != nil {
		return Outcome{}, errLoad
	}
	if !found {
		if m.Points < 0 {
			return Outcome{}, apperr.NotFound("loyalty profile not found")
		}
		profile = newProfile(m.UserID, at)
		if errCreate := tx.WithContext(ctx).Create(&profile).Error; errCreate != nil {
			return Outcome{}, fmt.Errorf("ledger: create profile: %w", errCreate)
		}
	}

	next := profile
	next.CurrentPoints += m.Points
	if next.CurrentPoints < 0 {
		return Outcome{}, ErrInsufficientPoints
	}
	switch {
	case m.Points > 0:
		next.TotalEarned += m.Points
	case m.Type == models.TransactionExpiry:
		next.TotalExpired += -m.Points
	default:
		next.TotalRedeemed += -m.Points
	}
	next.Version = profile.Version + 1
	next.UpdatedAt = at

	entry := models.PointsTransaction{
		UserID:       m.UserID,
		Type:         m.Type,
		Points:       m.Points,
		BalanceAfter: next.CurrentPoints,
		Description:  m.Description,
		Metadata:     datatypes.JSONMap(m.Metadata),
		CreatedAt:    at,
		ExpiresAt:    m.ExpiresAt,
	}
	if errCreate := tx.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		return Outcome{}, fmt.Errorf("ledger: append entry: %w", errCreate)
	}

	if errSave := saveProfile(ctx, tx, profile.Version, &next); errSave != nil {
		return Outcome{}, errSave
	}
	return Outcome{Profile: next, Entry: entry}, nil
}

// PurchaseMutation builds the accrual for an order paid at.
func PurchaseMutation(userID uint64, points int64, at time.Time, metadata map[string]any) Mutation {
	expiresAt := at.Add(PurchaseExpiry)
	return Mutation{
		UserID:      userID,
		Type:        models.TransactionPurchase,
		Points:      points,
		Description: fmt.Sprintf("Earned %d points from order", points),
		Metadata:    metadata,
		ExpiresAt:   &expiresAt,
		At:          at,
	}
}

func validateMutation(m Mutation) error {
	if m.UserID == 0 {
		return apperr.Validation("user id is required")
	}
	if !m.Type.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown transaction type %q", m.Type))
	}
	if m.Points == 0 {
		return apperr.Validation("points must be non-zero")
	}
	switch m.Type {
	case models.TransactionPurchase, models.TransactionSpinWin:
		if m.Points < 0 {
			return apperr.Validation(fmt.Sprintf("%s entries must be credits", m.Type))
		}
	case models.TransactionRedemption, models.TransactionSpinCost, models.TransactionExpiry:
		if m.Points > 0 {
			return apperr.Validation(fmt.Sprintf("%s entries must be debits", m.Type))
		}
	}
	if m.ExpiresAt != nil && m.Type != models.TransactionPurchase {
		return apperr.Validation("only purchase entries may expire")
	}
	return nil
}

// LockProfile loads the profile row with FOR UPDATE where the dialect supports it.
// found is false when the user has no profile yet.
func LockProfile(ctx context.Context, tx *gorm.DB, userID uint64) (models.LoyaltyProfile, bool, error) {
	var profile models.LoyaltyProfile
	errFind := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Take(&profile).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.LoyaltyProfile{}, false, nil
		}
		return models.LoyaltyProfile{}, false, fmt.Errorf("ledger: load profile: %w", errFind)
	}
	return profile, true, nil
}

// saveProfile writes every projection field, guarded by the version read earlier.
func saveProfile(ctx context.Context, tx *gorm.DB, readVersion int64, next *models.LoyaltyProfile) error {
	res := tx.WithContext(ctx).
		Model(&models.LoyaltyProfile{}).
		Where("user_id = ? AND version = ?", next.UserID, readVersion).
		Updates(map[string]any{
			"current_points": next.CurrentPoints,
			"total_earned":   next.TotalEarned,
			"total_redeemed": next.TotalRedeemed,
			"total_expired":  next.TotalExpired,
			"last_spin_at":   next.LastSpinAt,
			"version":        next.Version,
			"updated_at":     next.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("ledger: save profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return dbutil.ErrConcurrentUpdate
	}
	return nil
}

// MarkSpun records a spin time on a profile already locked in tx.
func MarkSpun(ctx context.Context, tx *gorm.DB, profile *models.LoyaltyProfile, at time.Time) error {
	next := *profile
	next.LastSpinAt = &at
	next.Version = profile.Version + 1
	next.UpdatedAt = at
	if errSave := saveProfile(ctx, tx, profile.Version, &next); errSave != nil {
		return errSave
	}
	*profile = next
	return nil
}

func newProfile(userID uint64, at time.Time) models.LoyaltyProfile {
	return models.LoyaltyProfile{
		UserID:    userID,
		Tier:      models.TierRegular,
		CanSpin:   true,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Audit compares the cached balance with the ledger sum for one user.
func Audit(ctx context.Context, db *gorm.DB, userID uint64) (cached int64, ledgerSum int64, err error) {
	var profile models.LoyaltyProfile
	if errFind := db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, 0, apperr.NotFound("loyalty profile not found")
		}
		return 0, 0, apperr.Internal("load profile failed", errFind)
	}
	if errSum := db.WithContext(ctx).
		Model(&models.PointsTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&ledgerSum).Error; errSum != nil {
		return 0, 0, apperr.Internal("sum ledger failed", errSum)
	}
	return profile.CurrentPoints, ledgerSum, nil
}
