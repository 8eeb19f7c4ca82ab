package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"gorm.io/gorm"
)

// ProfileDTO is the API shape of a loyalty profile.
type ProfileDTO struct {
	UserID        uint64     `json:"user_id"`
	CurrentPoints int64      `json:"current_points"`
	TotalEarned   int64      `json:"total_earned"`
	TotalRedeemed int64      `json:"total_redeemed"`
	TotalExpired  int64      `json:"total_expired"`
	Tier          string     `json:"tier"`
	CanSpin       bool       `json:"can_spin"`
	LastSpinAt    *time.Time `json:"last_spin_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProfileView converts a profile row into its API shape.
func ProfileView(p models.LoyaltyProfile) ProfileDTO {
	return ProfileDTO{
		UserID:        p.UserID,
		CurrentPoints: p.CurrentPoints,
		TotalEarned:   p.TotalEarned,
		TotalRedeemed: p.TotalRedeemed,
		TotalExpired:  p.TotalExpired,
		Tier:          string(p.Tier),
		CanSpin:       p.CanSpin,
		LastSpinAt:    p.LastSpinAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// Store reads profiles and ledger history and applies admin changes.
type Store struct {
	db       *gorm.DB
	notifier Notifier
}

// NewStore constructs a Store. notifier may be nil.
func NewStore(db *gorm.DB, notifier Notifier) *Store {
	return &Store{db: db, notifier: notifier}
}

// Notify forwards a committed profile to the configured notifier.
func (s *Store) Notify(ctx context.Context, profile models.LoyaltyProfile) {
	if s == nil || s.notifier == nil {
		return
	}
	s.notifier.ProfileChanged(ctx, profile)
}

// Get returns the profile for userID.
func (s *Store) Get(ctx context.Context, userID uint64) (models.LoyaltyProfile, error) {
	var profile models.LoyaltyProfile
	if errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.LoyaltyProfile{}, apperr.NotFound("loyalty profile not found")
		}
		return models.LoyaltyProfile{}, apperr.Internal("load profile failed", errFind)
	}
	return profile, nil
}

// History returns one page of ledger entries for userID, newest first.
func (s *Store) History(ctx context.Context, userID uint64, page, pageSize int) ([]models.PointsTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	q := s.db.WithContext(ctx).Model(&models.PointsTransaction{}).Where("user_id = ?", userID)
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, apperr.Internal("count ledger failed", errCount)
	}
	var entries []models.PointsTransaction
	if errFind := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; errFind != nil {
		return nil, 0, apperr.Internal("list ledger failed", errFind)
	}
	return entries, total, nil
}

// Adjust appends an admin_adjustment entry.
func (s *Store) Adjust(ctx context.Context, userID uint64, points int64, reason string) (Outcome, error) {
	if reason == "" {
		return Outcome{}, apperr.Validation("reason is required")
	}
	var out Outcome
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		applied, errApply := Apply(ctx, tx, Mutation{
			UserID:      userID,
			Type:        models.TransactionAdminAdjustment,
			Points:      points,
			Description: reason,
			Metadata:    map[string]any{"reason": reason},
		})
		if errApply != nil {
			return errApply
		}
		out = applied
		return nil
	})
	if errTx != nil {
		return Outcome{}, errTx
	}
	s.Notify(ctx, out.Profile)
	return out, nil
}

// SetTier changes the tier, creating an empty profile when the user has none.
func (s *Store) SetTier(ctx context.Context, userID uint64, tier models.Tier) (models.LoyaltyProfile, error) {
	if !tier.Valid() {
		return models.LoyaltyProfile{}, apperr.Validation("unknown tier")
	}
	return s.updateFlags(ctx, userID, map[string]any{"tier": tier})
}

// SetCanSpin toggles spin eligibility, creating an empty profile when the user has none.
func (s *Store) SetCanSpin(ctx context.Context, userID uint64, canSpin bool) (models.LoyaltyProfile, error) {
	return s.updateFlags(ctx, userID, map[string]any{"can_spin": canSpin})
}

// updateFlags writes non-balance fields under the same version discipline as Apply.
func (s *Store) updateFlags(ctx context.Context, userID uint64, fields map[string]any) (models.LoyaltyProfile, error) {
	if userID == 0 {
		return models.LoyaltyProfile{}, apperr.Validation("user id is required")
	}
	var profile models.LoyaltyProfile
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		current, found, errLoad := LockProfile(ctx, tx, userID)
		if errLoad != nil {
			return errLoad
		}
		now := time.Now().UTC()
		if !found {
			current = newProfile(userID, now)
			if errCreate := tx.Create(&current).Error; errCreate != nil {
				return errCreate
			}
		}
		update := map[string]any{"version": current.Version + 1, "updated_at": now}
		for k, v := range fields {
			update[k] = v
		}
		res := tx.Model(&models.LoyaltyProfile{}).
			Where("user_id = ? AND version = ?", userID, current.Version).
			Updates(update)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return dbutil.ErrConcurrentUpdate
		}
		return tx.Where("user_id = ?", userID).Take(&profile).Error
	})
	if errTx != nil {
		return models.LoyaltyProfile{}, errTx
	}
	s.Notify(ctx, profile)
	return profile, nil
}
