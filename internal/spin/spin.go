// Package spin runs the daily prize wheel against the points ledger.
package spin

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/models"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrSpinDisabled is returned when the profile's can_spin flag is off.
	ErrSpinDisabled = apperr.Conflict("spin is not enabled for this account")
	// ErrCooldown is returned when the last spin is inside the cooldown window.
	ErrCooldown = apperr.Conflict("spin cooldown active")
)

// Result is the outcome of one spin.
type Result struct {
	Points    int64                 `json:"points"`
	IsJackpot bool                  `json:"is_jackpot"`
	Cost      int64                 `json:"cost"`
	Profile   models.LoyaltyProfile `json:"-"`
}

// Service spins the wheel for a user.
type Service struct {
	db    *gorm.DB
	store *ledger.Store
	roll  func() float64 // Uniform in [0,1).
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRandom replaces the random source; f must return values in [0,1).
func WithRandom(f func() float64) Option {
	return func(s *Service) {
		if f != nil {
			s.roll = f
		}
	}
}

// WithClock replaces the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service. store may be nil.
func NewService(db *gorm.DB, store *ledger.Store, opts ...Option) *Service {
	s := &Service{
		db:    db,
		store: store,
		roll:  rand.Float64,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cost returns the current spin cost.
func Cost() int64 {
	return internalsettings.Int64(internalsettings.SpinCostPointsKey, internalsettings.DefaultSpinCostPoints)
}

// Cooldown returns the current minimum gap between spins.
func Cooldown() time.Duration {
	hours := internalsettings.Int64(internalsettings.SpinCooldownHoursKey, internalsettings.DefaultSpinCooldownHours)
	return time.Duration(hours) * time.Hour
}

// Spin checks eligibility, debits the cost, draws a segment and credits the
// winnings in one transaction. Ineligible callers get a Conflict and nothing
// is written.
func (s *Service) Spin(ctx context.Context, userID uint64) (Result, error) {
	if userID == 0 {
		return Result{}, apperr.Validation("user id is required")
	}
	cost := Cost()
	cooldown := Cooldown()

	var res Result
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		res = Result{}
		now := s.now()

		profile, found, errLoad := ledger.LockProfile(ctx, tx, userID)
		if errLoad != nil {
			return errLoad
		}
		if !found {
			return apperr.NotFound("loyalty profile not found")
		}
		if !profile.CanSpin {
			return ErrSpinDisabled
		}
		if profile.LastSpinAt != nil && now.Sub(*profile.LastSpinAt) < cooldown {
			next := profile.LastSpinAt.Add(cooldown)
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: fmt.Sprintf("%s until %s", apperr.Message(ErrCooldown), next.Format(time.RFC3339)),
				Err:     ErrCooldown,
			}
		}

		if cost > 0 {
			if _, errApply := ledger.Apply(ctx, tx, ledger.Mutation{
				UserID:      userID,
				Type:        models.TransactionSpinCost,
				Points:      -cost,
				Description: "Spin the wheel",
				At:          now,
			}); errApply != nil {
				return errApply
			}
		}

		seg := Draw(Table, s.roll()*100)
		out, errApply := ledger.Apply(ctx, tx, ledger.Mutation{
			UserID:      userID,
			Type:        models.TransactionSpinWin,
			Points:      seg.Points,
			Description: fmt.Sprintf("Won %d points on the wheel", seg.Points),
			Metadata:    map[string]any{"is_jackpot": seg.IsJackpot},
			At:          now,
		})
		if errApply != nil {
			return errApply
		}
		if errMark := ledger.MarkSpun(ctx, tx, &out.Profile, now); errMark != nil {
			return errMark
		}
		res = Result{Points: seg.Points, IsJackpot: seg.IsJackpot, Cost: cost, Profile: out.Profile}
		return nil
	})
	if errTx != nil {
		return Result{}, errTx
	}
	s.store.Notify(ctx, res.Profile)
	if res.IsJackpot {
		log.WithField("user_id", userID).Info("spin jackpot")
	}
	return res, nil
}
