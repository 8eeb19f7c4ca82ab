package ledger

import (
	"context"
	"time"

	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultExpiryInterval = time.Hour
	maxExpiryUsersPerRun  = 5000
)

// ExpiredUnspent walks a user's ledger in order and returns how many points from
// purchase credits that expired at or before now were never spent and have not
// yet been written off.
//
// An expiry entry drains the lots that had expired when it was written, oldest
// first. Other debits then consume the oldest live credits. The result is
// clamped to the balance implied by entries.
func ExpiredUnspent(entries []models.PointsTransaction, now time.Time) int64 {
	type lot struct {
		remaining int64
		expires   *time.Time
	}
	var lots []lot
	consume := func(amount int64, eligible func(lot) bool) int64 {
		for i := range lots {
			if amount == 0 {
				break
			}
			if !eligible(lots[i]) {
				continue
			}
			take := min(lots[i].remaining, amount)
			lots[i].remaining -= take
			amount -= take
		}
		return amount
	}
	anyLot := func(lot) bool { return true }

	balance := int64(0)
	for _, e := range entries {
		balance += e.Points
		switch {
		case e.Points > 0:
			lots = append(lots, lot{remaining: e.Points, expires: e.ExpiresAt})
		case e.Type == models.TransactionExpiry:
			cutoff := e.CreatedAt
			if cutoff.IsZero() {
				cutoff = now
			}
			left := consume(-e.Points, func(l lot) bool {
				return l.expires != nil && !l.expires.After(cutoff)
			})
			consume(left, anyLot)
		default:
			consume(-e.Points, anyLot)
		}
	}
	due := int64(0)
	for _, l := range lots {
		if l.expires != nil && !l.expires.After(now) {
			due += l.remaining
		}
	}
	if due > balance {
		due = balance
	}
	if due < 0 {
		return 0
	}
	return due
}

// ExpireUser writes off expired purchase points for one user. It returns the
// number of points debited; zero means nothing was due.
func ExpireUser(ctx context.Context, conn *gorm.DB, userID uint64, now time.Time) (Outcome, int64, error) {
	var (
		out Outcome
		due int64
	)
	errTx := dbutil.RunInTx(ctx, conn, func(tx *gorm.DB) error {
		out, due = Outcome{}, 0
		if _, found, errLoad := LockProfile(ctx, tx, userID); errLoad != nil || !found {
			return errLoad
		}
		var entries []models.PointsTransaction
		if errFind := tx.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at ASC, id ASC").
			Find(&entries).Error; errFind != nil {
			return errFind
		}
		due = ExpiredUnspent(entries, now)
		if due <= 0 {
			return nil
		}
		applied, errApply := Apply(ctx, tx, Mutation{
			UserID:      userID,
			Type:        models.TransactionExpiry,
			Points:      -due,
			Description: "Points expired",
			Metadata:    map[string]any{"expired_before": now.Format(time.RFC3339)},
			At:          now,
		})
		if errApply != nil {
			return errApply
		}
		out = applied
		return nil
	})
	if errTx != nil {
		return Outcome{}, 0, errTx
	}
	return out, due, nil
}

// RedemptionExpirer marks redemptions past their expiry as expired.
type RedemptionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper periodically writes off expired points and expires stale redemptions.
type ExpirySweeper struct {
	db          *gorm.DB
	store       *Store
	redemptions RedemptionExpirer
	interval    time.Duration
	now         func() time.Time
}

// NewExpirySweeper returns nil when db is nil. redemptions may be nil.
func NewExpirySweeper(db *gorm.DB, store *Store, redemptions RedemptionExpirer, interval time.Duration) *ExpirySweeper {
	if db == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultExpiryInterval
	}
	return &ExpirySweeper{
		db:          db,
		store:       store,
		redemptions: redemptions,
		interval:    interval,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the sweep loop in a background goroutine.
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("points expiry sweeper started (interval=%s)", s.interval)
}

func (s *ExpirySweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.SweepOnce(ctx)
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// SweepOnce runs a single pass and returns the total points expired.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) int64 {
	if s == nil || s.db == nil {
		return 0
	}
	now := s.now()

	if s.redemptions != nil {
		n, errExpire := s.redemptions.ExpireDue(ctx, now)
		if errExpire != nil {
			log.WithError(errExpire).Warn("points expiry sweeper: expire redemptions failed")
		} else if n > 0 {
			log.Infof("points expiry sweeper: expired %d redemptions", n)
		}
	}

	var userIDs []uint64
	if errFind := s.db.WithContext(ctx).
		Model(&models.PointsTransaction{}).
		Where("type = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.TransactionPurchase, now).
		Distinct("user_id").
		Limit(maxExpiryUsersPerRun).
		Pluck("user_id", &userIDs).Error; errFind != nil {
		log.WithError(errFind).Warn("points expiry sweeper: list users failed")
		return 0
	}

	total := int64(0)
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		out, due, errExpire := ExpireUser(ctx, s.db, userID, now)
		if errExpire != nil {
			log.WithError(errExpire).WithField("user_id", userID).Warn("points expiry sweeper: expire user failed")
			continue
		}
		if due > 0 {
			total += due
			s.store.Notify(ctx, out.Profile)
		}
	}
	if total > 0 {
		log.Infof("points expiry sweeper: expired %d points across %d users", total, len(userIDs))
	}
	return total
}
