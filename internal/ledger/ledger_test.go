package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := dbutil.Open(":memory:")
	require.NoError(t, errOpen)
	require.NoError(t, dbutil.Migrate(conn))
	return conn
}

func applyTx(t *testing.T, conn *gorm.DB, m Mutation) (Outcome, error) {
	t.Helper()
	var out Outcome
	errTx := dbutil.RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
		applied, errApply := Apply(context.Background(), tx, m)
		if errApply != nil {
			return errApply
		}
		out = applied
		return nil
	})
	return out, errTx
}

func TestApplyCreatesProfileOnFirstCredit(t *testing.T) {
	conn := openTestDB(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	out, err := applyTx(t, conn, PurchaseMutation(7, 250, at, map[string]any{"order_id": "o-1"}))
	require.NoError(t, err)
	require.Equal(t, int64(250), out.Profile.CurrentPoints)
	require.Equal(t, int64(250), out.Profile.TotalEarned)
	require.Equal(t, models.TierRegular, out.Profile.Tier)
	require.True(t, out.Profile.CanSpin)
	require.Equal(t, int64(250), out.Entry.BalanceAfter)
	require.NotNil(t, out.Entry.ExpiresAt)
	require.True(t, out.Entry.ExpiresAt.Equal(at.Add(PurchaseExpiry)))

	var stored models.LoyaltyProfile
	require.NoError(t, conn.Where("user_id = ?", 7).Take(&stored).Error)
	require.Equal(t, int64(250), stored.CurrentPoints)
	require.True(t, stored.Consistent())
}

func TestApplyDebitWithoutProfileIsNotFound(t *testing.T) {
	conn := openTestDB(t)
	_, err := applyTx(t, conn, Mutation{UserID: 9, Type: models.TransactionRedemption, Points: -10})
	require.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestApplyRejectsOverdraftWithoutWriting(t *testing.T) {
	conn := openTestDB(t)
	_, err := applyTx(t, conn, PurchaseMutation(1, 50, time.Now().UTC(), nil))
	require.NoError(t, err)

	_, err = applyTx(t, conn, Mutation{UserID: 1, Type: models.TransactionRedemption, Points: -80})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	var count int64
	require.NoError(t, conn.Model(&models.PointsTransaction{}).Where("user_id = ?", 1).Count(&count).Error)
	require.Equal(t, int64(1), count)
	cached, sum, errAudit := Audit(context.Background(), conn, 1)
	require.NoError(t, errAudit)
	require.Equal(t, int64(50), cached)
	require.Equal(t, cached, sum)
}

func TestApplyKeepsTotalsConsistent(t *testing.T) {
	conn := openTestDB(t)
	steps := []Mutation{
		PurchaseMutation(3, 300, time.Now().UTC(), nil),
		{UserID: 3, Type: models.TransactionSpinCost, Points: -10},
		{UserID: 3, Type: models.TransactionSpinWin, Points: 50},
		{UserID: 3, Type: models.TransactionRedemption, Points: -100},
		{UserID: 3, Type: models.TransactionAdminAdjustment, Points: -15, Description: "goodwill reversal"},
		{UserID: 3, Type: models.TransactionExpiry, Points: -25},
	}
	var last Outcome
	for _, step := range steps {
		out, err := applyTx(t, conn, step)
		require.NoError(t, err)
		last = out
	}
	p := last.Profile
	require.Equal(t, int64(200), p.CurrentPoints)
	require.Equal(t, int64(350), p.TotalEarned)
	require.Equal(t, int64(125), p.TotalRedeemed)
	require.Equal(t, int64(25), p.TotalExpired)
	require.True(t, p.Consistent())

	cached, sum, errAudit := Audit(context.Background(), conn, 3)
	require.NoError(t, errAudit)
	require.Equal(t, cached, sum)
}

func TestValidateMutationSignRules(t *testing.T) {
	expires := time.Now()
	cases := []Mutation{
		{UserID: 0, Type: models.TransactionPurchase, Points: 1},
		{UserID: 1, Type: "bonus", Points: 1},
		{UserID: 1, Type: models.TransactionPurchase, Points: 0},
		{UserID: 1, Type: models.TransactionPurchase, Points: -1},
		{UserID: 1, Type: models.TransactionRedemption, Points: 5},
		{UserID: 1, Type: models.TransactionSpinWin, Points: 5, ExpiresAt: &expires},
	}
	for i, m := range cases {
		err := validateMutation(m)
		require.True(t, apperr.Is(err, apperr.KindValidation), "case %d: got %v", i, err)
	}
}

func TestSaveProfileDetectsStaleVersion(t *testing.T) {
	conn := openTestDB(t)
	out, err := applyTx(t, conn, PurchaseMutation(4, 10, time.Now().UTC(), nil))
	require.NoError(t, err)

	stale := out.Profile
	stale.CurrentPoints = 999
	stale.Version = out.Profile.Version + 1
	errSave := saveProfile(context.Background(), conn, out.Profile.Version-1, &stale)
	require.ErrorIs(t, errSave, dbutil.ErrConcurrentUpdate)
}

func TestStoreFlagsAndHistory(t *testing.T) {
	conn := openTestDB(t)
	feed := NewFeed()
	store := NewStore(conn, feed)
	updates, cancel := feed.Subscribe(5)
	defer cancel()

	profile, err := store.SetTier(context.Background(), 5, models.TierVolunteer)
	require.NoError(t, err)
	require.Equal(t, models.TierVolunteer, profile.Tier)
	require.True(t, profile.CanSpin)

	profile, err = store.SetCanSpin(context.Background(), 5, false)
	require.NoError(t, err)
	require.False(t, profile.CanSpin)
	require.Equal(t, models.TierVolunteer, profile.Tier)

	_, err = store.SetTier(context.Background(), 5, "platinum")
	require.True(t, apperr.Is(err, apperr.KindValidation))

	for i := 0; i < 3; i++ {
		_, err = store.Adjust(context.Background(), 5, 10, "launch bonus")
		require.NoError(t, err)
	}
	_, err = store.Adjust(context.Background(), 5, 10, "")
	require.True(t, apperr.Is(err, apperr.KindValidation))

	entries, total, err := store.History(context.Background(), 5, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	require.Equal(t, int64(30), entries[0].BalanceAfter)

	got, err := store.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(30), got.CurrentPoints)
	_, err = store.Get(context.Background(), 404)
	require.True(t, apperr.Is(err, apperr.KindNotFound))

	select {
	case update := <-updates:
		require.Equal(t, uint64(5), update.UserID)
	default:
		t.Fatalf("expected a profile update on the feed")
	}
}

func TestFeedDropsWhenSubscriberIsSlow(t *testing.T) {
	feed := NewFeed()
	ch, cancel := feed.Subscribe(1)
	for i := 0; i < feedBuffer*2; i++ {
		feed.ProfileChanged(context.Background(), models.LoyaltyProfile{UserID: 1, CurrentPoints: int64(i)})
	}
	require.Len(t, ch, feedBuffer)
	cancel()
	cancel()
	feed.ProfileChanged(context.Background(), models.LoyaltyProfile{UserID: 1})
}
