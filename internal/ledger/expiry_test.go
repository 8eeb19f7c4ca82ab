package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/stretchr/testify/require"
)

func credit(points int64, expires *time.Time) models.PointsTransaction {
	return models.PointsTransaction{Type: models.TransactionPurchase, Points: points, ExpiresAt: expires}
}

func TestExpiredUnspentConsumesOldestFirst(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	entries := []models.PointsTransaction{
		credit(100, &past),
		credit(50, &future),
		{Type: models.TransactionRedemption, Points: -60},
	}
	require.Equal(t, int64(40), ExpiredUnspent(entries, now))

	entries = append(entries, models.PointsTransaction{Type: models.TransactionExpiry, Points: -40})
	require.Equal(t, int64(0), ExpiredUnspent(entries, now))
}

func TestExpiredUnspentIgnoresNonExpiringCredits(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	entries := []models.PointsTransaction{
		{Type: models.TransactionAdminAdjustment, Points: 30},
		credit(20, &past),
		{Type: models.TransactionSpinWin, Points: 10},
		{Type: models.TransactionSpinCost, Points: -10},
	}
	require.Equal(t, int64(20), ExpiredUnspent(entries, now))

	entries = []models.PointsTransaction{
		{Type: models.TransactionAdminAdjustment, Points: 30},
		{Type: models.TransactionSpinWin, Points: 10},
	}
	require.Equal(t, int64(0), ExpiredUnspent(entries, now))

	entries = []models.PointsTransaction{
		credit(20, &past),
		{Type: models.TransactionAdminAdjustment, Points: 5},
	}
	require.Equal(t, int64(20), ExpiredUnspent(entries, now))
}

func TestExpiredUnspentSpendsLiveCreditsAfterWriteOff(t *testing.T) {
	firstExpiry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	secondExpiry := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	now := secondExpiry.Add(time.Hour)

	entries := []models.PointsTransaction{
		credit(100, &firstExpiry),
		{Type: models.TransactionExpiry, Points: -100, CreatedAt: firstExpiry.Add(time.Hour)},
		{Type: models.TransactionSpinWin, Points: 20},
		credit(50, &secondExpiry),
		{Type: models.TransactionRedemption, Points: -20},
	}
	require.Equal(t, int64(50), ExpiredUnspent(entries, now))

	// Before the second lot expires nothing is due.
	require.Equal(t, int64(0), ExpiredUnspent(entries, secondExpiry.Add(-time.Hour)))
}

type countingExpirer struct{ calls int }

func (c *countingExpirer) ExpireDue(context.Context, time.Time) (int64, error) {
	c.calls++
	return 0, nil
}

func TestSweepOnceWritesOffExpiredPoints(t *testing.T) {
	conn := openTestDB(t)
	earned := time.Now().UTC().Add(-31 * 24 * time.Hour)
	_, err := applyTx(t, conn, PurchaseMutation(11, 120, earned, nil))
	require.NoError(t, err)
	_, err = applyTx(t, conn, Mutation{UserID: 11, Type: models.TransactionRedemption, Points: -20, At: earned.Add(time.Hour)})
	require.NoError(t, err)
	_, err = applyTx(t, conn, PurchaseMutation(11, 40, time.Now().UTC(), nil))
	require.NoError(t, err)

	expirer := &countingExpirer{}
	sweeper := NewExpirySweeper(conn, NewStore(conn, nil), expirer, time.Minute)
	require.Equal(t, int64(100), sweeper.SweepOnce(context.Background()))
	require.Equal(t, int64(0), sweeper.SweepOnce(context.Background()))
	require.Equal(t, 2, expirer.calls)

	var profile models.LoyaltyProfile
	require.NoError(t, conn.Where("user_id = ?", 11).Take(&profile).Error)
	require.Equal(t, int64(40), profile.CurrentPoints)
	require.Equal(t, int64(100), profile.TotalExpired)
	require.True(t, profile.Consistent())
}
