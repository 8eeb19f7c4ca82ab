package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/larkspur-kitchen/rewards/internal/orderstatus"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day1 = time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := dbutil.Open(":memory:")
	require.NoError(t, errOpen)
	require.NoError(t, dbutil.Migrate(conn))
	internalsettings.StoreDBConfig(time.Now(), map[string]json.RawMessage{})
	return conn
}

func apply(t *testing.T, conn *gorm.DB, m ledger.Mutation) {
	t.Helper()
	require.NoError(t, dbutil.RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
		_, errApply := ledger.Apply(context.Background(), tx, m)
		return errApply
	}))
}

func seed(t *testing.T, conn *gorm.DB) {
	t.Helper()
	day2 := day1.Add(24 * time.Hour)
	apply(t, conn, ledger.PurchaseMutation(1, 1000, day1, nil))
	apply(t, conn, ledger.PurchaseMutation(2, 500, day2, nil))
	apply(t, conn, ledger.Mutation{UserID: 1, Type: models.TransactionRedemption, Points: -200, At: day2})
	apply(t, conn, ledger.Mutation{UserID: 1, Type: models.TransactionSpinCost, Points: -10, At: day2})
	apply(t, conn, ledger.Mutation{UserID: 1, Type: models.TransactionSpinWin, Points: 50, Metadata: map[string]any{"is_jackpot": true}, At: day2})
	apply(t, conn, ledger.Mutation{UserID: 2, Type: models.TransactionSpinCost, Points: -10, At: day2})
	apply(t, conn, ledger.Mutation{UserID: 2, Type: models.TransactionSpinWin, Points: 5, Metadata: map[string]any{"is_jackpot": false}, At: day2})
	apply(t, conn, ledger.Mutation{UserID: 2, Type: models.TransactionExpiry, Points: -45, At: day2})
	apply(t, conn, ledger.Mutation{UserID: 2, Type: models.TransactionAdminAdjustment, Points: 20, Description: "apology", At: day2})

	offer := models.RewardOffer{Name: "Pie", PointsCost: 200, IsActive: true, CogsValueCents: 900}
	require.NoError(t, conn.Create(&offer).Error)
	require.NoError(t, conn.Create(&models.Redemption{
		ID: "r-1", UserID: 1, OfferID: offer.ID, PointsUsed: 200, CogsValueCents: 900,
		Status: models.RedemptionActive, RedeemedAt: day2,
	}).Error)

	for i, eligible := range []int64{10000, 5000} {
		require.NoError(t, conn.Create(&models.Order{
			ID: []string{"o-1", "o-2"}[i], Status: orderstatus.StatusCompleted, OrderType: orderstatus.OrderTypePickup,
			PaymentStatus: "paid", EligibleCents: eligible, SourceEventID: "evt", CreatedAt: day1, UpdatedAt: day1,
		}).Error)
	}
	require.NoError(t, conn.Create(&models.Order{
		ID: "o-3", Status: orderstatus.StatusCancelled, OrderType: orderstatus.OrderTypePickup,
		PaymentStatus: "paid", EligibleCents: 99999, SourceEventID: "evt", CreatedAt: day1, UpdatedAt: day1,
	}).Error)
}

func TestReportAggregatesLedgerAndRedemptions(t *testing.T) {
	conn := openTestDB(t)
	seed(t, conn)

	rep, err := NewAggregator(conn).Report(context.Background(), Query{
		Start:  day1.Add(-time.Hour),
		End:    day1.Add(72 * time.Hour),
		Period: PeriodWeek,
	})
	require.NoError(t, err)

	require.Equal(t, int64(1575), rep.PointsEarned)
	require.Equal(t, int64(220), rep.PointsRedeemed)
	require.Equal(t, int64(45), rep.PointsExpired)
	require.Equal(t, int64(20), rep.SpinCostPoints)
	require.Equal(t, int64(55), rep.SpinWinPoints)
	require.Equal(t, int64(1500), rep.PointsByType[models.TransactionPurchase])
	require.Equal(t, int64(-200), rep.PointsByType[models.TransactionRedemption])
	require.Equal(t, int64(20), rep.PointsByType[models.TransactionAdminAdjustment])

	require.Equal(t, int64(1), rep.RedemptionCount)
	require.Equal(t, int64(900), rep.RedemptionCOGSCents)
	require.Equal(t, int64(15000), rep.EligiblePurchaseCents)
	require.InDelta(t, 6.0, rep.GivebackPercent, 0.001)

	require.Equal(t, int64(1310), rep.OutstandingPoints)
	require.Equal(t, int64(13100), rep.PointLiabilityCents)

	require.Equal(t, int64(2), rep.TotalSpins)
	require.Equal(t, int64(1), rep.JackpotWins)
	require.InDelta(t, 0.5, rep.JackpotRate, 1e-9)

	require.Len(t, rep.Series, 2)
	require.Equal(t, "2026-02-03", rep.Series[0].Bucket)
	require.Equal(t, int64(1000), rep.Series[0].PointsEarned)
	require.Equal(t, "2026-02-04", rep.Series[1].Bucket)
	require.Equal(t, int64(2), rep.Series[1].Spins)
	require.Equal(t, int64(900), rep.Series[1].RedemptionCOGSCents)
	require.Equal(t, int64(45), rep.Series[1].PointsExpired)

	codes := map[string]bool{}
	for _, alert := range rep.Alerts {
		codes[alert.Code] = true
	}
	require.True(t, codes[AlertJackpotRate])
	require.False(t, codes[AlertGiveback])
	require.False(t, codes[AlertLiability])
}

func TestReportAlertsFollowSettings(t *testing.T) {
	conn := openTestDB(t)
	seed(t, conn)
	internalsettings.StoreDBConfig(time.Now(), map[string]json.RawMessage{
		internalsettings.GivebackTargetPercentKey:   json.RawMessage(`5`),
		internalsettings.LiabilityThresholdCentsKey: json.RawMessage(`"10000"`),
		internalsettings.JackpotRateAlertPercentKey: json.RawMessage(`60`),
	})
	defer internalsettings.StoreDBConfig(time.Now(), map[string]json.RawMessage{})

	rep, err := NewAggregator(conn).Report(context.Background(), Query{Start: day1.Add(-time.Hour), End: day1.Add(72 * time.Hour)})
	require.NoError(t, err)
	codes := map[string]bool{}
	for _, alert := range rep.Alerts {
		codes[alert.Code] = true
	}
	require.True(t, codes[AlertGiveback])
	require.True(t, codes[AlertLiability])
	require.False(t, codes[AlertJackpotRate])
}

func TestReportWindowDefaults(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	start, end, err := Query{Period: PeriodWeek}.Window(now)
	require.NoError(t, err)
	require.Equal(t, now, end)
	require.Equal(t, now.AddDate(0, 0, -7), start)

	start, _, err = Query{}.Window(now)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, -1, 0), start)

	_, _, err = Query{Start: now, End: now.Add(-time.Hour)}.Window(now)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = ParsePeriod("fortnight")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	p, err := ParsePeriod("")
	require.NoError(t, err)
	require.Equal(t, PeriodMonth, p)
}

func TestEmptyReportHasNoAlerts(t *testing.T) {
	conn := openTestDB(t)
	rep, err := NewAggregator(conn).Report(context.Background(), Query{Period: PeriodDay})
	require.NoError(t, err)
	require.Zero(t, rep.GivebackPercent)
	require.Zero(t, rep.JackpotRate)
	require.Empty(t, rep.Alerts)
	require.Empty(t, rep.Series)
}
