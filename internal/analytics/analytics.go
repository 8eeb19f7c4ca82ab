// Package analytics computes the read-only loyalty program report.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/larkspur-kitchen/rewards/internal/orderstatus"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Period is the default window length of a report.
type Period string

// Supported periods.
const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod converts a query value into a Period; empty means month.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown period %q", raw))
	}
}

// Alert codes.
const (
	AlertGiveback    = "giveback_above_target"
	AlertLiability   = "liability_above_threshold"
	AlertJackpotRate = "jackpot_rate_above_target"
)

// Alert is an advisory signal; nothing is enforced.
type Alert struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// Bucket is one step of the time series.
type Bucket struct {
	Bucket              string `json:"bucket"` // YYYY-MM-DD of the bucket start.
	PointsEarned        int64  `json:"points_earned"`
	PointsRedeemed      int64  `json:"points_redeemed"`
	PointsExpired       int64  `json:"points_expired"`
	Spins               int64  `json:"spins"`
	RedemptionCOGSCents int64  `json:"redemption_cogs_cents"`
}

// Report is the loyalty program rollup over [Start, End).
type Report struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Period Period    `json:"period"`

	PointsByType          map[models.TransactionType]int64 `json:"points_by_type"`
	PointsEarned          int64                            `json:"points_earned"`   // All credits.
	PointsRedeemed        int64                            `json:"points_redeemed"` // Non-expiry debits, positive.
	PointsExpired         int64                            `json:"points_expired"`
	SpinCostPoints        int64                            `json:"spin_cost_points"`
	SpinWinPoints         int64                            `json:"spin_win_points"`
	RedemptionCount       int64                            `json:"redemption_count"`
	RedemptionCOGSCents   int64                            `json:"redemption_cogs_cents"`
	EligiblePurchaseCents int64                            `json:"eligible_purchase_cents"`
	GivebackPercent       float64                          `json:"giveback_percent"`
	OutstandingPoints     int64                            `json:"outstanding_points"`
	PointLiabilityCents   int64                            `json:"point_liability_cents"`
	TotalSpins            int64                            `json:"total_spins"`
	JackpotWins           int64                            `json:"jackpot_wins"`
	JackpotRate           float64                          `json:"jackpot_rate"` // Fraction of spins.

	Series []Bucket `json:"series"`
	Alerts []Alert  `json:"alerts"`
}

// Query selects the report window. Zero Start or End are derived from Period.
type Query struct {
	Start  time.Time
	End    time.Time
	Period Period
}

// Aggregator reads the ledger, redemption and order tables.
type Aggregator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAggregator constructs an Aggregator.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Window resolves the report bounds.
func (q Query) Window(now time.Time) (time.Time, time.Time, error) {
	period := q.Period
	if period == "" {
		period = PeriodMonth
	}
	end := q.End
	if end.IsZero() {
		end = now
	}
	start := q.Start
	if start.IsZero() {
		switch period {
		case PeriodDay:
			start = end.AddDate(0, 0, -1)
		case PeriodWeek:
			start = end.AddDate(0, 0, -7)
		case PeriodYear:
			start = end.AddDate(-1, 0, 0)
		default:
			start = end.AddDate(0, -1, 0)
		}
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, apperr.Validation("end_date must be after start_date")
	}
	return start.UTC(), end.UTC(), nil
}

func bucketUnit(period Period) string {
	if period == PeriodYear {
		return "month"
	}
	return "day"
}

// Report computes the rollup.
func (a *Aggregator) Report(ctx context.Context, q Query) (Report, error) {
	if q.Period == "" {
		q.Period = PeriodMonth
	}
	start, end, errWindow := q.Window(a.now())
	if errWindow != nil {
		return Report{}, errWindow
	}
	conn := a.db.WithContext(ctx)
	rep := Report{
		Start:        start,
		End:          end,
		Period:       q.Period,
		PointsByType: map[models.TransactionType]int64{},
		Series:       []Bucket{},
		Alerts:       []Alert{},
	}

	var byType []struct {
		Type    models.TransactionType
		Credits int64
		Debits  int64
		Entries int64
	}
	if errScan := conn.Model(&models.PointsTransaction{}).
		Select("type, " +
			"COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0) AS credits, " +
			"COALESCE(SUM(CASE WHEN points < 0 THEN -points ELSE 0 END), 0) AS debits, " +
			"COUNT(*) AS entries").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("type").
		Scan(&byType).Error; errScan != nil {
		return Report{}, apperr.Internal("aggregate ledger failed", errScan)
	}
	for _, row := range byType {
		rep.PointsByType[row.Type] = row.Credits - row.Debits
		rep.PointsEarned += row.Credits
		if row.Type == models.TransactionExpiry {
			rep.PointsExpired += row.Debits
		} else {
			rep.PointsRedeemed += row.Debits
		}
		switch row.Type {
		case models.TransactionSpinCost:
			rep.SpinCostPoints = row.Debits
		case models.TransactionSpinWin:
			rep.SpinWinPoints = row.Credits
			rep.TotalSpins = row.Entries
		}
	}

	jackpotExpr := fmt.Sprintf("CAST(%s AS TEXT) IN ('true', '1')", dbutil.JSONExtractTextExpr(a.db, "metadata", "is_jackpot"))
	if errCount := conn.Model(&models.PointsTransaction{}).
		Where("type = ? AND created_at >= ? AND created_at < ?", models.TransactionSpinWin, start, end).
		Where(jackpotExpr).
		Count(&rep.JackpotWins).Error; errCount != nil {
		return Report{}, apperr.Internal("count jackpots failed", errCount)
	}
	if rep.TotalSpins > 0 {
		rep.JackpotRate = round4(float64(rep.JackpotWins) / float64(rep.TotalSpins))
	}

	var cogs struct {
		Count int64
		Cents int64
	}
	if errScan := conn.Model(&models.Redemption{}).
		Select("COUNT(*) AS count, COALESCE(SUM(cogs_value_cents), 0) AS cents").
		Where("redeemed_at >= ? AND redeemed_at < ?", start, end).
		Scan(&cogs).Error; errScan != nil {
		return Report{}, apperr.Internal("aggregate redemptions failed", errScan)
	}
	rep.RedemptionCount, rep.RedemptionCOGSCents = cogs.Count, cogs.Cents

	if errScan := conn.Model(&models.Order{}).
		Select("COALESCE(SUM(eligible_cents), 0)").
		Where("created_at >= ? AND created_at < ? AND status <> ?", start, end, orderstatus.StatusCancelled).
		Scan(&rep.EligiblePurchaseCents).Error; errScan != nil {
		return Report{}, apperr.Internal("aggregate orders failed", errScan)
	}
	if rep.EligiblePurchaseCents > 0 {
		giveback := decimal.NewFromInt(rep.RedemptionCOGSCents).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(rep.EligiblePurchaseCents))
		rep.GivebackPercent = giveback.Round(2).InexactFloat64()
	}

	if errScan := conn.Model(&models.LoyaltyProfile{}).
		Select("COALESCE(SUM(current_points), 0)").
		Scan(&rep.OutstandingPoints).Error; errScan != nil {
		return Report{}, apperr.Internal("aggregate balances failed", errScan)
	}
	rep.PointLiabilityCents = ledger.Cents(ledger.LiabilityForPoints(rep.OutstandingPoints))

	series, errSeries := a.series(conn, start, end, bucketUnit(q.Period))
	if errSeries != nil {
		return Report{}, errSeries
	}
	rep.Series = series
	rep.Alerts = alertsFor(rep)
	return rep, nil
}

func (a *Aggregator) series(conn *gorm.DB, start, end time.Time, unit string) ([]Bucket, error) {
	buckets := map[string]*Bucket{}
	get := func(key string) *Bucket {
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Bucket: key}
			buckets[key] = b
		}
		return b
	}

	var ledgerRows []struct {
		Bucket  string
		Type    models.TransactionType
		Credits int64
		Debits  int64
		Entries int64
	}
	bucketExpr := dbutil.TruncateTimeExpr(a.db, "created_at", unit)
	if errScan := conn.Model(&models.PointsTransaction{}).
		Select(bucketExpr+" AS bucket, type, "+
			"COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0) AS credits, "+
			"COALESCE(SUM(CASE WHEN points < 0 THEN -points ELSE 0 END), 0) AS debits, "+
			"COUNT(*) AS entries").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("bucket, type").
		Scan(&ledgerRows).Error; errScan != nil {
		return nil, apperr.Internal("aggregate ledger series failed", errScan)
	}
	for _, row := range ledgerRows {
		b := get(row.Bucket)
		b.PointsEarned += row.Credits
		if row.Type == models.TransactionExpiry {
			b.PointsExpired += row.Debits
		} else {
			b.PointsRedeemed += row.Debits
		}
		if row.Type == models.TransactionSpinWin {
			b.Spins += row.Entries
		}
	}

	var cogsRows []struct {
		Bucket string
		Cents  int64
	}
	cogsExpr := dbutil.TruncateTimeExpr(a.db, "redeemed_at", unit)
	if errScan := conn.Model(&models.Redemption{}).
		Select(cogsExpr+" AS bucket, COALESCE(SUM(cogs_value_cents), 0) AS cents").
		Where("redeemed_at >= ? AND redeemed_at < ?", start, end).
		Group("bucket").
		Scan(&cogsRows).Error; errScan != nil {
		return nil, apperr.Internal("aggregate redemption series failed", errScan)
	}
	for _, row := range cogsRows {
		get(row.Bucket).RedemptionCOGSCents += row.Cents
	}

	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out, nil
}

func alertsFor(rep Report) []Alert {
	alerts := []Alert{}
	givebackTarget := internalsettings.Float64(internalsettings.GivebackTargetPercentKey, internalsettings.DefaultGivebackTargetPercent)
	if rep.GivebackPercent > givebackTarget {
		alerts = append(alerts, Alert{
			Code:      AlertGiveback,
			Message:   fmt.Sprintf("Giveback %.2f%% exceeds the %.2f%% target", rep.GivebackPercent, givebackTarget),
			Value:     rep.GivebackPercent,
			Threshold: givebackTarget,
		})
	}
	liabilityThreshold := internalsettings.Int64(internalsettings.LiabilityThresholdCentsKey, internalsettings.DefaultLiabilityThresholdCents)
	if rep.PointLiabilityCents > liabilityThreshold {
		alerts = append(alerts, Alert{
			Code:      AlertLiability,
			Message:   fmt.Sprintf("Point liability $%s exceeds $%s", centsString(rep.PointLiabilityCents), centsString(liabilityThreshold)),
			Value:     float64(rep.PointLiabilityCents),
			Threshold: float64(liabilityThreshold),
		})
	}
	jackpotTarget := internalsettings.Float64(internalsettings.JackpotRateAlertPercentKey, internalsettings.DefaultJackpotRateAlertPercent)
	if ratePercent := rep.JackpotRate * 100; ratePercent > jackpotTarget {
		alerts = append(alerts, Alert{
			Code:      AlertJackpotRate,
			Message:   fmt.Sprintf("Jackpot rate %.2f%% exceeds %.2f%%", ratePercent, jackpotTarget),
			Value:     ratePercent,
			Threshold: jackpotTarget,
		})
	}
	return alerts
}

func centsString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
