package ledger

import (
	"testing"

	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEligibleAmountExcludesKeywordItems(t *testing.T) {
	items := []models.OrderItem{
		{Label: "Mushroom Risotto", Quantity: 1, AmountCents: 2200},
		{Label: "Sales Tax", Quantity: 1, AmountCents: 180},
		{Label: "Driver TIP", Quantity: 1, AmountCents: 300},
		{Label: "House Red Wine", Quantity: 1, AmountCents: 900},
		{Label: "Gift Card $25", Quantity: 1, AmountCents: 2500},
	}
	amount := EligibleAmount(6080, items, NewKeywordPolicy())
	require.True(t, amount.Equal(decimal.RequireFromString("22")), "got %s", amount)
	require.Equal(t, int64(220), PointsForAmount(amount))
}

func TestEligibleAmountNeverNegative(t *testing.T) {
	items := []models.OrderItem{{Label: "Delivery fee", AmountCents: 800}}
	amount := EligibleAmount(500, items, nil)
	require.True(t, amount.IsZero())
	require.Equal(t, int64(0), PointsForAmount(amount))
}

func TestPointsForAmountRoundsDown(t *testing.T) {
	require.Equal(t, int64(250), PointsForAmount(decimal.RequireFromString("25.00")))
	require.Equal(t, int64(250), PointsForAmount(decimal.RequireFromString("25.09")))
	require.Equal(t, int64(0), PointsForAmount(decimal.RequireFromString("0.09")))
	require.True(t, LiabilityForPoints(250).Equal(decimal.RequireFromString("25")))
	require.Equal(t, int64(2250), Cents(decimal.RequireFromString("22.5")))
}

func TestCustomKeywordPolicy(t *testing.T) {
	policy := NewKeywordPolicy("  Merch ", "")
	require.False(t, policy.Eligible(models.OrderItem{Label: "merch tote"}))
	require.True(t, policy.Eligible(models.OrderItem{Label: "Sales tax"}))
}
