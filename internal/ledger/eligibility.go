package ledger

import (
	"strings"

	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/shopspring/decimal"
)

// PointValue is the spend, in dollars, that earns one point. It is also the
// assumed redemption cost of one outstanding point.
var PointValue = decimal.RequireFromString("0.10")

// DefaultExcludedKeywords are label fragments that mark a line item as not earning points.
var DefaultExcludedKeywords = []string{
	"tax", "tip", "delivery", "alcohol", "beer", "wine", "liquor", "gift card",
}

// EligibilityPolicy decides whether a line item earns points.
type EligibilityPolicy interface {
	Eligible(item models.OrderItem) bool
}

// KeywordPolicy excludes items whose label contains any keyword, case-insensitively.
//
// Substring matching misclassifies labels such as "Tax Day Special"; a
// category-tagging policy can replace it without touching the ledger.
type KeywordPolicy struct {
	keywords []string
}

// NewKeywordPolicy builds a KeywordPolicy; with no keywords it uses DefaultExcludedKeywords.
func NewKeywordPolicy(keywords ...string) KeywordPolicy {
	if len(keywords) == 0 {
		keywords = DefaultExcludedKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return KeywordPolicy{keywords: normalized}
}

// Eligible implements EligibilityPolicy.
func (p KeywordPolicy) Eligible(item models.OrderItem) bool {
	label := strings.ToLower(item.Label)
	for _, kw := range p.keywords {
		if strings.Contains(label, kw) {
			return false
		}
	}
	return true
}

// EligibleAmount returns the order subtotal minus excluded line items, in dollars.
// The result is never negative.
func EligibleAmount(subtotalCents int64, items []models.OrderItem, policy EligibilityPolicy) decimal.Decimal {
	if policy == nil {
		policy = NewKeywordPolicy()
	}
	excluded := int64(0)
	for _, item := range items {
		if !policy.Eligible(item) {
			excluded += item.AmountCents
		}
	}
	eligible := subtotalCents - excluded
	if eligible < 0 {
		eligible = 0
	}
	return decimal.New(eligible, -2)
}

// PointsForAmount converts an eligible dollar amount into points, rounding down.
func PointsForAmount(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	return amount.Div(PointValue).Floor().IntPart()
}

// LiabilityForPoints returns the dollar obligation represented by points.
func LiabilityForPoints(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(PointValue)
}

// Cents converts a dollar amount to whole cents, rounding half away from zero.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
