package settings

// DB config keys and defaults for loyalty tunables.
const (
	// GivebackTargetPercentKey is the giveback percentage above which analytics raises an alert.
	GivebackTargetPercentKey = "GIVEBACK_TARGET_PERCENT"
	// LiabilityThresholdCentsKey is the point liability above which analytics raises an alert.
	LiabilityThresholdCentsKey = "LIABILITY_THRESHOLD_CENTS"
	// JackpotRateAlertPercentKey is the jackpot rate above which analytics raises an alert.
	JackpotRateAlertPercentKey = "JACKPOT_RATE_ALERT_PERCENT"
	// VolunteerDiscountThresholdCentsKey is the eligible subtotal a volunteer order must exceed.
	VolunteerDiscountThresholdCentsKey = "VOLUNTEER_DISCOUNT_THRESHOLD_CENTS"
	// VolunteerDiscountPercentKey is the volunteer discount rate.
	VolunteerDiscountPercentKey = "VOLUNTEER_DISCOUNT_PERCENT"
	// SpinCostPointsKey is the points debited per spin.
	SpinCostPointsKey = "SPIN_COST_POINTS"
	// SpinCooldownHoursKey is the minimum gap between two spins.
	SpinCooldownHoursKey = "SPIN_COOLDOWN_HOURS"

	// DefaultGivebackTargetPercent is the fallback giveback target.
	DefaultGivebackTargetPercent = 8.0
	// DefaultLiabilityThresholdCents is the fallback liability threshold ($5,000).
	DefaultLiabilityThresholdCents = 500000
	// DefaultJackpotRateAlertPercent is the fallback jackpot alert rate.
	DefaultJackpotRateAlertPercent = 2.0
	// DefaultVolunteerDiscountThresholdCents is the fallback volunteer threshold ($20).
	DefaultVolunteerDiscountThresholdCents = 2000
	// DefaultVolunteerDiscountPercent is the fallback volunteer discount.
	DefaultVolunteerDiscountPercent = 10.0
	// DefaultSpinCostPoints is the fallback spin cost.
	DefaultSpinCostPoints = 10
	// DefaultSpinCooldownHours is the fallback spin cooldown.
	DefaultSpinCooldownHours = 24
)

// Known lists every tunable key accepted by the settings endpoint.
var Known = map[string]struct{}{
	GivebackTargetPercentKey:           {},
	LiabilityThresholdCentsKey:         {},
	JackpotRateAlertPercentKey:         {},
	VolunteerDiscountThresholdCentsKey: {},
	VolunteerDiscountPercentKey:        {},
	SpinCostPointsKey:                  {},
	SpinCooldownHoursKey:               {},
}
