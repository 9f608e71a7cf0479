package core

import "github.com/shopspring/decimal"

const (
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// DefaultRecentLimit is how many transactions the recent list shows by default.
const DefaultRecentLimit = 10

var (
	hundred           = decimal.NewFromInt(100)
	warningThreshold  = decimal.NewFromInt(75)
	criticalThreshold = decimal.NewFromInt(90)
)

// Tier is a severity bucket derived from a progress percentage.
type Tier string

// Progress reports how far a target has been reached. Set is false when the
// target is 0 (unset); Percentage is then zero.
type Progress struct {
	Set        bool
	Percentage decimal.Decimal
	Tier       Tier
}

// CategoryShare is one row of the expense breakdown.
type CategoryShare struct {
	Category   Category
	Amount     decimal.Decimal
	Percentage decimal.Decimal // share of total expenses, one decimal place
}

// TierFor buckets a percentage: <75 normal, <90 warning, otherwise critical.
func TierFor(pct decimal.Decimal) Tier {
	switch {
	case pct.GreaterThanOrEqual(criticalThreshold):
		return TierCritical
	case pct.GreaterThanOrEqual(warningThreshold):
		return TierWarning
	default:
		return TierNormal
	}
}

// Percent returns part/whole*100 capped at 100. A zero whole yields zero and
// negative parts count as zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() || !part.IsPositive() {
		return decimal.Zero
	}
	pct := part.Mul(hundred).Div(whole)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
