package tariff

import (
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/registry"
)

// perDayCategories lists the service categories whose fixed copay is
// charged per day rather than once per claim line. For these, a claim
// line's quantity represents days.
var perDayCategories = map[registry.ServiceCategory]bool{
	registry.CategoryInpatient: true,
}

var hundred = decimal.NewFromInt(100)

// LineCopay computes the patient's share of one claim line. Percentage
// rules apply to the line total, rounded half-up to 2 decimal places
// per line. Fixed rules charge once per line, or once per day for
// per-day categories.
func LineCopay(rule registry.CopayRule, category registry.ServiceCategory, lineTotal decimal.Decimal, quantity int) decimal.Decimal {
	switch rule.Kind {
	case registry.CopayPercentage:
		return lineTotal.Mul(rule.Percentage).Div(hundred).Round(2)
	case registry.CopayFixed:
		if perDayCategories[category] {
			return rule.Amount.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
		}
		return rule.Amount.Round(2)
	default:
		return decimal.Zero
	}
}
