package tax

import (
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Rule is an applicable tax rule resolved for a client context
type Rule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Rate is a percentage, e.g. 20 for 20%
	Rate decimal.Decimal `json:"rate"`
	Type types.TaxRuleType `json:"type"`

	types.BaseModel
}

// IsInclusive reports whether the rule extracts tax from stated prices
// instead of adding on top
func (r *Rule) IsInclusive() bool {
	return r.Type == types.TaxRuleTypeInclusive
}

// TaxOn returns the tax amount this rule yields on a taxable amount.
// Exclusive: amount * rate/100. Inclusive: the portion of amount that is tax,
// amount - amount / (1 + rate/100).
func (r *Rule) TaxOn(amount decimal.Decimal) decimal.Decimal {
	rate := r.Rate.Div(decimal.NewFromInt(100))
	if r.IsInclusive() {
		return amount.Sub(amount.Div(decimal.NewFromInt(1).Add(rate)))
	}
	return amount.Mul(rate)
}
