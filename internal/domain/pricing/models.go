package pricing

import (
	"time"

	"github.com/servabill/servabill/internal/domain/coupon"
	"github.com/servabill/servabill/internal/domain/tax"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// LineInput is one line-producing input to the presenter: a package term,
// an option value, a setup fee. Unit amounts arrive already
// currency-normalized.
type LineInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	Taxable     bool            `json:"taxable"`
	// Setup marks one-time setup fees, excluded from recurring views
	Setup bool `json:"setup"`
	// ServiceID ties the resulting invoice line back to a service
	ServiceID string `json:"service_id,omitempty"`
}

// CouponContext qualifies a coupon for a presenter run
type CouponContext struct {
	Coupon *coupon.Coupon
	// AsOf is the instant validity is evaluated against
	AsOf time.Time
	// Renewal restricts application to recurring coupons
	Renewal bool
}

// PresenterParams is the full input set of a presenter run
type PresenterParams struct {
	Lines    []LineInput
	TaxRules []*tax.Rule
	Coupon   *CouponContext
	Currency string
}

// Item is one computed billable line
type Item struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	Total       decimal.Decimal `json:"total"`
	Taxable     bool            `json:"taxable"`
	ServiceID   string          `json:"service_id,omitempty"`
}

// Discount is a synthetic negative-valued line surfacing a coupon reduction.
// It is never silently folded into unit prices.
type Discount struct {
	Description string          `json:"description"`
	CouponID    string          `json:"coupon_id"`
	Amount      decimal.Decimal `json:"amount"` // Negative
}

// TaxAmount is the combined tax one rule yields across all qualifying lines
type TaxAmount struct {
	RuleID string            `json:"rule_id"`
	Name   string            `json:"name"`
	Rate   decimal.Decimal   `json:"rate"`
	Type   types.TaxRuleType `json:"type"`
	Amount decimal.Decimal   `json:"amount"`
}

// Totals aggregates a presenter run
type Totals struct {
	// Subtotal is the sum of item lines before discounts and tax
	Subtotal decimal.Decimal `json:"subtotal"`
	// Total is the subtotal after discounts, before exclusive tax
	Total decimal.Decimal `json:"total"`
	// TotalAfterTax adds exclusive tax; inclusive tax is already inside
	TotalAfterTax decimal.Decimal `json:"total_after_tax"`
}

// Result is the transient computed bag consumed by the invoice issuer or
// the proration calculator and then discarded. Never persisted.
type Result struct {
	Items     []Item      `json:"items"`
	Discounts []Discount  `json:"discounts"`
	Taxes     []TaxAmount `json:"taxes"`
	Totals    Totals      `json:"totals"`
	Currency  string      `json:"currency"`
}

// DeltaParams is the input to a proration delta computation. The caller
// resolves both configurations into recurring-view line inputs (no setup
// fees) over the same unexpired window.
type DeltaParams struct {
	OldLines []LineInput
	NewLines []LineInput
	// AsOf is the effective instant of the change
	AsOf time.Time
	// PeriodStart/PeriodEnd bound the current billing term; PeriodEnd is
	// the service's renewal date
	PeriodStart time.Time
	PeriodEnd   time.Time
	Currency    string
	Strategy    types.ProrationStrategy
	// Timezone sets day boundaries for the day-based strategy; UTC when empty
	Timezone string
}

// Delta is the computed owed-or-creditable amount of a configuration change.
// Positive means money owed now, negative means creditable, zero means the
// change applies immediately with no financial side effect.
type Delta struct {
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	OldRemaining decimal.Decimal `json:"old_remaining"`
	NewRemaining decimal.Decimal `json:"new_remaining"`
	// Coefficient is the unexpired fraction of the term used for both sides
	Coefficient decimal.Decimal `json:"coefficient"`
}
