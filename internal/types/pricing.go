package types

import (
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/samber/lo"
)

// PeriodUnit is the unit a package pricing term is measured in
type PeriodUnit string

const (
	PeriodUnitDay     PeriodUnit = "day"
	PeriodUnitWeek    PeriodUnit = "week"
	PeriodUnitMonth   PeriodUnit = "month"
	PeriodUnitYear    PeriodUnit = "year"
	PeriodUnitOneTime PeriodUnit = "onetime"
)

var PeriodUnitValues = []PeriodUnit{
	PeriodUnitDay,
	PeriodUnitWeek,
	PeriodUnitMonth,
	PeriodUnitYear,
	PeriodUnitOneTime,
}

func (p PeriodUnit) String() string {
	return string(p)
}

func (p PeriodUnit) Validate() error {
	if !lo.Contains(PeriodUnitValues, p) {
		return ierr.NewError("invalid period unit").
			WithHint("Period unit must be day, week, month, year or onetime").
			WithReportableDetails(map[string]any{
				"allowed_values": PeriodUnitValues,
				"provided_value": p,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsRecurring reports whether the unit describes a renewing term.
// One-time terms are never prorated and never renew.
func (p PeriodUnit) IsRecurring() bool {
	return p != PeriodUnitOneTime
}

// ProrationStrategy defines how the unexpired-term coefficient is measured
type ProrationStrategy string

const (
	ProrationStrategyDayBased    ProrationStrategy = "day_based" // Default
	ProrationStrategySecondBased ProrationStrategy = "second_based"
)

var ProrationStrategyValues = []ProrationStrategy{
	ProrationStrategyDayBased,
	ProrationStrategySecondBased,
}

func (p ProrationStrategy) Validate() error {
	if !lo.Contains(ProrationStrategyValues, p) {
		return ierr.NewError("invalid proration strategy").
			WithHint("Proration strategy must be day_based or second_based").
			WithReportableDetails(map[string]any{
				"allowed_values": ProrationStrategyValues,
				"provided_value": p,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TaxRuleType captures inclusive vs exclusive tax semantics. Exclusive tax
// adds to the stated price; inclusive tax is extracted from it.
type TaxRuleType string

const (
	TaxRuleTypeExclusive TaxRuleType = "exclusive"
	TaxRuleTypeInclusive TaxRuleType = "inclusive"
)

var TaxRuleTypeValues = []TaxRuleType{
	TaxRuleTypeExclusive,
	TaxRuleTypeInclusive,
}

func (t TaxRuleType) String() string {
	return string(t)
}

func (t TaxRuleType) Validate() error {
	if !lo.Contains(TaxRuleTypeValues, t) {
		return ierr.NewError("invalid tax rule type").
			WithHint("Tax rule type must be either exclusive or inclusive").
			WithReportableDetails(map[string]any{
				"allowed_values": TaxRuleTypeValues,
				"provided_value": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CouponType is the kind of reduction a coupon grants
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeAmount     CouponType = "amount"
)

var CouponTypeValues = []CouponType{
	CouponTypePercentage,
	CouponTypeAmount,
}

func (c CouponType) String() string {
	return string(c)
}

func (c CouponType) Validate() error {
	if !lo.Contains(CouponTypeValues, c) {
		return ierr.NewError("invalid coupon type").
			WithHint("Coupon type must be either percentage or amount").
			WithReportableDetails(map[string]any{
				"allowed_values": CouponTypeValues,
				"provided_value": c,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// OptionValueType is how a package option is presented and quantified
type OptionValueType string

const (
	OptionValueTypeQuantity OptionValueType = "quantity" // Numeric, price multiplied by units
	OptionValueTypeSelect   OptionValueType = "select"   // One value chosen from a fixed set
)

var OptionValueTypeValues = []OptionValueType{
	OptionValueTypeQuantity,
	OptionValueTypeSelect,
}

func (o OptionValueType) Validate() error {
	if !lo.Contains(OptionValueTypeValues, o) {
		return ierr.NewError("invalid option value type").
			WithHint("Option value type must be quantity or select").
			WithReportableDetails(map[string]any{
				"allowed_values": OptionValueTypeValues,
				"provided_value": o,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
