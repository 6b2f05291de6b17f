package catalog

import (
	"time"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Package is a sellable offering with one or more pricing terms.
// Immutable once referenced by a live service except through admin edit.
type Package struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// ModuleID resolves the provisioning backend for services sold under
	// this package
	ModuleID string `json:"module_id"`
	// ProrationDay, when set, pins renewal dates to a fixed day of month
	// instead of resetting to activation date + one term
	ProrationDay *int              `json:"proration_day,omitempty"`
	Pricings     []*PackagePricing `json:"pricings,omitempty"`
	Options      []*PackageOption  `json:"options,omitempty"`

	types.BaseModel
}

// PackagePricing is one specific (term, period, price) combination a package
// can be sold under. It is the unit addressed when a service's plan changes.
type PackagePricing struct {
	ID        string `json:"id"`
	PackageID string `json:"package_id"`
	// Term is the number of period units one billing cycle spans
	Term       int              `json:"term"`
	PeriodUnit types.PeriodUnit `json:"period_unit"`
	Price      decimal.Decimal  `json:"price"`
	// PriceRenews is charged at renewal instead of Price when set
	PriceRenews *decimal.Decimal `json:"price_renews,omitempty"`
	SetupFee    decimal.Decimal  `json:"setup_fee"`
	Currency    string           `json:"currency"`

	types.BaseModel
}

// PackageOption is a configurable add-on dimension attached to a package
type PackageOption struct {
	ID        string                `json:"id"`
	PackageID string                `json:"package_id"`
	Label     string                `json:"label"`
	Name      string                `json:"name"`
	Type      types.OptionValueType `json:"type"`
	// Addable permits non-privileged actors to newly attach the option
	Addable bool `json:"addable"`
	// Editable permits non-privileged actors to change the option post-purchase
	Editable bool                  `json:"editable"`
	Values   []*PackageOptionValue `json:"values,omitempty"`

	types.BaseModel
}

// PackageOptionValue is one selectable value of an option, carrying its own
// price at a given term/period/currency
type PackageOptionValue struct {
	ID       string `json:"id"`
	OptionID string `json:"option_id"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	// Min/Max bound quantity-type options; nil means unbounded
	Min      *int                  `json:"min,omitempty"`
	Max      *int                  `json:"max,omitempty"`
	Pricings []*OptionValuePricing `json:"pricings,omitempty"`

	types.BaseModel
}

// OptionValuePricing prices an option value for a specific term and currency
type OptionValuePricing struct {
	ID            string           `json:"id"`
	OptionValueID string           `json:"option_value_id"`
	Term          int              `json:"term"`
	PeriodUnit    types.PeriodUnit `json:"period_unit"`
	Price         decimal.Decimal  `json:"price"`
	SetupFee      decimal.Decimal  `json:"setup_fee"`
	Currency      string           `json:"currency"`

	types.BaseModel
}

// AddTermTo returns the given time advanced by one full billing term.
// One-time terms do not renew and return the input unchanged.
func (p *PackagePricing) AddTermTo(t time.Time) time.Time {
	switch p.PeriodUnit {
	case types.PeriodUnitDay:
		return t.AddDate(0, 0, p.Term)
	case types.PeriodUnitWeek:
		return t.AddDate(0, 0, 7*p.Term)
	case types.PeriodUnitMonth:
		return t.AddDate(0, p.Term, 0)
	case types.PeriodUnitYear:
		return t.AddDate(p.Term, 0, 0)
	default:
		return t
	}
}

// RenewalPrice returns the price charged on renewal cycles
func (p *PackagePricing) RenewalPrice() decimal.Decimal {
	if p.PriceRenews != nil {
		return *p.PriceRenews
	}
	return p.Price
}

// IsRecurring reports whether the pricing term renews
func (p *PackagePricing) IsRecurring() bool {
	return p.PeriodUnit.IsRecurring()
}

// Validate validates the pricing term
func (p *PackagePricing) Validate() error {
	if err := p.PeriodUnit.Validate(); err != nil {
		return err
	}
	if p.PeriodUnit != types.PeriodUnitOneTime && p.Term <= 0 {
		return ierr.NewError("invalid pricing term").
			WithHint("Term must be positive for recurring periods").
			WithReportableDetails(map[string]any{"term": p.Term}).
			Mark(ierr.ErrValidation)
	}
	if p.Price.IsNegative() || p.SetupFee.IsNegative() {
		return ierr.NewError("invalid pricing amount").
			WithHint("Price and setup fee must not be negative").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FindPricing returns the pricing term with the given id, nil when absent
func (p *Package) FindPricing(pricingID string) *PackagePricing {
	for _, pricing := range p.Pricings {
		if pricing.ID == pricingID {
			return pricing
		}
	}
	return nil
}

// FindOption returns the option with the given id, nil when absent
func (p *Package) FindOption(optionID string) *PackageOption {
	for _, option := range p.Options {
		if option.ID == optionID {
			return option
		}
	}
	return nil
}

// FindValue returns the option value with the given id, nil when absent
func (o *PackageOption) FindValue(valueID string) *PackageOptionValue {
	for _, value := range o.Values {
		if value.ID == valueID {
			return value
		}
	}
	return nil
}

// PricingFor returns the option value price matching a term, period and
// currency, nil when the value is not offered under those terms
func (v *PackageOptionValue) PricingFor(term int, periodUnit types.PeriodUnit, currency string) *OptionValuePricing {
	for _, pricing := range v.Pricings {
		if pricing.Term == term && pricing.PeriodUnit == periodUnit && types.IsSameCurrency(pricing.Currency, currency) {
			return pricing
		}
	}
	return nil
}
