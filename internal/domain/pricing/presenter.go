package pricing

import (
	"sort"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// ComputeTotals computes subtotal, per-rule tax, discount and total for a
// set of line-producing inputs. Pure function of its inputs: identical
// inputs always produce identical output, which re-invoicing relies on.
func ComputeTotals(params PresenterParams) (*Result, error) {
	if params.Currency == "" {
		return nil, ierr.NewError("invalid currency").
			WithHint("Currency is required").
			WithReportableDetails(map[string]any{"field": "currency"}).
			Mark(ierr.ErrValidation)
	}

	precision := types.GetCurrencyPrecision(params.Currency)

	result := &Result{
		Items:     []Item{},
		Discounts: []Discount{},
		Taxes:     []TaxAmount{},
		Currency:  params.Currency,
	}

	subtotal := decimal.Zero
	taxableSubtotal := decimal.Zero
	for _, line := range params.Lines {
		if line.Quantity.IsZero() {
			continue
		}
		total := line.Quantity.Mul(line.UnitAmount)
		result.Items = append(result.Items, Item{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitAmount:  line.UnitAmount,
			Total:       total,
			Taxable:     line.Taxable,
			ServiceID:   line.ServiceID,
		})
		subtotal = subtotal.Add(total)
		if line.Taxable {
			taxableSubtotal = taxableSubtotal.Add(total)
		}
	}

	// Coupon discount off the qualifying subtotal, surfaced as its own
	// negative line
	discountTotal := decimal.Zero
	if ctx := params.Coupon; ctx != nil && ctx.Coupon != nil {
		c := ctx.Coupon
		if !c.IsValidAt(ctx.AsOf, params.Currency) {
			return nil, ierr.NewErrorf("coupon %s is not valid", c.Code).
				WithHint("The coupon is expired, exhausted or in another currency").
				WithReportableDetails(map[string]any{"field": "coupon_id", "coupon": c.Code}).
				Mark(ierr.ErrValidation)
		}
		if !ctx.Renewal || c.Recurring {
			discountTotal = c.CalculateDiscount(subtotal).Round(precision)
			if discountTotal.GreaterThan(decimal.Zero) {
				result.Discounts = append(result.Discounts, Discount{
					Description: "Coupon " + c.Code,
					CouponID:    c.ID,
					Amount:      discountTotal.Neg(),
				})
			}
		}
	}

	// The discount reduces the tax base in proportion to the taxable share
	// of the subtotal
	taxBase := taxableSubtotal
	if discountTotal.GreaterThan(decimal.Zero) && subtotal.GreaterThan(decimal.Zero) {
		taxBase = taxBase.Sub(discountTotal.Mul(taxableSubtotal).Div(subtotal))
	}

	// Tax per applicable rule, aggregated by rule id so multiple lines
	// sharing a rule report one combined amount
	exclusiveTax := decimal.Zero
	byRule := map[string]*TaxAmount{}
	ruleOrder := []string{}
	for _, rule := range params.TaxRules {
		amount := rule.TaxOn(taxBase).Round(precision)
		if existing, ok := byRule[rule.ID]; ok {
			existing.Amount = existing.Amount.Add(amount)
		} else {
			byRule[rule.ID] = &TaxAmount{
				RuleID: rule.ID,
				Name:   rule.Name,
				Rate:   rule.Rate,
				Type:   rule.Type,
				Amount: amount,
			}
			ruleOrder = append(ruleOrder, rule.ID)
		}
		if !rule.IsInclusive() {
			exclusiveTax = exclusiveTax.Add(amount)
		}
	}

	// Stable ordering keeps output identical across runs
	sort.Strings(ruleOrder)
	for _, id := range ruleOrder {
		result.Taxes = append(result.Taxes, *byRule[id])
	}

	total := subtotal.Sub(discountTotal)
	result.Totals = Totals{
		Subtotal:      subtotal.Round(precision),
		Total:         total.Round(precision),
		TotalAfterTax: total.Add(exclusiveTax).Round(precision),
	}

	return result, nil
}

// RecurringView filters a line set down to its renewing lines, dropping
// one-time setup fees. Remaining-value computations for an existing service
// must never include setup fees.
func RecurringView(lines []LineInput) []LineInput {
	recurring := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		if line.Setup {
			continue
		}
		recurring = append(recurring, line)
	}
	return recurring
}
