package pricing

import (
	"testing"
	"time"

	"github.com/servabill/servabill/internal/domain/coupon"
	"github.com/servabill/servabill/internal/domain/tax"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals_ExclusiveTax(t *testing.T) {
	result, err := ComputeTotals(PresenterParams{
		Lines: []LineInput{
			{Description: "Basic Hosting", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(100), Taxable: true},
		},
		TaxRules: []*tax.Rule{
			{ID: "tax_vat", Name: "VAT", Rate: decimal.NewFromInt(20), Type: types.TaxRuleTypeExclusive},
		},
		Currency: "usd",
	})
	require.NoError(t, err)

	assert.True(t, result.Totals.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.Totals.Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.Totals.TotalAfterTax.Equal(decimal.NewFromInt(120)))
	require.Len(t, result.Taxes, 1)
	assert.True(t, result.Taxes[0].Amount.Equal(decimal.NewFromInt(20)))
}

func TestComputeTotals_InclusiveTax(t *testing.T) {
	result, err := ComputeTotals(PresenterParams{
		Lines: []LineInput{
			{Description: "Basic Hosting", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(120), Taxable: true},
		},
		TaxRules: []*tax.Rule{
			{ID: "tax_vat", Name: "VAT", Rate: decimal.NewFromInt(20), Type: types.TaxRuleTypeInclusive},
		},
		Currency: "usd",
	})
	require.NoError(t, err)

	// Inclusive tax is extracted from the stated price, not added on top
	assert.True(t, result.Totals.TotalAfterTax.Equal(decimal.NewFromInt(120)))
	require.Len(t, result.Taxes, 1)
	assert.True(t, result.Taxes[0].Amount.Equal(decimal.NewFromInt(20)),
		"expected 20, got %s", result.Taxes[0].Amount)
}

func TestComputeTotals_TaxAggregatedByRule(t *testing.T) {
	sharedRule := &tax.Rule{ID: "tax_shared", Name: "GST", Rate: decimal.NewFromInt(10), Type: types.TaxRuleTypeExclusive}
	result, err := ComputeTotals(PresenterParams{
		Lines: []LineInput{
			{Description: "Line A", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(40), Taxable: true},
			{Description: "Line B", Quantity: decimal.NewFromInt(2), UnitAmount: decimal.NewFromInt(30), Taxable: true},
		},
		TaxRules: []*tax.Rule{sharedRule, sharedRule},
		Currency: "usd",
	})
	require.NoError(t, err)

	// Two references to one rule still report a single combined entry
	require.Len(t, result.Taxes, 1)
	assert.True(t, result.Taxes[0].Amount.Equal(decimal.NewFromInt(20)))
}

func TestComputeTotals_CouponDiscountLine(t *testing.T) {
	pct := decimal.NewFromInt(25)
	result, err := ComputeTotals(PresenterParams{
		Lines: []LineInput{
			{Description: "Pro Hosting", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(80)},
		},
		Coupon: &CouponContext{
			Coupon: &coupon.Coupon{ID: "cpn_1", Code: "SAVE25", Type: types.CouponTypePercentage, PercentageOff: &pct},
			AsOf:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Currency: "usd",
	})
	require.NoError(t, err)

	require.Len(t, result.Discounts, 1)
	assert.True(t, result.Discounts[0].Amount.Equal(decimal.NewFromInt(-20)))
	assert.True(t, result.Totals.Total.Equal(decimal.NewFromInt(60)))
}

func TestComputeTotals_RecurringCouponSkippedOnRenewalWhenNotRecurring(t *testing.T) {
	amount := decimal.NewFromInt(10)
	result, err := ComputeTotals(PresenterParams{
		Lines: []LineInput{
			{Description: "Pro Hosting", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(50)},
		},
		Coupon: &CouponContext{
			Coupon:  &coupon.Coupon{ID: "cpn_1", Code: "ONCE", Type: types.CouponTypeAmount, AmountOff: &amount, Recurring: false},
			AsOf:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Renewal: true,
		},
		Currency: "usd",
	})
	require.NoError(t, err)

	assert.Empty(t, result.Discounts)
	assert.True(t, result.Totals.Total.Equal(decimal.NewFromInt(50)))
}

func TestComputeTotals_ExpiredCouponRejected(t *testing.T) {
	amount := decimal.NewFromInt(10)
	expired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := ComputeTotals(PresenterParams{
		Lines: []LineInput{
			{Description: "Pro Hosting", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(50)},
		},
		Coupon: &CouponContext{
			Coupon: &coupon.Coupon{ID: "cpn_1", Code: "OLD", Type: types.CouponTypeAmount, AmountOff: &amount, RedeemBefore: &expired},
			AsOf:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Currency: "usd",
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestComputeTotals_Deterministic(t *testing.T) {
	pct := decimal.NewFromInt(10)
	params := PresenterParams{
		Lines: []LineInput{
			{Description: "Pro Hosting", Quantity: decimal.NewFromInt(3), UnitAmount: decimal.RequireFromString("9.99"), Taxable: true},
			{Description: "Extra IP", Quantity: decimal.NewFromInt(2), UnitAmount: decimal.RequireFromString("1.50"), Taxable: true},
		},
		TaxRules: []*tax.Rule{
			{ID: "tax_b", Name: "State", Rate: decimal.NewFromInt(5), Type: types.TaxRuleTypeExclusive},
			{ID: "tax_a", Name: "Federal", Rate: decimal.NewFromInt(7), Type: types.TaxRuleTypeExclusive},
		},
		Coupon: &CouponContext{
			Coupon: &coupon.Coupon{ID: "cpn_1", Code: "TEN", Type: types.CouponTypePercentage, PercentageOff: &pct},
			AsOf:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Currency: "usd",
	}

	first, err := ComputeTotals(params)
	require.NoError(t, err)
	second, err := ComputeTotals(params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Totals.TotalAfterTax.String(), second.Totals.TotalAfterTax.String())
}

func TestComputeTotals_ZeroQuantityLinesDropped(t *testing.T) {
	result, err := ComputeTotals(PresenterParams{
		Lines: []LineInput{
			{Description: "Pro Hosting", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
			{Description: "Unused Option", Quantity: decimal.Zero, UnitAmount: decimal.NewFromInt(5)},
		},
		Currency: "usd",
	})
	require.NoError(t, err)

	assert.Len(t, result.Items, 1)
	assert.True(t, result.Totals.Subtotal.Equal(decimal.NewFromInt(10)))
}
