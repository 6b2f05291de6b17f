package pricing

import (
	"testing"
	"time"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDelta_DayBased(t *testing.T) {
	periodStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		params        DeltaParams
		expectedTotal string
		expectedError bool
	}{
		{
			// $10 monthly upgraded to $20 halfway through a 30 day term
			name: "midterm_upgrade_owes_half_difference",
			params: DeltaParams{
				OldLines: []LineInput{
					{Description: "Basic", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
				},
				NewLines: []LineInput{
					{Description: "Pro", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(20)},
				},
				AsOf:        time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Currency:    "usd",
			},
			expectedTotal: "5",
		},
		{
			name: "midterm_downgrade_credits_half_difference",
			params: DeltaParams{
				OldLines: []LineInput{
					{Description: "Pro", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(20)},
				},
				NewLines: []LineInput{
					{Description: "Basic", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
				},
				AsOf:        time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Currency:    "usd",
			},
			expectedTotal: "-5",
		},
		{
			name: "identical_configurations_yield_zero",
			params: DeltaParams{
				OldLines: []LineInput{
					{Description: "Basic", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
				},
				NewLines: []LineInput{
					{Description: "Basic", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
				},
				AsOf:        time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Currency:    "usd",
			},
			expectedTotal: "0",
		},
		{
			// Setup fees apply only at initial purchase, never to remaining value
			name: "setup_fees_excluded_from_both_sides",
			params: DeltaParams{
				OldLines: []LineInput{
					{Description: "Basic", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
					{Description: "Basic Setup", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(50), Setup: true},
				},
				NewLines: []LineInput{
					{Description: "Pro", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(20)},
					{Description: "Pro Setup", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(99), Setup: true},
				},
				AsOf:        time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Currency:    "usd",
			},
			expectedTotal: "5",
		},
		{
			name: "change_after_period_end_yields_zero",
			params: DeltaParams{
				OldLines: []LineInput{
					{Description: "Basic", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
				},
				NewLines: []LineInput{
					{Description: "Pro", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(20)},
				},
				AsOf:        time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Currency:    "usd",
			},
			expectedTotal: "0",
		},
		{
			name: "inverted_period_rejected",
			params: DeltaParams{
				OldLines:    []LineInput{},
				NewLines:    []LineInput{},
				AsOf:        time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
				PeriodStart: periodEnd,
				PeriodEnd:   periodStart,
				Currency:    "usd",
			},
			expectedError: true,
		},
		{
			name: "missing_currency_rejected",
			params: DeltaParams{
				OldLines:    []LineInput{},
				NewLines:    []LineInput{},
				AsOf:        time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calculator := NewCalculator(types.ProrationStrategyDayBased)
			delta, err := calculator.ComputeDelta(tt.params)
			if tt.expectedError {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, delta.Total.Equal(decimal.RequireFromString(tt.expectedTotal)),
				"expected %s, got %s", tt.expectedTotal, delta.Total)
		})
	}
}

func TestComputeDelta_SignCorrectness(t *testing.T) {
	periodStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	calculator := NewCalculator(types.ProrationStrategyDayBased)

	for _, pair := range []struct {
		oldPrice int64
		newPrice int64
	}{
		{10, 20}, {20, 10}, {15, 15}, {1, 100}, {100, 1},
	} {
		params := DeltaParams{
			OldLines: []LineInput{
				{Description: "Old", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(pair.oldPrice)},
			},
			NewLines: []LineInput{
				{Description: "New", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(pair.newPrice)},
			},
			AsOf:        asOf,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Currency:    "usd",
		}

		delta, err := calculator.ComputeDelta(params)
		require.NoError(t, err)

		// Positive total iff the new remaining value exceeds the old one
		switch {
		case pair.newPrice > pair.oldPrice:
			assert.True(t, delta.Total.IsPositive())
		case pair.newPrice < pair.oldPrice:
			assert.True(t, delta.Total.IsNegative())
		default:
			assert.True(t, delta.Total.IsZero())
		}
	}
}

func TestComputeDelta_SecondBased(t *testing.T) {
	periodStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	// Exactly the midpoint of the term
	asOf := periodStart.Add(periodEnd.Sub(periodStart) / 2)

	calculator := NewCalculator(types.ProrationStrategySecondBased)
	delta, err := calculator.ComputeDelta(DeltaParams{
		OldLines: []LineInput{
			{Description: "Basic", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
		},
		NewLines: []LineInput{
			{Description: "Pro", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(20)},
		},
		AsOf:        asOf,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Currency:    "usd",
	})
	require.NoError(t, err)

	assert.True(t, delta.Total.Equal(decimal.NewFromInt(5)),
		"expected 5, got %s", delta.Total)
}

func TestComputeDelta_StrategyOverride(t *testing.T) {
	periodStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	// Midday, where the day-based and second-based coefficients disagree
	asOf := time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC)

	params := DeltaParams{
		OldLines: []LineInput{},
		NewLines: []LineInput{
			{Description: "Pro", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
		},
		AsOf:        asOf,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Currency:    "usd",
	}

	calculator := NewCalculator(types.ProrationStrategyDayBased)

	delta, err := calculator.ComputeDelta(params)
	require.NoError(t, err)
	assert.True(t, delta.Total.Equal(decimal.NewFromInt(5)),
		"expected 5, got %s", delta.Total)

	params.Strategy = types.ProrationStrategySecondBased
	delta, err = calculator.ComputeDelta(params)
	require.NoError(t, err)
	assert.True(t, delta.Total.Equal(decimal.RequireFromString("4.5")),
		"expected 4.5, got %s", delta.Total)
}

func TestComputeDelta_CurrencyMinorUnitRounding(t *testing.T) {
	// 10 days remaining of a 30 day term, 1/3 coefficient forces rounding
	periodStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)

	calculator := NewCalculator(types.ProrationStrategyDayBased)
	delta, err := calculator.ComputeDelta(DeltaParams{
		OldLines: []LineInput{},
		NewLines: []LineInput{
			{Description: "Pro", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(10)},
		},
		AsOf:        asOf,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Currency:    "usd",
	})
	require.NoError(t, err)

	// 10 * 10/30 = 3.333... rounded to usd minor units
	assert.True(t, delta.Total.Equal(decimal.RequireFromString("3.33")),
		"expected 3.33, got %s", delta.Total)
}
