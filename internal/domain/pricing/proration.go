package pricing

import (
	"time"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Calculator computes the prorated delta of a configuration change
type Calculator interface {
	ComputeDelta(params DeltaParams) (*Delta, error)
}

// NewCalculator creates a proration calculator defaulting to the given
// strategy. A non-empty DeltaParams.Strategy overrides the default per call.
func NewCalculator(strategy types.ProrationStrategy) Calculator {
	return &calculator{defaultStrategy: strategy}
}

type calculator struct {
	defaultStrategy types.ProrationStrategy
}

func (c *calculator) ComputeDelta(params DeltaParams) (*Delta, error) {
	strategy := params.Strategy
	if strategy == "" {
		strategy = c.defaultStrategy
	}
	switch strategy {
	case types.ProrationStrategySecondBased:
		return computeDeltaSecondBased(params)
	default:
		return computeDeltaDayBased(params)
	}
}

// computeDeltaDayBased implements the default day-based proration logic
func computeDeltaDayBased(params DeltaParams) (*Delta, error) {
	loc, err := resolveLocation(params.Timezone)
	if err != nil {
		return nil, err
	}
	if err := validateDeltaParams(params); err != nil {
		return nil, err
	}

	asOfInTZ := params.AsOf.In(loc)
	periodStartInTZ := params.PeriodStart.In(loc)
	periodEndInTZ := params.PeriodEnd.In(loc)

	// Total days in the period (inclusive start, exclusive end)
	totalDays := daysInDurationWithDST(periodStartInTZ, periodEndInTZ, loc)
	if totalDays <= 0 {
		return nil, ierr.NewError("invalid billing period").
			WithHintf("total days is zero or negative (%v to %v)", params.PeriodStart, params.PeriodEnd).
			Mark(ierr.ErrValidation)
	}

	// Remaining days (inclusive change date, exclusive period end)
	remainingDays := daysInDurationWithDST(asOfInTZ, periodEndInTZ, loc)
	if remainingDays < 0 {
		remainingDays = 0 // Change happened after period end
	}

	coefficient := decimal.NewFromInt(int64(remainingDays)).
		Div(decimal.NewFromInt(int64(totalDays)))

	return computeDeltaWithCoefficient(params, coefficient)
}

// computeDeltaSecondBased measures the unexpired window in seconds for
// higher precision
func computeDeltaSecondBased(params DeltaParams) (*Delta, error) {
	if _, err := resolveLocation(params.Timezone); err != nil {
		return nil, err
	}
	if err := validateDeltaParams(params); err != nil {
		return nil, err
	}

	totalSeconds := params.PeriodEnd.Sub(params.PeriodStart).Seconds()
	if totalSeconds <= 0 {
		return nil, ierr.NewError("invalid billing period").
			WithHintf("total seconds is zero or negative (%v to %v)", params.PeriodStart, params.PeriodEnd).
			Mark(ierr.ErrValidation)
	}

	remainingSeconds := params.PeriodEnd.Sub(params.AsOf).Seconds()
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}

	coefficient := decimal.NewFromFloat(remainingSeconds).
		Div(decimal.NewFromFloat(totalSeconds))

	return computeDeltaWithCoefficient(params, coefficient)
}

// computeDeltaWithCoefficient evaluates both configurations over the same
// remaining window via the presenter's recurring view and subtracts.
// Setup fees never participate: they apply only at initial purchase.
func computeDeltaWithCoefficient(params DeltaParams, coefficient decimal.Decimal) (*Delta, error) {
	oldResult, err := ComputeTotals(PresenterParams{
		Lines:    RecurringView(params.OldLines),
		Currency: params.Currency,
	})
	if err != nil {
		return nil, err
	}

	newResult, err := ComputeTotals(PresenterParams{
		Lines:    RecurringView(params.NewLines),
		Currency: params.Currency,
	})
	if err != nil {
		return nil, err
	}

	precision := types.GetCurrencyPrecision(params.Currency)
	oldRemaining := oldResult.Totals.Total.Mul(coefficient).Round(precision)
	newRemaining := newResult.Totals.Total.Mul(coefficient).Round(precision)

	return &Delta{
		Total:        newRemaining.Sub(oldRemaining),
		Currency:     params.Currency,
		OldRemaining: oldRemaining,
		NewRemaining: newRemaining,
		Coefficient:  coefficient,
	}, nil
}

// daysInDurationWithDST calculates the number of calendar days between two
// points in time, considering the given timezone for day boundaries and
// handling DST transitions.
func daysInDurationWithDST(start, end time.Time, loc *time.Location) int {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)

	days := 0
	current := startDay
	for current.Before(endDay) {
		days++
		// Add 24 hours, then normalize to midnight to handle DST
		next := current.Add(24 * time.Hour)
		current = time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc)
	}

	return days
}

func resolveLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to load timezone '%s'", timezone).
			Mark(ierr.ErrSystem)
	}
	return loc, nil
}

func validateDeltaParams(params DeltaParams) error {
	if params.AsOf.IsZero() {
		return ierr.NewError("proration date is required").
			WithHint("The effective change date must be set").
			WithReportableDetails(map[string]any{"field": "as_of"}).
			Mark(ierr.ErrValidation)
	}
	if params.PeriodStart.IsZero() || params.PeriodEnd.IsZero() {
		return ierr.NewError("billing period start and end dates are required").
			WithHint("Both period bounds must be set").
			WithReportableDetails(map[string]any{"field": "period"}).
			Mark(ierr.ErrValidation)
	}
	if params.PeriodEnd.Before(params.PeriodStart) {
		return ierr.NewError("billing period end date cannot be before start date").
			WithHint("Check the service's renewal date").
			WithReportableDetails(map[string]any{"field": "period"}).
			Mark(ierr.ErrValidation)
	}
	if params.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			WithReportableDetails(map[string]any{"field": "currency"}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
