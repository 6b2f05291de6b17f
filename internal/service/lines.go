package service

import (
	"context"
	"fmt"

	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/pricing"
	svc "github.com/servabill/servabill/internal/domain/service"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// serviceConfig is one resolvable billing configuration: either a service's
// current state or the target field set of a queued change
type serviceConfig struct {
	ServiceID        string
	Quantity         int
	Options          []*svc.ServiceOption
	OverridePrice    *decimal.Decimal
	OverrideCurrency *string
}

// resolveConfigLines turns a configuration into presenter line inputs at
// the given pricing term. Renewal runs use the renewal price and skip
// setup fees.
func resolveConfigLines(pkg *catalog.Package, pricingTerm *catalog.PackagePricing, cfg serviceConfig, renewal bool) ([]pricing.LineInput, string, error) {
	currency := pricingTerm.Currency
	unitPrice := pricingTerm.Price
	if renewal {
		unitPrice = pricingTerm.RenewalPrice()
	}
	if cfg.OverridePrice != nil {
		unitPrice = *cfg.OverridePrice
		if cfg.OverrideCurrency != nil && *cfg.OverrideCurrency != "" {
			currency = *cfg.OverrideCurrency
		}
	}

	lines := []pricing.LineInput{{
		Description: pkg.Name,
		Quantity:    decimal.NewFromInt(int64(cfg.Quantity)),
		UnitAmount:  unitPrice,
		Taxable:     true,
		ServiceID:   cfg.ServiceID,
	}}

	if !renewal && pricingTerm.SetupFee.GreaterThan(decimal.Zero) {
		lines = append(lines, pricing.LineInput{
			Description: fmt.Sprintf("%s setup fee", pkg.Name),
			Quantity:    decimal.NewFromInt(1),
			UnitAmount:  pricingTerm.SetupFee,
			Taxable:     true,
			Setup:       true,
			ServiceID:   cfg.ServiceID,
		})
	}

	for _, selected := range cfg.Options {
		option := pkg.FindOption(selected.OptionID)
		if option == nil {
			return nil, "", ierr.NewErrorf("option %s not found on package %s", selected.OptionID, pkg.ID).
				WithHint("The selected option does not belong to this package").
				WithReportableDetails(map[string]any{"option_id": selected.OptionID}).
				Mark(ierr.ErrValidation)
		}
		value := option.FindValue(selected.ValueID)
		if value == nil {
			return nil, "", ierr.NewErrorf("value %s not found on option %s", selected.ValueID, option.ID).
				WithHint("The selected option value does not exist").
				WithReportableDetails(map[string]any{"value_id": selected.ValueID}).
				Mark(ierr.ErrValidation)
		}

		valuePricing := value.PricingFor(pricingTerm.Term, pricingTerm.PeriodUnit, currency)
		if valuePricing == nil {
			return nil, "", ierr.NewErrorf("option value %s is not priced for this term", value.ID).
				WithHint("The option value is not offered under the service's billing term").
				WithReportableDetails(map[string]any{
					"value_id": value.ID,
					"term":     pricingTerm.Term,
					"currency": currency,
				}).
				Mark(ierr.ErrValidation)
		}

		quantity := 1
		if option.Type == types.OptionValueTypeQuantity {
			quantity = selected.Quantity
		}

		lines = append(lines, pricing.LineInput{
			Description: fmt.Sprintf("%s: %s", option.Label, value.Name),
			Quantity:    decimal.NewFromInt(int64(quantity)),
			UnitAmount:  valuePricing.Price,
			Taxable:     true,
			ServiceID:   cfg.ServiceID,
		})

		if !renewal && valuePricing.SetupFee.GreaterThan(decimal.Zero) {
			lines = append(lines, pricing.LineInput{
				Description: fmt.Sprintf("%s: %s setup fee", option.Label, value.Name),
				Quantity:    decimal.NewFromInt(1),
				UnitAmount:  valuePricing.SetupFee,
				Taxable:     true,
				Setup:       true,
				ServiceID:   cfg.ServiceID,
			})
		}
	}

	return lines, currency, nil
}

func configFromService(s *svc.Service) serviceConfig {
	return serviceConfig{
		ServiceID:        s.ID,
		Quantity:         s.Quantity,
		Options:          s.Options,
		OverridePrice:    s.OverridePrice,
		OverrideCurrency: s.OverrideCurrency,
	}
}

// validateOptionChanges enforces the option mutation rules: quantity bounds
// apply to every actor, while attaching a new option or editing an existing
// one is gated on the option's Addable/Editable flags for non-staff actors.
func validateOptionChanges(ctx context.Context, pkg *catalog.Package, current, target []*svc.ServiceOption) error {
	staff := types.IsStaffContext(ctx)

	currentByOption := make(map[string]*svc.ServiceOption, len(current))
	for _, opt := range current {
		currentByOption[opt.OptionID] = opt
	}

	for _, selected := range target {
		option := pkg.FindOption(selected.OptionID)
		if option == nil {
			return ierr.NewErrorf("option %s not found on package %s", selected.OptionID, pkg.ID).
				WithHint("The selected option does not belong to this package").
				WithReportableDetails(map[string]any{"option_id": selected.OptionID}).
				Mark(ierr.ErrValidation)
		}
		value := option.FindValue(selected.ValueID)
		if value == nil {
			return ierr.NewErrorf("value %s not found on option %s", selected.ValueID, option.ID).
				WithHint("The selected option value does not exist").
				WithReportableDetails(map[string]any{"value_id": selected.ValueID}).
				Mark(ierr.ErrValidation)
		}

		if option.Type == types.OptionValueTypeQuantity {
			if value.Min != nil && selected.Quantity < *value.Min {
				return ierr.NewErrorf("quantity %d below minimum %d", selected.Quantity, *value.Min).
					WithHint("The option quantity is below the allowed minimum").
					WithReportableDetails(map[string]any{"option_id": option.ID, "min": *value.Min}).
					Mark(ierr.ErrValidation)
			}
			if value.Max != nil && selected.Quantity > *value.Max {
				return ierr.NewErrorf("quantity %d above maximum %d", selected.Quantity, *value.Max).
					WithHint("The option quantity exceeds the allowed maximum").
					WithReportableDetails(map[string]any{"option_id": option.ID, "max": *value.Max}).
					Mark(ierr.ErrValidation)
			}
		}

		if staff {
			continue
		}

		existing, had := currentByOption[selected.OptionID]
		if !had && !option.Addable {
			return ierr.NewErrorf("option %s cannot be added", option.ID).
				WithHint("This option can only be attached by staff").
				WithReportableDetails(map[string]any{"option_id": option.ID}).
				Mark(ierr.ErrPermissionDenied)
		}
		if had && !option.Editable && (existing.ValueID != selected.ValueID || existing.Quantity != selected.Quantity) {
			return ierr.NewErrorf("option %s cannot be changed", option.ID).
				WithHint("This option can only be changed by staff").
				WithReportableDetails(map[string]any{"option_id": option.ID}).
				Mark(ierr.ErrPermissionDenied)
		}
	}

	return nil
}
