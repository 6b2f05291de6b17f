package service

import (
	"context"
	"fmt"
	"time"

	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/invoice"
	"github.com/servabill/servabill/internal/domain/pricing"
	svc "github.com/servabill/servabill/internal/domain/service"
	"github.com/servabill/servabill/internal/domain/servicechange"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// ChangeResult reports the outcome of a configuration change request
type ChangeResult struct {
	// Delta is the prorated amount the change is worth at request time
	Delta *pricing.Delta
	// Invoice is the collectible invoice cut for a positive delta, nil
	// otherwise
	Invoice *invoice.Invoice
	// Change is the queued record awaiting payment, nil when the change
	// applied immediately
	Change *servicechange.ServiceChange
	// Applied reports whether the service already carries the new fields
	Applied bool
}

// ChangeService computes, queues and applies service configuration changes
type ChangeService interface {
	// RequestChange validates a target configuration, prices its prorated
	// delta, and either applies it or queues it behind an invoice depending
	// on the delta sign and the queueing policy in effect
	RequestChange(ctx context.Context, serviceID string, target servicechange.TargetFields) (*ChangeResult, error)

	// ApplyChange commits a pending change's fields onto its service
	ApplyChange(ctx context.Context, changeID string) error

	// CancelChange discards a pending change, unapplying and voiding its
	// invoice in the same transaction
	CancelChange(ctx context.Context, changeID string) error

	// CancelPendingForService discards the service's pending change if one
	// exists
	CancelPendingForService(ctx context.Context, serviceID string) error

	// OnInvoiceSettled applies the pending change tied to a settled invoice
	OnInvoiceSettled(ctx context.Context, invoiceID string) error
}

type changeService struct {
	ServiceParams
	billing BillingService
}

// NewChangeService creates a new change service
func NewChangeService(params ServiceParams, billing BillingService) ChangeService {
	return &changeService{ServiceParams: params, billing: billing}
}

func (s *changeService) RequestChange(ctx context.Context, serviceID string, target servicechange.TargetFields) (*ChangeResult, error) {
	service, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if service.ServiceStatus != types.ServiceStatusActive {
		return nil, ierr.NewErrorf("service %s is not active", serviceID).
			WithHint("Only active services can be changed").
			WithReportableDetails(map[string]any{"service_status": service.ServiceStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	pkg, err := s.CatalogRepo.GetPackage(ctx, service.PackageID)
	if err != nil {
		return nil, err
	}
	currentPricing := pkg.FindPricing(service.PricingID)
	if currentPricing == nil {
		return nil, ierr.NewErrorf("pricing %s not found on package %s", service.PricingID, pkg.ID).
			Mark(ierr.ErrNotFound)
	}
	targetPricing := pkg.FindPricing(target.PricingID)
	if targetPricing == nil {
		return nil, ierr.NewErrorf("pricing %s not found on package %s", target.PricingID, pkg.ID).
			WithHint("A change must stay within the service's package").
			WithReportableDetails(map[string]any{"pricing_id": target.PricingID}).
			Mark(ierr.ErrValidation)
	}
	if !currentPricing.IsRecurring() || !targetPricing.IsRecurring() {
		return nil, ierr.NewError("one-time terms cannot be changed").
			WithHint("Configuration changes apply to recurring services only").
			Mark(ierr.ErrInvalidOperation)
	}
	if target.Quantity <= 0 {
		return nil, ierr.NewError("invalid quantity").
			WithHint("Quantity must be positive").
			WithReportableDetails(map[string]any{"field": "quantity"}).
			Mark(ierr.ErrValidation)
	}
	if err := validateOptionChanges(ctx, pkg, service.Options, target.Options); err != nil {
		return nil, err
	}

	delta, err := s.computeDelta(service, pkg, currentPricing, targetPricing, target)
	if err != nil {
		return nil, err
	}

	result := &ChangeResult{Delta: delta}
	// The policy read here decides this change's path for good; later
	// config flips do not retroactively move queued changes.
	queue := s.Config.Billing.QueueServiceChanges

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if delta.Total.GreaterThan(decimal.Zero) {
			inv, err := s.invoiceForDelta(ctx, service, pkg, delta)
			if err != nil {
				return err
			}
			result.Invoice = inv

			if queue {
				change, err := s.enqueue(ctx, service, inv.ID, target)
				if err != nil {
					return err
				}
				result.Change = change
				return nil
			}
		}

		if err := s.applyFields(ctx, service, target); err != nil {
			return err
		}
		result.Applied = true

		if delta.Total.LessThan(decimal.Zero) {
			currency := delta.Currency
			if _, err := s.billing.IssueCredit(ctx, service.ClientID, delta.Total.Neg(), currency); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("processed change request",
		"service_id", serviceID,
		"delta", delta.Total.String(),
		"queued", result.Change != nil,
		"applied", result.Applied,
	)
	return result, nil
}

func (s *changeService) computeDelta(service *svc.Service, pkg *catalog.Package, currentPricing, targetPricing *catalog.PackagePricing, target servicechange.TargetFields) (*pricing.Delta, error) {
	oldLines, oldCurrency, err := resolveConfigLines(pkg, currentPricing, configFromService(service), false)
	if err != nil {
		return nil, err
	}
	newLines, newCurrency, err := resolveConfigLines(pkg, targetPricing, serviceConfig{
		ServiceID:        service.ID,
		Quantity:         target.Quantity,
		Options:          target.Options,
		OverridePrice:    service.OverridePrice,
		OverrideCurrency: service.OverrideCurrency,
	}, false)
	if err != nil {
		return nil, err
	}
	if !types.IsSameCurrency(oldCurrency, newCurrency) {
		return nil, ierr.NewError("currency mismatch").
			WithHint("A change cannot move the service to another currency").
			WithReportableDetails(map[string]any{
				"current_currency": oldCurrency,
				"target_currency":  newCurrency,
			}).
			Mark(ierr.ErrValidation)
	}

	return s.Calculator.ComputeDelta(pricing.DeltaParams{
		OldLines:    oldLines,
		NewLines:    newLines,
		AsOf:        time.Now().UTC(),
		PeriodStart: termStart(currentPricing, service.DateRenews),
		PeriodEnd:   service.DateRenews,
		Currency:    oldCurrency,
		Strategy:    s.Config.Billing.ProrationStrategy,
	})
}

func (s *changeService) invoiceForDelta(ctx context.Context, service *svc.Service, pkg *catalog.Package, delta *pricing.Delta) (*invoice.Invoice, error) {
	result := &pricing.Result{
		Items: []pricing.Item{{
			Description: fmt.Sprintf("%s configuration change", pkg.Name),
			Quantity:    decimal.NewFromInt(1),
			UnitAmount:  delta.Total,
			Total:       delta.Total,
			Taxable:     true,
			ServiceID:   service.ID,
		}},
		Totals: pricing.Totals{
			Subtotal: delta.Total,
			Total:    delta.Total,
		},
		Currency: delta.Currency,
	}
	return s.billing.MaterializeInvoice(ctx, service.ClientID, &service.ID, result, time.Now().UTC())
}

// enqueue records the pending change, first discarding any change already
// queued for the service. At most one pending change per service survives.
func (s *changeService) enqueue(ctx context.Context, service *svc.Service, invoiceID string, target servicechange.TargetFields) (*servicechange.ServiceChange, error) {
	existing, err := s.ChangeRepo.GetPendingByService(ctx, service.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		if err := s.discard(ctx, existing); err != nil {
			return nil, err
		}
	}

	change := &servicechange.ServiceChange{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE_CHANGE),
		ServiceID:    service.ID,
		InvoiceID:    invoiceID,
		ChangeStatus: types.ServiceChangeStatusPending,
		Fields:       target,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	if err := change.Validate(); err != nil {
		return nil, err
	}
	if err := s.ChangeRepo.Create(ctx, change); err != nil {
		return nil, err
	}
	return change, nil
}

func (s *changeService) applyFields(ctx context.Context, service *svc.Service, target servicechange.TargetFields) error {
	service.PricingID = target.PricingID
	service.Quantity = target.Quantity
	service.Options = target.Options
	service.CouponID = target.CouponID
	if err := service.Validate(); err != nil {
		return err
	}
	return s.ServiceRepo.Update(ctx, service)
}

func (s *changeService) ApplyChange(ctx context.Context, changeID string) error {
	change, err := s.ChangeRepo.Get(ctx, changeID)
	if err != nil {
		return err
	}
	if change.ChangeStatus != types.ServiceChangeStatusPending {
		return ierr.NewErrorf("change %s is not pending", changeID).
			WithHint("Only pending changes can be applied").
			WithReportableDetails(map[string]any{"change_status": change.ChangeStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	service, err := s.ServiceRepo.Get(ctx, change.ServiceID)
	if err != nil {
		return err
	}
	if service.ServiceStatus != types.ServiceStatusActive {
		return ierr.NewErrorf("service %s is not active", service.ID).
			WithHint("The service can no longer accept the queued change").
			WithReportableDetails(map[string]any{"service_status": service.ServiceStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	// The catalog may have moved since enqueue time; the target fields
	// must still resolve before they are committed.
	pkg, err := s.CatalogRepo.GetPackage(ctx, service.PackageID)
	if err != nil {
		return err
	}
	targetPricing := pkg.FindPricing(change.Fields.PricingID)
	if targetPricing == nil {
		return ierr.NewErrorf("pricing %s no longer exists on package %s", change.Fields.PricingID, pkg.ID).
			WithHint("The queued pricing term was removed from the package").
			Mark(ierr.ErrInvalidOperation)
	}
	// Queued options must still resolve too, or the service would commit
	// into a configuration that can no longer be priced
	if _, _, err := resolveConfigLines(pkg, targetPricing, serviceConfig{
		ServiceID:        service.ID,
		Quantity:         change.Fields.Quantity,
		Options:          change.Fields.Options,
		OverridePrice:    service.OverridePrice,
		OverrideCurrency: service.OverrideCurrency,
	}, false); err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.applyFields(ctx, service, change.Fields); err != nil {
			return err
		}
		change.ChangeStatus = types.ServiceChangeStatusActive
		if err := s.ChangeRepo.Update(ctx, change); err != nil {
			return err
		}

		s.Logger.Infow("applied queued change",
			"change_id", change.ID,
			"service_id", service.ID,
			"pricing_id", change.Fields.PricingID,
		)
		return nil
	})
}

func (s *changeService) CancelChange(ctx context.Context, changeID string) error {
	change, err := s.ChangeRepo.Get(ctx, changeID)
	if err != nil {
		return err
	}
	if change.ChangeStatus != types.ServiceChangeStatusPending {
		return ierr.NewErrorf("change %s is not pending", changeID).
			WithHint("Only pending changes can be canceled").
			WithReportableDetails(map[string]any{"change_status": change.ChangeStatus}).
			Mark(ierr.ErrInvalidOperation)
	}
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.discard(ctx, change)
	})
}

// discard unwinds a pending change: the invoice loses its applied
// transactions, gets voided, and the change record is marked canceled.
// All three land together or not at all.
func (s *changeService) discard(ctx context.Context, change *servicechange.ServiceChange) error {
	if err := s.billing.UnapplyAll(ctx, change.InvoiceID); err != nil {
		return err
	}
	if err := s.billing.VoidInvoice(ctx, change.InvoiceID); err != nil {
		return err
	}
	change.ChangeStatus = types.ServiceChangeStatusCanceled
	if err := s.ChangeRepo.Update(ctx, change); err != nil {
		return err
	}

	s.Logger.Infow("canceled queued change",
		"change_id", change.ID,
		"service_id", change.ServiceID,
		"invoice_id", change.InvoiceID,
	)
	return nil
}

func (s *changeService) CancelPendingForService(ctx context.Context, serviceID string) error {
	change, err := s.ChangeRepo.GetPendingByService(ctx, serviceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.discard(ctx, change)
	})
}

func (s *changeService) OnInvoiceSettled(ctx context.Context, invoiceID string) error {
	change, err := s.ChangeRepo.GetPendingByInvoice(ctx, invoiceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.ApplyChange(ctx, change.ID)
}

// termStart walks one billing term back from the term's end
func termStart(p *catalog.PackagePricing, end time.Time) time.Time {
	switch p.PeriodUnit {
	case types.PeriodUnitDay:
		return end.AddDate(0, 0, -p.Term)
	case types.PeriodUnitWeek:
		return end.AddDate(0, 0, -7*p.Term)
	case types.PeriodUnitMonth:
		return end.AddDate(0, -p.Term, 0)
	case types.PeriodUnitYear:
		return end.AddDate(-p.Term, 0, 0)
	default:
		return end
	}
}
