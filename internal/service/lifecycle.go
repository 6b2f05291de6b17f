package service

import (
	"context"
	"time"

	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/provisioning"
	svc "github.com/servabill/servabill/internal/domain/service"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
)

// LifecycleService drives a service through its status machine and keeps
// its billing dates consistent
type LifecycleService interface {
	// CreateService registers a new pending service from a package pricing
	CreateService(ctx context.Context, req CreateServiceRequest) (*svc.Service, error)

	// ActivateService activates a pending, reviewed or suspended service
	// and establishes its renewal date
	ActivateService(ctx context.Context, id string) (*svc.Service, error)

	// SuspendService suspends an active service, recording when and by whom
	SuspendService(ctx context.Context, id, reason string) error

	// UnsuspendService returns a suspended service to active
	UnsuspendService(ctx context.Context, id string) error

	// CancelService cancels a service now or schedules the cancellation.
	// Immediate cancellation also discards any pending change.
	CancelService(ctx context.Context, id string, cancellationType types.CancellationType, date *time.Time) error

	// UnscheduleCancellation clears a not-yet-effective cancellation
	UnscheduleCancellation(ctx context.Context, id string) error

	// ChangeRenewalDate moves the renewal date and resyncs synced children
	ChangeRenewalDate(ctx context.Context, id string, date time.Time) error

	// GetAddFields returns the provisioning fields for ordering under a
	// package, scoped to the caller (staff or client)
	GetAddFields(ctx context.Context, packageID string, vars map[string]string) (provisioning.FieldSet, error)
}

// CreateServiceRequest carries the inputs of a new service order
type CreateServiceRequest struct {
	ClientID        string
	PricingID       string
	Quantity        int
	Options         []*svc.ServiceOption
	CouponCode      string
	ParentServiceID *string
	RenewsSynced    bool
	ModuleData      map[string]string
}

type lifecycleService struct {
	ServiceParams
	changes ChangeService
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(params ServiceParams, changes ChangeService) LifecycleService {
	return &lifecycleService{ServiceParams: params, changes: changes}
}

func (s *lifecycleService) CreateService(ctx context.Context, req CreateServiceRequest) (*svc.Service, error) {
	pkg, err := s.CatalogRepo.GetPackageByPricing(ctx, req.PricingID)
	if err != nil {
		return nil, err
	}
	pricingTerm := pkg.FindPricing(req.PricingID)
	if pricingTerm == nil {
		return nil, ierr.NewErrorf("pricing %s not found on package %s", req.PricingID, pkg.ID).
			Mark(ierr.ErrNotFound)
	}

	if err := validateOptionChanges(ctx, pkg, nil, req.Options); err != nil {
		return nil, err
	}

	service := &svc.Service{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
		ClientID:        req.ClientID,
		PricingID:       req.PricingID,
		PackageID:       pkg.ID,
		Quantity:        req.Quantity,
		Options:         req.Options,
		ParentServiceID: req.ParentServiceID,
		RenewsSynced:    req.RenewsSynced,
		ServiceStatus:   types.ServiceStatusPending,
		DateRenews:      pricingTerm.AddTermTo(time.Now().UTC()),
		ModuleData:      req.ModuleData,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}

	if req.CouponCode != "" {
		cpn, err := s.CouponRepo.GetByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, err
		}
		if !cpn.IsValidAt(time.Now().UTC(), pricingTerm.Currency) {
			return nil, ierr.NewErrorf("coupon %s is not redeemable", req.CouponCode).
				WithHint("The coupon has expired, is exhausted, or does not match the currency").
				WithReportableDetails(map[string]any{"coupon_code": req.CouponCode}).
				Mark(ierr.ErrValidation)
		}
		service.CouponID = &cpn.ID
	}

	if err := service.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ServiceRepo.Create(ctx, service); err != nil {
			return err
		}
		if service.CouponID != nil {
			return s.CouponRepo.IncrementRedemptions(ctx, *service.CouponID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created service",
		"service_id", service.ID,
		"client_id", service.ClientID,
		"package_id", pkg.ID,
		"pricing_id", req.PricingID,
	)
	return service, nil
}

func (s *lifecycleService) ActivateService(ctx context.Context, id string) (*svc.Service, error) {
	service, err := s.ServiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := service.GuardTransition(types.ServiceStatusActive); err != nil {
		return nil, err
	}

	pkg, err := s.CatalogRepo.GetPackage(ctx, service.PackageID)
	if err != nil {
		return nil, err
	}
	pricingTerm := pkg.FindPricing(service.PricingID)
	if pricingTerm == nil {
		return nil, ierr.NewErrorf("pricing %s not found on package %s", service.PricingID, pkg.ID).
			Mark(ierr.ErrNotFound)
	}

	// Coming back from suspension keeps the existing renewal date; first
	// activation establishes it.
	if service.ServiceStatus != types.ServiceStatusSuspended {
		renews, err := s.initialRenewalDate(ctx, service, pkg, pricingTerm)
		if err != nil {
			return nil, err
		}
		service.DateRenews = renews
	}

	service.ServiceStatus = types.ServiceStatusActive
	service.DateSuspended = nil
	if err := s.ServiceRepo.Update(ctx, service); err != nil {
		return nil, err
	}

	s.Logger.Infow("activated service",
		"service_id", id,
		"date_renews", service.DateRenews,
		"actor", types.GetActorID(ctx),
	)
	return service, nil
}

// initialRenewalDate computes the first renewal date of an activating
// service: one term out, pinned to the package's proration day when set,
// or the parent's date for a synced add-on.
func (s *lifecycleService) initialRenewalDate(ctx context.Context, service *svc.Service, pkg *catalog.Package, pricingTerm *catalog.PackagePricing) (time.Time, error) {
	if service.RenewsSynced && service.IsAddOn() {
		parent, err := s.ServiceRepo.Get(ctx, *service.ParentServiceID)
		if err != nil {
			return time.Time{}, err
		}
		return parent.DateRenews, nil
	}

	renews := pricingTerm.AddTermTo(time.Now().UTC())
	if pkg.ProrationDay != nil && pricingTerm.PeriodUnit == types.PeriodUnitMonth {
		renews = pinToDay(renews, *pkg.ProrationDay)
	}
	return renews, nil
}

// pinToDay moves t to the given day of its month, clamped to the month's
// last day
func pinToDay(t time.Time, day int) time.Time {
	lastDay := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func (s *lifecycleService) SuspendService(ctx context.Context, id, reason string) error {
	service, err := s.ServiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := service.GuardTransition(types.ServiceStatusSuspended); err != nil {
		return err
	}

	now := time.Now().UTC()
	service.ServiceStatus = types.ServiceStatusSuspended
	service.DateSuspended = &now
	if err := s.ServiceRepo.Update(ctx, service); err != nil {
		return err
	}

	s.Logger.Infow("suspended service",
		"service_id", id,
		"reason", reason,
		"actor", types.GetActorID(ctx),
	)
	return nil
}

func (s *lifecycleService) UnsuspendService(ctx context.Context, id string) error {
	service, err := s.ServiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if service.ServiceStatus != types.ServiceStatusSuspended {
		return ierr.NewErrorf("service %s is not suspended", id).
			WithHint("Only suspended services can be unsuspended").
			WithReportableDetails(map[string]any{"service_status": service.ServiceStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	service.ServiceStatus = types.ServiceStatusActive
	service.DateSuspended = nil
	if err := s.ServiceRepo.Update(ctx, service); err != nil {
		return err
	}

	s.Logger.Infow("unsuspended service", "service_id", id, "actor", types.GetActorID(ctx))
	return nil
}

func (s *lifecycleService) CancelService(ctx context.Context, id string, cancellationType types.CancellationType, date *time.Time) error {
	if err := cancellationType.Validate(); err != nil {
		return err
	}

	service, err := s.ServiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if service.IsCanceled() {
		return ierr.NewErrorf("service %s is already canceled", id).
			WithHint("The service is already canceled").
			Mark(ierr.ErrInvalidOperation)
	}

	var effective time.Time
	now := time.Now().UTC()
	switch cancellationType {
	case types.CancellationTypeImmediate:
		effective = now
	case types.CancellationTypeEndOfTerm:
		effective = service.DateRenews
	case types.CancellationTypeSpecificDate:
		if date == nil || !date.After(now) {
			return ierr.NewError("invalid cancellation date").
				WithHint("A specific cancellation date must lie in the future").
				WithReportableDetails(map[string]any{"field": "date_canceled"}).
				Mark(ierr.ErrValidation)
		}
		effective = *date
	}

	if cancellationType != types.CancellationTypeImmediate {
		service.DateCanceled = &effective
		service.CancellationType = &cancellationType
		if err := s.ServiceRepo.Update(ctx, service); err != nil {
			return err
		}
		s.Logger.Infow("scheduled cancellation",
			"service_id", id,
			"effective", effective,
			"cancellation_type", cancellationType,
		)
		return nil
	}

	if err := service.GuardTransition(types.ServiceStatusCanceled); err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		// A canceled service must leave nothing half-open behind it
		if err := s.changes.CancelPendingForService(ctx, id); err != nil {
			return err
		}

		service.ServiceStatus = types.ServiceStatusCanceled
		service.DateCanceled = &effective
		service.CancellationType = &cancellationType
		if err := s.ServiceRepo.Update(ctx, service); err != nil {
			return err
		}

		s.Logger.Infow("canceled service", "service_id", id, "actor", types.GetActorID(ctx))
		return nil
	})
}

func (s *lifecycleService) UnscheduleCancellation(ctx context.Context, id string) error {
	service, err := s.ServiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !service.HasScheduledCancellation() {
		return ierr.NewErrorf("service %s has no scheduled cancellation", id).
			WithHint("There is no pending cancellation to clear").
			Mark(ierr.ErrInvalidOperation)
	}

	service.DateCanceled = nil
	service.CancellationType = nil
	if err := s.ServiceRepo.Update(ctx, service); err != nil {
		return err
	}

	s.Logger.Infow("unscheduled cancellation", "service_id", id)
	return nil
}

func (s *lifecycleService) ChangeRenewalDate(ctx context.Context, id string, date time.Time) error {
	service, err := s.ServiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if service.IsCanceled() {
		return ierr.NewErrorf("service %s is canceled", id).
			WithHint("Canceled services do not renew").
			Mark(ierr.ErrInvalidOperation)
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		service.DateRenews = date
		if err := s.ServiceRepo.Update(ctx, service); err != nil {
			return err
		}

		children, err := s.ServiceRepo.ListChildren(ctx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if !child.RenewsSynced || child.IsCanceled() {
				continue
			}
			child.DateRenews = date
			if err := s.ServiceRepo.Update(ctx, child); err != nil {
				return err
			}
		}

		s.Logger.Infow("changed renewal date",
			"service_id", id,
			"date_renews", date,
			"synced_children", len(children),
		)
		return nil
	})
}

func (s *lifecycleService) GetAddFields(ctx context.Context, packageID string, vars map[string]string) (provisioning.FieldSet, error) {
	pkg, err := s.CatalogRepo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	module, err := s.Modules.Resolve(pkg.ModuleID)
	if err != nil {
		return nil, err
	}
	if types.IsStaffContext(ctx) {
		return module.GetAdminAddFields(ctx, pkg, vars)
	}
	return module.GetClientAddFields(ctx, pkg, vars)
}
