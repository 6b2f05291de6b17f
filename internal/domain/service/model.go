package service

import (
	"time"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Service is the billable unit: a client's purchase of a package pricing
// term, optionally carrying configurable options, a coupon and a price
// override. Never hard-deleted once it has billing history; cancellation is
// terminal but retained.
type Service struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	// PricingID references the package pricing term the service is sold under
	PricingID string `json:"pricing_id"`
	PackageID string `json:"package_id"`
	Quantity  int    `json:"quantity"`
	// Options holds the selected option values
	Options []*ServiceOption `json:"options,omitempty"`
	// CouponID is re-applied at renewal only when the coupon is recurring
	CouponID *string `json:"coupon_id,omitempty"`
	// OverridePrice/OverrideCurrency replace the package price when set
	OverridePrice    *decimal.Decimal `json:"override_price,omitempty"`
	OverrideCurrency *string          `json:"override_currency,omitempty"`
	// ParentServiceID links an add-on child to the service it extends
	ParentServiceID *string `json:"parent_service_id,omitempty"`
	// RenewsSynced keeps a child's renewal date pinned to its parent's
	RenewsSynced  bool                `json:"renews_synced"`
	ServiceStatus types.ServiceStatus `json:"service_status"`
	DateRenews    time.Time           `json:"date_renews"`
	// DateCanceled set in the past means canceled; in the future means a
	// scheduled cancellation that an external scheduler will effect
	DateCanceled     *time.Time              `json:"date_canceled,omitempty"`
	CancellationType *types.CancellationType `json:"cancellation_type,omitempty"`
	DateSuspended    *time.Time              `json:"date_suspended,omitempty"`
	// ModuleData is opaque provisioning-backend field data
	ModuleData map[string]string `json:"module_data,omitempty"`

	types.BaseModel
}

// ServiceOption is one selected option value on a service
type ServiceOption struct {
	OptionID string `json:"option_id"`
	ValueID  string `json:"value_id"`
	Quantity int    `json:"quantity"`
}

// Validate validates the service
func (s *Service) Validate() error {
	if s.ClientID == "" {
		return ierr.NewError("invalid client id").
			WithHint("Client id is required").
			WithReportableDetails(map[string]any{"field": "client_id"}).
			Mark(ierr.ErrValidation)
	}
	if s.PricingID == "" {
		return ierr.NewError("invalid pricing id").
			WithHint("Pricing id is required").
			WithReportableDetails(map[string]any{"field": "pricing_id"}).
			Mark(ierr.ErrValidation)
	}
	if s.Quantity <= 0 {
		return ierr.NewError("invalid quantity").
			WithHint("Quantity must be positive").
			WithReportableDetails(map[string]any{"field": "quantity"}).
			Mark(ierr.ErrValidation)
	}
	if err := s.ServiceStatus.Validate(); err != nil {
		return err
	}
	if s.OverridePrice != nil && (s.OverrideCurrency == nil || *s.OverrideCurrency == "") {
		return ierr.NewError("invalid price override").
			WithHint("An override price requires an override currency").
			WithReportableDetails(map[string]any{"field": "override_currency"}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsCanceled reports whether the cancellation has taken effect
func (s *Service) IsCanceled() bool {
	return s.ServiceStatus == types.ServiceStatusCanceled
}

// HasScheduledCancellation reports whether a not-yet-effective cancellation
// is pending on the service
func (s *Service) HasScheduledCancellation() bool {
	return !s.IsCanceled() && s.DateCanceled != nil
}

// IsAddOn reports whether the service is a child of another service
func (s *Service) IsAddOn() bool {
	return s.ParentServiceID != nil && *s.ParentServiceID != ""
}

// FindOption returns the selected value for an option, nil when not selected
func (s *Service) FindOption(optionID string) *ServiceOption {
	for _, opt := range s.Options {
		if opt.OptionID == optionID {
			return opt
		}
	}
	return nil
}

// GuardTransition rejects illegal direct status transitions with a
// field-keyed validation error. State conflicts are rejected, never ignored.
func (s *Service) GuardTransition(target types.ServiceStatus) error {
	if s.ServiceStatus.CanTransitionTo(target) {
		return nil
	}
	return ierr.NewErrorf("cannot transition service from %s to %s", s.ServiceStatus, target).
		WithHint("The service status does not permit this operation").
		WithReportableDetails(map[string]any{
			"field":          "service_status",
			"current_status": s.ServiceStatus,
			"target_status":  target,
		}).
		Mark(ierr.ErrInvalidOperation)
}
