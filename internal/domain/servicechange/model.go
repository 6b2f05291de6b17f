package servicechange

import (
	"encoding/json"

	svc "github.com/servabill/servabill/internal/domain/service"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
)

// ServiceChange is a queued, not-yet-applied service mutation awaiting
// payment of its associated invoice. At most one pending change may exist
// per service at a time.
type ServiceChange struct {
	ID        string `json:"id"`
	ServiceID string `json:"service_id"`
	// InvoiceID is the unpaid invoice whose settlement triggers Apply
	InvoiceID    string                    `json:"invoice_id"`
	ChangeStatus types.ServiceChangeStatus `json:"change_status"`
	// Fields is the serialized target field set committed on Apply
	Fields TargetFields `json:"fields"`

	types.BaseModel
}

// TargetFields is the validated mutation payload carried by a change.
// It travels as a typed record, JSON-encoded at the persistence boundary
// only, never as an opaque blob through request steps.
type TargetFields struct {
	PricingID string               `json:"pricing_id"`
	Quantity  int                  `json:"quantity"`
	Options   []*svc.ServiceOption `json:"options,omitempty"`
	CouponID  *string              `json:"coupon_id,omitempty"`
}

// Validate validates the service change
func (c *ServiceChange) Validate() error {
	if c.ServiceID == "" {
		return ierr.NewError("invalid service id").
			WithHint("Service id is required").
			WithReportableDetails(map[string]any{"field": "service_id"}).
			Mark(ierr.ErrValidation)
	}
	if c.InvoiceID == "" {
		return ierr.NewError("invalid invoice id").
			WithHint("Invoice id is required").
			WithReportableDetails(map[string]any{"field": "invoice_id"}).
			Mark(ierr.ErrValidation)
	}
	if err := c.ChangeStatus.Validate(); err != nil {
		return err
	}
	if c.Fields.PricingID == "" {
		return ierr.NewError("invalid target pricing id").
			WithHint("Target fields must name a pricing term").
			WithReportableDetails(map[string]any{"field": "fields.pricing_id"}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MarshalFields encodes the target fields for storage
func (c *ServiceChange) MarshalFields() ([]byte, error) {
	data, err := json.Marshal(c.Fields)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode service change fields").
			Mark(ierr.ErrSystem)
	}
	return data, nil
}

// UnmarshalFields decodes stored target fields
func (c *ServiceChange) UnmarshalFields(data []byte) error {
	if err := json.Unmarshal(data, &c.Fields); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to decode service change fields").
			Mark(ierr.ErrSystem)
	}
	return nil
}
