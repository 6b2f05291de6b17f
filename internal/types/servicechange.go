package types

import (
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/samber/lo"
)

// ServiceChangeStatus is the queue state of a deferred service mutation
type ServiceChangeStatus string

const (
	ServiceChangeStatusPending  ServiceChangeStatus = "pending"
	ServiceChangeStatusActive   ServiceChangeStatus = "active"   // Applied to the service
	ServiceChangeStatusCanceled ServiceChangeStatus = "canceled" // Discarded, e.g. invoice voided
)

var ServiceChangeStatusValues = []ServiceChangeStatus{
	ServiceChangeStatusPending,
	ServiceChangeStatusActive,
	ServiceChangeStatusCanceled,
}

func (s ServiceChangeStatus) String() string {
	return string(s)
}

func (s ServiceChangeStatus) Validate() error {
	if !lo.Contains(ServiceChangeStatusValues, s) {
		return ierr.NewError("invalid service change status").
			WithHint("Service change status must be pending, active or canceled").
			WithReportableDetails(map[string]any{
				"allowed_values": ServiceChangeStatusValues,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
