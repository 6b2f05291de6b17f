package types

import (
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/samber/lo"
)

// ServiceStatus is the lifecycle status of a billable service
type ServiceStatus string

const (
	ServiceStatusPending   ServiceStatus = "pending"
	ServiceStatusInReview  ServiceStatus = "in_review"
	ServiceStatusActive    ServiceStatus = "active"
	ServiceStatusSuspended ServiceStatus = "suspended"
	ServiceStatusCanceled  ServiceStatus = "canceled"
)

var ServiceStatusValues = []ServiceStatus{
	ServiceStatusPending,
	ServiceStatusInReview,
	ServiceStatusActive,
	ServiceStatusSuspended,
	ServiceStatusCanceled,
}

// serviceStatusTransitions enumerates the allowed direct transitions.
// Canceled is terminal and appears as a target only.
var serviceStatusTransitions = map[ServiceStatus][]ServiceStatus{
	ServiceStatusPending:   {ServiceStatusActive, ServiceStatusInReview, ServiceStatusCanceled},
	ServiceStatusInReview:  {ServiceStatusActive, ServiceStatusCanceled},
	ServiceStatusActive:    {ServiceStatusSuspended, ServiceStatusCanceled},
	ServiceStatusSuspended: {ServiceStatusActive, ServiceStatusCanceled},
	ServiceStatusCanceled:  {},
}

func (s ServiceStatus) String() string {
	return string(s)
}

func (s ServiceStatus) Validate() error {
	if !lo.Contains(ServiceStatusValues, s) {
		return ierr.NewError("invalid service status").
			WithHint("Service status must be pending, in_review, active, suspended or canceled").
			WithReportableDetails(map[string]any{
				"allowed_values": ServiceStatusValues,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CanTransitionTo reports whether a direct status transition is legal
func (s ServiceStatus) CanTransitionTo(target ServiceStatus) bool {
	return lo.Contains(serviceStatusTransitions[s], target)
}

// IsTerminal reports whether the status permits no further transitions
func (s ServiceStatus) IsTerminal() bool {
	return s == ServiceStatusCanceled
}

// CancellationType determines when a service cancellation takes effect
type CancellationType string

const (
	CancellationTypeImmediate    CancellationType = "immediate"     // Cancel now, clean up pending changes
	CancellationTypeEndOfTerm    CancellationType = "end_of_term"   // Cancel when the current term runs out
	CancellationTypeSpecificDate CancellationType = "specific_date" // Cancel on an explicit future date
)

var CancellationTypeValues = []CancellationType{
	CancellationTypeImmediate,
	CancellationTypeEndOfTerm,
	CancellationTypeSpecificDate,
}

func (c CancellationType) String() string {
	return string(c)
}

func (c CancellationType) Validate() error {
	if !lo.Contains(CancellationTypeValues, c) {
		return ierr.NewError("invalid cancellation type").
			WithHint("Cancellation type must be immediate, end_of_term, or specific_date").
			WithReportableDetails(map[string]any{
				"allowed_values": CancellationTypeValues,
				"provided_value": c,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
