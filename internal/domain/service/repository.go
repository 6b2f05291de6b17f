package service

import (
	"context"
	"time"
)

// Repository defines the interface for service persistence operations
type Repository interface {
	// Create creates a new service
	Create(ctx context.Context, service *Service) error

	// Get retrieves a service by ID
	Get(ctx context.Context, id string) (*Service, error)

	// Update updates an existing service
	Update(ctx context.Context, service *Service) error

	// ListByClient retrieves all services belonging to a client
	ListByClient(ctx context.Context, clientID string) ([]*Service, error)

	// ListChildren retrieves the add-on services of a parent service
	ListChildren(ctx context.Context, parentID string) ([]*Service, error)

	// ListScheduledCancellationsDue retrieves services whose scheduled
	// cancellation date has been reached
	ListScheduledCancellationsDue(ctx context.Context) ([]*Service, error)

	// ListRenewalsDue retrieves active services renewing before the given
	// time, excluding those with a scheduled cancellation
	ListRenewalsDue(ctx context.Context, before time.Time) ([]*Service, error)
}
