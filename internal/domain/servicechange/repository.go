package servicechange

import "context"

// Repository defines the interface for service change persistence operations
type Repository interface {
	// Create creates a new service change
	Create(ctx context.Context, change *ServiceChange) error

	// Get retrieves a service change by ID
	Get(ctx context.Context, id string) (*ServiceChange, error)

	// Update updates an existing service change
	Update(ctx context.Context, change *ServiceChange) error

	// GetPendingByService retrieves the pending change for a service,
	// ErrNotFound when none exists
	GetPendingByService(ctx context.Context, serviceID string) (*ServiceChange, error)

	// GetPendingByInvoice retrieves the pending change tied to an invoice,
	// ErrNotFound when none exists
	GetPendingByInvoice(ctx context.Context, invoiceID string) (*ServiceChange, error)
}
