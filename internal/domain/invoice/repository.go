package invoice

import "context"

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create creates a new invoice with its line items
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID including line items
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update updates an existing invoice
	Update(ctx context.Context, invoice *Invoice) error

	// ListByService retrieves invoices tied to a service
	ListByService(ctx context.Context, serviceID string) ([]*Invoice, error)

	// ListOpenByClient retrieves the client's invoices still collecting payment
	ListOpenByClient(ctx context.Context, clientID string) ([]*Invoice, error)
}
