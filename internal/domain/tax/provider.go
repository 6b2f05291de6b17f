package tax

import "context"

// Provider resolves the tax rules currently applicable to a client.
// Implementations live outside this core (external tax services, static
// company tax tables); calls are synchronous and blocking.
type Provider interface {
	// RulesForClient returns the rules to apply for the client's invoices
	RulesForClient(ctx context.Context, clientID string) ([]*Rule, error)
}

// Repository defines the interface for tax rule persistence operations
type Repository interface {
	// Create creates a new tax rule
	Create(ctx context.Context, rule *Rule) error

	// Get retrieves a tax rule by ID
	Get(ctx context.Context, id string) (*Rule, error)

	// ListActive retrieves the active tax rules for the current company
	ListActive(ctx context.Context) ([]*Rule, error)

	// Update updates an existing tax rule
	Update(ctx context.Context, rule *Rule) error
}
