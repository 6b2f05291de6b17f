package payment

import "context"

// Repository defines the interface for authorization persistence operations
type Repository interface {
	// Create creates a new authorization record
	Create(ctx context.Context, authorization *Authorization) error

	// Get retrieves an authorization by ID
	Get(ctx context.Context, id string) (*Authorization, error)

	// Update updates an existing authorization
	Update(ctx context.Context, authorization *Authorization) error

	// GetLiveByClient retrieves the client's live (authorized, unexpired)
	// record, ErrNotFound when none exists
	GetLiveByClient(ctx context.Context, clientID string) (*Authorization, error)
}
