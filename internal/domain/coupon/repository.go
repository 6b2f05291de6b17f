package coupon

import "context"

// Repository defines the interface for coupon persistence operations
type Repository interface {
	// Create creates a new coupon
	Create(ctx context.Context, coupon *Coupon) error

	// Get retrieves a coupon by ID
	Get(ctx context.Context, id string) (*Coupon, error)

	// GetByCode retrieves a coupon by its redemption code
	GetByCode(ctx context.Context, code string) (*Coupon, error)

	// Update updates an existing coupon
	Update(ctx context.Context, coupon *Coupon) error

	// IncrementRedemptions bumps the redemption counter
	IncrementRedemptions(ctx context.Context, id string) error
}
