package catalog

import "context"

// Repository defines the interface for package catalog persistence operations
type Repository interface {
	// CreatePackage creates a new package with its pricings and options
	CreatePackage(ctx context.Context, pkg *Package) error

	// GetPackage retrieves a package by ID including pricings and options
	GetPackage(ctx context.Context, id string) (*Package, error)

	// GetPricing retrieves a single pricing term by ID
	GetPricing(ctx context.Context, id string) (*PackagePricing, error)

	// GetPackageByPricing retrieves the package owning a pricing term
	GetPackageByPricing(ctx context.Context, pricingID string) (*Package, error)

	// UpdatePackage updates an existing package
	UpdatePackage(ctx context.Context, pkg *Package) error
}
