package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/domain/catalog"
	ierr "github.com/servabill/servabill/internal/errors"
)

// InMemoryCatalogStore implements catalog.Repository for tests
type InMemoryCatalogStore struct {
	packages *InMemoryStore[*catalog.Package]
}

func NewInMemoryCatalogStore() *InMemoryCatalogStore {
	return &InMemoryCatalogStore{packages: NewInMemoryStore[*catalog.Package]()}
}

func (s *InMemoryCatalogStore) CreatePackage(ctx context.Context, pkg *catalog.Package) error {
	return s.packages.Create(ctx, pkg.ID, pkg)
}

func (s *InMemoryCatalogStore) GetPackage(ctx context.Context, id string) (*catalog.Package, error) {
	return s.packages.Get(ctx, id)
}

func (s *InMemoryCatalogStore) GetPricing(ctx context.Context, id string) (*catalog.PackagePricing, error) {
	for _, pkg := range s.packages.List(ctx, nil) {
		if pricing := pkg.FindPricing(id); pricing != nil {
			return pricing, nil
		}
	}
	return nil, ierr.NewErrorf("pricing %s not found", id).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCatalogStore) GetPackageByPricing(ctx context.Context, pricingID string) (*catalog.Package, error) {
	for _, pkg := range s.packages.List(ctx, nil) {
		if pkg.FindPricing(pricingID) != nil {
			return pkg, nil
		}
	}
	return nil, ierr.NewErrorf("no package holds pricing %s", pricingID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCatalogStore) UpdatePackage(ctx context.Context, pkg *catalog.Package) error {
	return s.packages.Update(ctx, pkg.ID, pkg)
}
