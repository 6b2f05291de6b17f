package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/domain/servicechange"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
)

// InMemoryServiceChangeStore implements servicechange.Repository for tests
type InMemoryServiceChangeStore struct {
	*InMemoryStore[*servicechange.ServiceChange]
}

func NewInMemoryServiceChangeStore() *InMemoryServiceChangeStore {
	return &InMemoryServiceChangeStore{InMemoryStore: NewInMemoryStore[*servicechange.ServiceChange]()}
}

func (s *InMemoryServiceChangeStore) Create(ctx context.Context, change *servicechange.ServiceChange) error {
	return s.InMemoryStore.Create(ctx, change.ID, change)
}

func (s *InMemoryServiceChangeStore) Get(ctx context.Context, id string) (*servicechange.ServiceChange, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryServiceChangeStore) Update(ctx context.Context, change *servicechange.ServiceChange) error {
	return s.InMemoryStore.Update(ctx, change.ID, change)
}

func (s *InMemoryServiceChangeStore) GetPendingByService(ctx context.Context, serviceID string) (*servicechange.ServiceChange, error) {
	matches := s.List(ctx, func(item *servicechange.ServiceChange) bool {
		return item.ServiceID == serviceID && item.ChangeStatus == types.ServiceChangeStatusPending
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no pending change for service %s", serviceID).
			Mark(ierr.ErrNotFound)
	}
	return matches[0], nil
}

func (s *InMemoryServiceChangeStore) GetPendingByInvoice(ctx context.Context, invoiceID string) (*servicechange.ServiceChange, error) {
	matches := s.List(ctx, func(item *servicechange.ServiceChange) bool {
		return item.InvoiceID == invoiceID && item.ChangeStatus == types.ServiceChangeStatusPending
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no pending change for invoice %s", invoiceID).
			Mark(ierr.ErrNotFound)
	}
	return matches[0], nil
}
