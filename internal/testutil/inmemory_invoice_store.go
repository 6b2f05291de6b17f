package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/domain/invoice"
	"github.com/servabill/servabill/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository for tests
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{InMemoryStore: NewInMemoryStore[*invoice.Invoice]()}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Update(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) ListByService(ctx context.Context, serviceID string) ([]*invoice.Invoice, error) {
	return s.List(ctx, func(item *invoice.Invoice) bool {
		return item.ServiceID != nil && *item.ServiceID == serviceID
	}), nil
}

func (s *InMemoryInvoiceStore) ListOpenByClient(ctx context.Context, clientID string) ([]*invoice.Invoice, error) {
	return s.List(ctx, func(item *invoice.Invoice) bool {
		return item.ClientID == clientID && item.InvoiceStatus.IsOpen() &&
			item.BaseModel.Status != types.StatusDeleted
	}), nil
}
