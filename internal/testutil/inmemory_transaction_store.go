package testutil

import (
	"context"
	"sync"

	"github.com/servabill/servabill/internal/domain/transaction"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
)

// InMemoryTransactionStore implements transaction.Repository for tests,
// including the applied ledger
type InMemoryTransactionStore struct {
	*InMemoryStore[*transaction.Transaction]

	mu      sync.Mutex
	applied []*transaction.Applied
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{InMemoryStore: NewInMemoryStore[*transaction.Transaction]()}
}

func (s *InMemoryTransactionStore) Create(ctx context.Context, txn *transaction.Transaction) error {
	return s.InMemoryStore.Create(ctx, txn.ID, txn)
}

func (s *InMemoryTransactionStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryTransactionStore) Update(ctx context.Context, txn *transaction.Transaction) error {
	return s.InMemoryStore.Update(ctx, txn.ID, txn)
}

func (s *InMemoryTransactionStore) ListByClient(ctx context.Context, clientID string) ([]*transaction.Transaction, error) {
	return s.List(ctx, func(item *transaction.Transaction) bool {
		return item.ClientID == clientID && item.BaseModel.Status != types.StatusDeleted
	}), nil
}

func (s *InMemoryTransactionStore) Apply(ctx context.Context, entry *transaction.Applied) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, entry)
	return nil
}

func (s *InMemoryTransactionStore) Unapply(ctx context.Context, transactionID, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.applied {
		if entry.TransactionID == transactionID && entry.InvoiceID == invoiceID {
			s.applied = append(s.applied[:i], s.applied[i+1:]...)
			return nil
		}
	}
	return ierr.NewError("applied entry not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTransactionStore) GetAppliedByInvoice(ctx context.Context, invoiceID string) ([]*transaction.Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*transaction.Applied
	for _, entry := range s.applied {
		if entry.InvoiceID == invoiceID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *InMemoryTransactionStore) GetAppliedByTransaction(ctx context.Context, transactionID string) ([]*transaction.Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*transaction.Applied
	for _, entry := range s.applied {
		if entry.TransactionID == transactionID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
