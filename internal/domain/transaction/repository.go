package transaction

import "context"

// Repository defines the interface for transaction persistence operations,
// including the applied ledger
type Repository interface {
	// Create creates a new transaction
	Create(ctx context.Context, transaction *Transaction) error

	// Get retrieves a transaction by ID
	Get(ctx context.Context, id string) (*Transaction, error)

	// Update updates an existing transaction
	Update(ctx context.Context, transaction *Transaction) error

	// ListByClient retrieves the transactions of a client
	ListByClient(ctx context.Context, clientID string) ([]*Transaction, error)

	// Apply records a ledger entry linking a transaction amount to an invoice
	Apply(ctx context.Context, entry *Applied) error

	// Unapply removes the ledger entry between a transaction and an invoice
	Unapply(ctx context.Context, transactionID, invoiceID string) error

	// GetAppliedByInvoice retrieves the ledger entries against an invoice
	GetAppliedByInvoice(ctx context.Context, invoiceID string) ([]*Applied, error)

	// GetAppliedByTransaction retrieves the ledger entries of a transaction
	GetAppliedByTransaction(ctx context.Context, transactionID string) ([]*Applied, error)
}
