package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/servabill/servabill/internal/domain/transaction"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

type transactionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newTransactionRepository(client postgres.IClient, log *logger.Logger) transaction.Repository {
	return &transactionRepository{client: client, logger: log}
}

type transactionRow struct {
	ID                string          `db:"id"`
	ClientID          string          `db:"client_id"`
	Type              string          `db:"type"`
	TransactionStatus string          `db:"transaction_status"`
	Amount            decimal.Decimal `db:"amount"`
	Currency          string          `db:"currency"`
	GatewayName       *string         `db:"gateway_name"`
	GatewayReference  *string         `db:"gateway_reference"`
	CompanyID         string          `db:"company_id"`
	Status            string          `db:"status"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	CreatedBy         string          `db:"created_by"`
	UpdatedBy         string          `db:"updated_by"`
}

type appliedRow struct {
	TransactionID string          `db:"transaction_id"`
	InvoiceID     string          `db:"invoice_id"`
	Amount        decimal.Decimal `db:"amount"`
	AppliedAt     time.Time       `db:"applied_at"`
}

func (r *transactionRow) toDomain() *transaction.Transaction {
	return &transaction.Transaction{
		ID:                r.ID,
		ClientID:          r.ClientID,
		Type:              types.TransactionType(r.Type),
		TransactionStatus: types.TransactionStatus(r.TransactionStatus),
		Amount:            r.Amount,
		Currency:          r.Currency,
		GatewayName:       r.GatewayName,
		GatewayReference:  r.GatewayReference,
		BaseModel:         baseFromRow(r.CompanyID, r.Status, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy),
	}
}

const transactionColumns = `id, client_id, type, transaction_status, amount, currency,
	gateway_name, gateway_reference, company_id, status,
	created_at, updated_at, created_by, updated_by`

func (r *transactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.client.Querier(ctx).ExecContext(ctx, query,
		txn.ID, txn.ClientID, txn.Type, txn.TransactionStatus, txn.Amount, txn.Currency,
		txn.GatewayName, txn.GatewayReference, txn.CompanyID, txn.BaseModel.Status,
		txn.CreatedAt, txn.UpdatedAt, txn.CreatedBy, txn.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create transaction %s", txn.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	var row transactionRow
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE id = $1 AND status != 'deleted'`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("transaction %s not found", id).
				WithHint("The transaction does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("failed to get transaction %s", id).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *transactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	txn.UpdatedAt = time.Now().UTC()
	txn.UpdatedBy = types.GetActorID(ctx)

	query := `UPDATE transactions SET transaction_status = $2, gateway_reference = $3,
		status = $4, updated_at = $5, updated_by = $6 WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		txn.ID, txn.TransactionStatus, txn.GatewayReference,
		txn.BaseModel.Status, txn.UpdatedAt, txn.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update transaction %s", txn.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("transaction %s not found", txn.ID).
			WithHint("The transaction does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *transactionRepository) ListByClient(ctx context.Context, clientID string) ([]*transaction.Transaction, error) {
	var rows []transactionRow
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE client_id = $1 AND status != 'deleted' ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, r.client.Querier(ctx), &rows, query, clientID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	transactions := make([]*transaction.Transaction, 0, len(rows))
	for i := range rows {
		transactions = append(transactions, rows[i].toDomain())
	}
	return transactions, nil
}

func (r *transactionRepository) Apply(ctx context.Context, entry *transaction.Applied) error {
	query := `INSERT INTO transactions_applied (transaction_id, invoice_id, amount, applied_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.client.Querier(ctx).ExecContext(ctx, query,
		entry.TransactionID, entry.InvoiceID, entry.Amount, entry.AppliedAt); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to apply transaction %s to invoice %s", entry.TransactionID, entry.InvoiceID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *transactionRepository) Unapply(ctx context.Context, transactionID, invoiceID string) error {
	query := `DELETE FROM transactions_applied WHERE transaction_id = $1 AND invoice_id = $2`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query, transactionID, invoiceID)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to unapply transaction %s from invoice %s", transactionID, invoiceID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("applied entry not found").
			WithHint("The transaction is not applied to this invoice").
			WithReportableDetails(map[string]any{
				"transaction_id": transactionID,
				"invoice_id":     invoiceID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *transactionRepository) GetAppliedByInvoice(ctx context.Context, invoiceID string) ([]*transaction.Applied, error) {
	query := `SELECT transaction_id, invoice_id, amount, applied_at
		FROM transactions_applied WHERE invoice_id = $1 ORDER BY applied_at`
	return r.listApplied(ctx, query, invoiceID)
}

func (r *transactionRepository) GetAppliedByTransaction(ctx context.Context, transactionID string) ([]*transaction.Applied, error) {
	query := `SELECT transaction_id, invoice_id, amount, applied_at
		FROM transactions_applied WHERE transaction_id = $1 ORDER BY applied_at`
	return r.listApplied(ctx, query, transactionID)
}

func (r *transactionRepository) listApplied(ctx context.Context, query string, arg string) ([]*transaction.Applied, error) {
	var rows []appliedRow
	if err := sqlx.SelectContext(ctx, r.client.Querier(ctx), &rows, query, arg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list applied entries").
			Mark(ierr.ErrDatabase)
	}
	entries := make([]*transaction.Applied, 0, len(rows))
	for i := range rows {
		entries = append(entries, &transaction.Applied{
			TransactionID: rows[i].TransactionID,
			InvoiceID:     rows[i].InvoiceID,
			Amount:        rows[i].Amount,
			AppliedAt:     rows[i].AppliedAt,
		})
	}
	return entries, nil
}
