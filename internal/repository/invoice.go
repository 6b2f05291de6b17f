package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/servabill/servabill/internal/domain/invoice"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

type invoiceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newInvoiceRepository(client postgres.IClient, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{client: client, logger: log}
}

type invoiceRow struct {
	ID            string     `db:"id"`
	Number        string     `db:"number"`
	ClientID      string     `db:"client_id"`
	ServiceID     *string    `db:"service_id"`
	Currency      string     `db:"currency"`
	InvoiceStatus string     `db:"invoice_status"`
	DateBilled    time.Time  `db:"date_billed"`
	DateDue       time.Time  `db:"date_due"`
	DateClosed    *time.Time `db:"date_closed"`
	CompanyID     string     `db:"company_id"`
	Status        string     `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	CreatedBy     string     `db:"created_by"`
	UpdatedBy     string     `db:"updated_by"`
}

type lineItemRow struct {
	ID          string          `db:"id"`
	InvoiceID   string          `db:"invoice_id"`
	ServiceID   *string         `db:"service_id"`
	Description string          `db:"description"`
	Quantity    decimal.Decimal `db:"quantity"`
	Amount      decimal.Decimal `db:"amount"`
	Taxable     bool            `db:"taxable"`
	CompanyID   string          `db:"company_id"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	CreatedBy   string          `db:"created_by"`
	UpdatedBy   string          `db:"updated_by"`
}

func (r *invoiceRow) toDomain() *invoice.Invoice {
	return &invoice.Invoice{
		ID:            r.ID,
		Number:        r.Number,
		ClientID:      r.ClientID,
		ServiceID:     r.ServiceID,
		Currency:      r.Currency,
		InvoiceStatus: types.InvoiceStatus(r.InvoiceStatus),
		DateBilled:    r.DateBilled,
		DateDue:       r.DateDue,
		DateClosed:    r.DateClosed,
		BaseModel:     baseFromRow(r.CompanyID, r.Status, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy),
	}
}

func (r *lineItemRow) toDomain() *invoice.LineItem {
	return &invoice.LineItem{
		ID:          r.ID,
		InvoiceID:   r.InvoiceID,
		ServiceID:   r.ServiceID,
		Description: r.Description,
		Quantity:    r.Quantity,
		Amount:      r.Amount,
		Taxable:     r.Taxable,
		BaseModel:   baseFromRow(r.CompanyID, r.Status, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy),
	}
}

const invoiceColumns = `id, number, client_id, service_id, currency, invoice_status,
	date_billed, date_due, date_closed, company_id, status,
	created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)

		query := `INSERT INTO invoices (` + invoiceColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
		if _, err := q.ExecContext(ctx, query,
			inv.ID, inv.Number, inv.ClientID, inv.ServiceID, inv.Currency,
			inv.InvoiceStatus, inv.DateBilled, inv.DateDue, inv.DateClosed,
			inv.CompanyID, inv.BaseModel.Status,
			inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, inv.UpdatedBy); err != nil {
			return ierr.WithError(err).
				WithHintf("failed to create invoice %s", inv.ID).
				Mark(ierr.ErrDatabase)
		}

		for _, line := range inv.LineItems {
			if err := r.insertLineItem(ctx, q, line); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *invoiceRepository) insertLineItem(ctx context.Context, q sqlx.ExtContext, line *invoice.LineItem) error {
	query := `INSERT INTO invoice_line_items (id, invoice_id, service_id, description,
		quantity, amount, taxable, company_id, status,
		created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := q.ExecContext(ctx, query,
		line.ID, line.InvoiceID, line.ServiceID, line.Description,
		line.Quantity, line.Amount, line.Taxable,
		line.CompanyID, line.BaseModel.Status,
		line.CreatedAt, line.UpdatedAt, line.CreatedBy, line.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create invoice line item %s", line.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var row invoiceRow
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND status != 'deleted'`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("invoice %s not found", id).
				WithHint("The invoice does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("failed to get invoice %s", id).
			Mark(ierr.ErrDatabase)
	}

	inv := row.toDomain()
	if err := r.loadLineItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) loadLineItems(ctx context.Context, inv *invoice.Invoice) error {
	var rows []lineItemRow
	query := `SELECT id, invoice_id, service_id, description, quantity, amount, taxable,
		company_id, status, created_at, updated_at, created_by, updated_by
		FROM invoice_line_items WHERE invoice_id = $1 AND status != 'deleted'
		ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, r.client.Querier(ctx), &rows, query, inv.ID); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to load line items for invoice %s", inv.ID).
			Mark(ierr.ErrDatabase)
	}
	for i := range rows {
		inv.LineItems = append(inv.LineItems, rows[i].toDomain())
	}
	return nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	inv.UpdatedBy = types.GetActorID(ctx)

	query := `UPDATE invoices SET invoice_status = $2, date_billed = $3, date_due = $4,
		date_closed = $5, status = $6, updated_at = $7, updated_by = $8 WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		inv.ID, inv.InvoiceStatus, inv.DateBilled, inv.DateDue, inv.DateClosed,
		inv.BaseModel.Status, inv.UpdatedAt, inv.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update invoice %s", inv.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("invoice %s not found", inv.ID).
			WithHint("The invoice does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepository) ListByService(ctx context.Context, serviceID string) ([]*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE service_id = $1 AND status != 'deleted' ORDER BY date_billed`
	return r.list(ctx, query, serviceID)
}

func (r *invoiceRepository) ListOpenByClient(ctx context.Context, clientID string) ([]*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE client_id = $1 AND invoice_status IN ('active', 'proforma')
		AND status != 'deleted' ORDER BY date_due`
	return r.list(ctx, query, clientID)
}

func (r *invoiceRepository) list(ctx context.Context, query string, args ...any) ([]*invoice.Invoice, error) {
	var rows []invoiceRow
	if err := sqlx.SelectContext(ctx, r.client.Querier(ctx), &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	invoices := make([]*invoice.Invoice, 0, len(rows))
	for i := range rows {
		inv := rows[i].toDomain()
		if err := r.loadLineItems(ctx, inv); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}
