package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/servabill/servabill/internal/domain/servicechange"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
)

type serviceChangeRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newServiceChangeRepository(client postgres.IClient, log *logger.Logger) servicechange.Repository {
	return &serviceChangeRepository{client: client, logger: log}
}

type serviceChangeRow struct {
	ID           string    `db:"id"`
	ServiceID    string    `db:"service_id"`
	InvoiceID    string    `db:"invoice_id"`
	ChangeStatus string    `db:"change_status"`
	Fields       []byte    `db:"fields"`
	CompanyID    string    `db:"company_id"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	CreatedBy    string    `db:"created_by"`
	UpdatedBy    string    `db:"updated_by"`
}

func (r *serviceChangeRow) toDomain() (*servicechange.ServiceChange, error) {
	change := &servicechange.ServiceChange{
		ID:           r.ID,
		ServiceID:    r.ServiceID,
		InvoiceID:    r.InvoiceID,
		ChangeStatus: types.ServiceChangeStatus(r.ChangeStatus),
		BaseModel:    baseFromRow(r.CompanyID, r.Status, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy),
	}
	if err := change.UnmarshalFields(r.Fields); err != nil {
		return nil, err
	}
	return change, nil
}

const serviceChangeColumns = `id, service_id, invoice_id, change_status, fields,
	company_id, status, created_at, updated_at, created_by, updated_by`

func (r *serviceChangeRepository) Create(ctx context.Context, change *servicechange.ServiceChange) error {
	fields, err := change.MarshalFields()
	if err != nil {
		return err
	}

	query := `INSERT INTO service_changes (` + serviceChangeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.client.Querier(ctx).ExecContext(ctx, query,
		change.ID, change.ServiceID, change.InvoiceID, change.ChangeStatus, fields,
		change.CompanyID, change.BaseModel.Status,
		change.CreatedAt, change.UpdatedAt, change.CreatedBy, change.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create service change %s", change.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *serviceChangeRepository) Get(ctx context.Context, id string) (*servicechange.ServiceChange, error) {
	query := `SELECT ` + serviceChangeColumns + ` FROM service_changes
		WHERE id = $1 AND status != 'deleted'`
	return r.get(ctx, query, id)
}

func (r *serviceChangeRepository) Update(ctx context.Context, change *servicechange.ServiceChange) error {
	change.UpdatedAt = time.Now().UTC()
	change.UpdatedBy = types.GetActorID(ctx)

	fields, err := change.MarshalFields()
	if err != nil {
		return err
	}

	query := `UPDATE service_changes SET invoice_id = $2, change_status = $3,
		fields = $4, status = $5, updated_at = $6, updated_by = $7 WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		change.ID, change.InvoiceID, change.ChangeStatus, fields,
		change.BaseModel.Status, change.UpdatedAt, change.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update service change %s", change.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("service change %s not found", change.ID).
			WithHint("The service change does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *serviceChangeRepository) GetPendingByService(ctx context.Context, serviceID string) (*servicechange.ServiceChange, error) {
	query := `SELECT ` + serviceChangeColumns + ` FROM service_changes
		WHERE service_id = $1 AND change_status = 'pending' AND status != 'deleted'
		ORDER BY created_at DESC LIMIT 1`
	return r.get(ctx, query, serviceID)
}

func (r *serviceChangeRepository) GetPendingByInvoice(ctx context.Context, invoiceID string) (*servicechange.ServiceChange, error) {
	query := `SELECT ` + serviceChangeColumns + ` FROM service_changes
		WHERE invoice_id = $1 AND change_status = 'pending' AND status != 'deleted'
		ORDER BY created_at DESC LIMIT 1`
	return r.get(ctx, query, invoiceID)
}

func (r *serviceChangeRepository) get(ctx context.Context, query string, arg string) (*servicechange.ServiceChange, error) {
	var row serviceChangeRow
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("service change not found").
				WithHint("No matching service change exists").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get service change").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}
