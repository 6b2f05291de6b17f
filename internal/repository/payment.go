package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/servabill/servabill/internal/domain/payment"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

type paymentRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newPaymentRepository(client postgres.IClient, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, logger: log}
}

type authorizationRow struct {
	ID                  string          `db:"id"`
	ClientID            string          `db:"client_id"`
	TransactionID       string          `db:"transaction_id"`
	GatewayName         string          `db:"gateway_name"`
	Amount              decimal.Decimal `db:"amount"`
	Currency            string          `db:"currency"`
	AuthorizationStatus string          `db:"authorization_status"`
	InvoiceIDs          []byte          `db:"invoice_ids"`
	ExpiresAt           time.Time       `db:"expires_at"`
	CompanyID           string          `db:"company_id"`
	Status              string          `db:"status"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
	CreatedBy           string          `db:"created_by"`
	UpdatedBy           string          `db:"updated_by"`
}

func (r *authorizationRow) toDomain() (*payment.Authorization, error) {
	auth := &payment.Authorization{
		ID:                  r.ID,
		ClientID:            r.ClientID,
		TransactionID:       r.TransactionID,
		GatewayName:         r.GatewayName,
		Amount:              r.Amount,
		Currency:            r.Currency,
		AuthorizationStatus: types.AuthorizationStatus(r.AuthorizationStatus),
		ExpiresAt:           r.ExpiresAt,
		BaseModel:           baseFromRow(r.CompanyID, r.Status, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy),
	}
	if len(r.InvoiceIDs) > 0 {
		if err := json.Unmarshal(r.InvoiceIDs, &auth.InvoiceIDs); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode authorization invoice ids").
				Mark(ierr.ErrSystem)
		}
	}
	return auth, nil
}

const authorizationColumns = `id, client_id, transaction_id, gateway_name, amount,
	currency, authorization_status, invoice_ids, expires_at, company_id, status,
	created_at, updated_at, created_by, updated_by`

func (r *paymentRepository) Create(ctx context.Context, auth *payment.Authorization) error {
	invoiceIDs, err := json.Marshal(auth.InvoiceIDs)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode authorization invoice ids").
			Mark(ierr.ErrSystem)
	}

	query := `INSERT INTO payment_authorizations (` + authorizationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := r.client.Querier(ctx).ExecContext(ctx, query,
		auth.ID, auth.ClientID, auth.TransactionID, auth.GatewayName, auth.Amount,
		auth.Currency, auth.AuthorizationStatus, invoiceIDs, auth.ExpiresAt,
		auth.CompanyID, auth.BaseModel.Status,
		auth.CreatedAt, auth.UpdatedAt, auth.CreatedBy, auth.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create authorization %s", auth.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Authorization, error) {
	var row authorizationRow
	query := `SELECT ` + authorizationColumns + ` FROM payment_authorizations
		WHERE id = $1 AND status != 'deleted'`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("authorization %s not found", id).
				WithHint("The authorization does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("failed to get authorization %s", id).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *paymentRepository) Update(ctx context.Context, auth *payment.Authorization) error {
	auth.UpdatedAt = time.Now().UTC()
	auth.UpdatedBy = types.GetActorID(ctx)

	invoiceIDs, err := json.Marshal(auth.InvoiceIDs)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode authorization invoice ids").
			Mark(ierr.ErrSystem)
	}

	query := `UPDATE payment_authorizations SET authorization_status = $2,
		invoice_ids = $3, expires_at = $4, status = $5, updated_at = $6, updated_by = $7
		WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		auth.ID, auth.AuthorizationStatus, invoiceIDs, auth.ExpiresAt,
		auth.BaseModel.Status, auth.UpdatedAt, auth.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update authorization %s", auth.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("authorization %s not found", auth.ID).
			WithHint("The authorization does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *paymentRepository) GetLiveByClient(ctx context.Context, clientID string) (*payment.Authorization, error) {
	var row authorizationRow
	query := `SELECT ` + authorizationColumns + ` FROM payment_authorizations
		WHERE client_id = $1 AND authorization_status = 'authorized'
		AND expires_at > $2 AND status != 'deleted'
		ORDER BY created_at DESC LIMIT 1`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, clientID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("no live authorization").
				WithHint("The client has no live authorization").
				WithReportableDetails(map[string]any{"client_id": clientID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get live authorization").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}
