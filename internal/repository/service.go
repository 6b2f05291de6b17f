package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	svc "github.com/servabill/servabill/internal/domain/service"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

type serviceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newServiceRepository(client postgres.IClient, log *logger.Logger) svc.Repository {
	return &serviceRepository{client: client, logger: log}
}

type serviceRow struct {
	ID               string           `db:"id"`
	ClientID         string           `db:"client_id"`
	PricingID        string           `db:"pricing_id"`
	PackageID        string           `db:"package_id"`
	Quantity         int              `db:"quantity"`
	Options          []byte           `db:"options"`
	CouponID         *string          `db:"coupon_id"`
	OverridePrice    *decimal.Decimal `db:"override_price"`
	OverrideCurrency *string          `db:"override_currency"`
	ParentServiceID  *string          `db:"parent_service_id"`
	RenewsSynced     bool             `db:"renews_synced"`
	ServiceStatus    string           `db:"service_status"`
	DateRenews       time.Time        `db:"date_renews"`
	DateCanceled     *time.Time       `db:"date_canceled"`
	CancellationType *string          `db:"cancellation_type"`
	DateSuspended    *time.Time       `db:"date_suspended"`
	ModuleData       []byte           `db:"module_data"`
	CompanyID        string           `db:"company_id"`
	Status           string           `db:"status"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
	CreatedBy        string           `db:"created_by"`
	UpdatedBy        string           `db:"updated_by"`
}

func (r *serviceRepository) toRow(s *svc.Service) (*serviceRow, error) {
	options, err := json.Marshal(s.Options)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to encode service options").Mark(ierr.ErrSystem)
	}
	moduleData, err := json.Marshal(s.ModuleData)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to encode module data").Mark(ierr.ErrSystem)
	}
	var cancellationType *string
	if s.CancellationType != nil {
		ct := string(*s.CancellationType)
		cancellationType = &ct
	}
	return &serviceRow{
		ID:               s.ID,
		ClientID:         s.ClientID,
		PricingID:        s.PricingID,
		PackageID:        s.PackageID,
		Quantity:         s.Quantity,
		Options:          options,
		CouponID:         s.CouponID,
		OverridePrice:    s.OverridePrice,
		OverrideCurrency: s.OverrideCurrency,
		ParentServiceID:  s.ParentServiceID,
		RenewsSynced:     s.RenewsSynced,
		ServiceStatus:    string(s.ServiceStatus),
		DateRenews:       s.DateRenews,
		DateCanceled:     s.DateCanceled,
		CancellationType: cancellationType,
		DateSuspended:    s.DateSuspended,
		ModuleData:       moduleData,
		CompanyID:        s.CompanyID,
		Status:           string(s.BaseModel.Status),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		CreatedBy:        s.CreatedBy,
		UpdatedBy:        s.UpdatedBy,
	}, nil
}

func (r *serviceRow) toDomain() (*svc.Service, error) {
	s := &svc.Service{
		ID:               r.ID,
		ClientID:         r.ClientID,
		PricingID:        r.PricingID,
		PackageID:        r.PackageID,
		Quantity:         r.Quantity,
		CouponID:         r.CouponID,
		OverridePrice:    r.OverridePrice,
		OverrideCurrency: r.OverrideCurrency,
		ParentServiceID:  r.ParentServiceID,
		RenewsSynced:     r.RenewsSynced,
		ServiceStatus:    types.ServiceStatus(r.ServiceStatus),
		DateRenews:       r.DateRenews,
		DateCanceled:     r.DateCanceled,
		DateSuspended:    r.DateSuspended,
		BaseModel: types.BaseModel{
			CompanyID: r.CompanyID,
			Status:    types.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		},
	}
	if r.CancellationType != nil {
		ct := types.CancellationType(*r.CancellationType)
		s.CancellationType = &ct
	}
	if len(r.Options) > 0 {
		if err := json.Unmarshal(r.Options, &s.Options); err != nil {
			return nil, ierr.WithError(err).WithHint("Failed to decode service options").Mark(ierr.ErrSystem)
		}
	}
	if len(r.ModuleData) > 0 {
		if err := json.Unmarshal(r.ModuleData, &s.ModuleData); err != nil {
			return nil, ierr.WithError(err).WithHint("Failed to decode module data").Mark(ierr.ErrSystem)
		}
	}
	return s, nil
}

const serviceColumns = `id, client_id, pricing_id, package_id, quantity, options, coupon_id,
	override_price, override_currency, parent_service_id, renews_synced, service_status,
	date_renews, date_canceled, cancellation_type, date_suspended, module_data,
	company_id, status, created_at, updated_at, created_by, updated_by`

func (r *serviceRepository) Create(ctx context.Context, service *svc.Service) error {
	row, err := r.toRow(service)
	if err != nil {
		return err
	}

	query := `INSERT INTO services (` + serviceColumns + `) VALUES (
		:id, :client_id, :pricing_id, :package_id, :quantity, :options, :coupon_id,
		:override_price, :override_currency, :parent_service_id, :renews_synced, :service_status,
		:date_renews, :date_canceled, :cancellation_type, :date_suspended, :module_data,
		:company_id, :status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := sqlx.NamedExecContext(ctx, r.client.Querier(ctx), query, row); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create service %s", service.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *serviceRepository) Get(ctx context.Context, id string) (*svc.Service, error) {
	var row serviceRow
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND status != 'deleted'`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("service %s not found", id).
				WithHint("The service does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("failed to get service %s", id).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *serviceRepository) Update(ctx context.Context, service *svc.Service) error {
	service.UpdatedAt = time.Now().UTC()
	service.UpdatedBy = types.GetActorID(ctx)

	row, err := r.toRow(service)
	if err != nil {
		return err
	}

	query := `UPDATE services SET
		pricing_id = :pricing_id, package_id = :package_id, quantity = :quantity,
		options = :options, coupon_id = :coupon_id, override_price = :override_price,
		override_currency = :override_currency, parent_service_id = :parent_service_id,
		renews_synced = :renews_synced, service_status = :service_status,
		date_renews = :date_renews, date_canceled = :date_canceled,
		cancellation_type = :cancellation_type, date_suspended = :date_suspended,
		module_data = :module_data, status = :status,
		updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, r.client.Querier(ctx), query, row)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update service %s", service.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("service %s not found", service.ID).
			WithHint("The service does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *serviceRepository) ListByClient(ctx context.Context, clientID string) ([]*svc.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services
		WHERE client_id = $1 AND status != 'deleted' ORDER BY created_at`
	return r.list(ctx, query, clientID)
}

func (r *serviceRepository) ListChildren(ctx context.Context, parentID string) ([]*svc.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services
		WHERE parent_service_id = $1 AND status != 'deleted' ORDER BY created_at`
	return r.list(ctx, query, parentID)
}

func (r *serviceRepository) ListScheduledCancellationsDue(ctx context.Context) ([]*svc.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services
		WHERE date_canceled IS NOT NULL AND date_canceled <= $1
		AND service_status != 'canceled' AND status != 'deleted' ORDER BY date_canceled`
	return r.list(ctx, query, time.Now().UTC())
}

func (r *serviceRepository) ListRenewalsDue(ctx context.Context, before time.Time) ([]*svc.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services
		WHERE service_status = 'active' AND date_renews <= $1
		AND date_canceled IS NULL AND status != 'deleted' ORDER BY date_renews`
	return r.list(ctx, query, before)
}

func (r *serviceRepository) list(ctx context.Context, query string, args ...any) ([]*svc.Service, error) {
	var rows []serviceRow
	if err := sqlx.SelectContext(ctx, r.client.Querier(ctx), &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list services").
			Mark(ierr.ErrDatabase)
	}
	services := make([]*svc.Service, 0, len(rows))
	for i := range rows {
		service, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, nil
}
