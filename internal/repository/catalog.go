package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/servabill/servabill/internal/domain/catalog"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

type catalogRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newCatalogRepository(client postgres.IClient, log *logger.Logger) catalog.Repository {
	return &catalogRepository{client: client, logger: log}
}

type packageRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	ModuleID     string    `db:"module_id"`
	ProrationDay *int      `db:"proration_day"`
	CompanyID    string    `db:"company_id"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	CreatedBy    string    `db:"created_by"`
	UpdatedBy    string    `db:"updated_by"`
}

type pricingRow struct {
	ID          string           `db:"id"`
	PackageID   string           `db:"package_id"`
	Term        int              `db:"term"`
	PeriodUnit  string           `db:"period_unit"`
	Price       decimal.Decimal  `db:"price"`
	PriceRenews *decimal.Decimal `db:"price_renews"`
	SetupFee    decimal.Decimal  `db:"setup_fee"`
	Currency    string           `db:"currency"`
	CompanyID   string           `db:"company_id"`
	Status      string           `db:"status"`
	CreatedAt   time.Time        `db:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"`
	CreatedBy   string           `db:"created_by"`
	UpdatedBy   string           `db:"updated_by"`
}

type optionRow struct {
	ID        string    `db:"id"`
	PackageID string    `db:"package_id"`
	Label     string    `db:"label"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	Addable   bool      `db:"addable"`
	Editable  bool      `db:"editable"`
	CompanyID string    `db:"company_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	CreatedBy string    `db:"created_by"`
	UpdatedBy string    `db:"updated_by"`
}

type optionValueRow struct {
	ID        string    `db:"id"`
	OptionID  string    `db:"option_id"`
	Name      string    `db:"name"`
	Value     string    `db:"value"`
	Min       *int      `db:"min"`
	Max       *int      `db:"max"`
	CompanyID string    `db:"company_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	CreatedBy string    `db:"created_by"`
	UpdatedBy string    `db:"updated_by"`
}

type optionValuePricingRow struct {
	ID            string          `db:"id"`
	OptionValueID string          `db:"option_value_id"`
	Term          int             `db:"term"`
	PeriodUnit    string          `db:"period_unit"`
	Price         decimal.Decimal `db:"price"`
	SetupFee      decimal.Decimal `db:"setup_fee"`
	Currency      string          `db:"currency"`
	CompanyID     string          `db:"company_id"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	CreatedBy     string          `db:"created_by"`
	UpdatedBy     string          `db:"updated_by"`
}

func baseFromRow(companyID, status string, createdAt, updatedAt time.Time, createdBy, updatedBy string) types.BaseModel {
	return types.BaseModel{
		CompanyID: companyID,
		Status:    types.Status(status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		CreatedBy: createdBy,
		UpdatedBy: updatedBy,
	}
}

func (r *catalogRepository) CreatePackage(ctx context.Context, pkg *catalog.Package) error {
	return r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)

		query := `INSERT INTO packages (id, name, description, module_id, proration_day,
			company_id, status, created_at, updated_at, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		if _, err := q.ExecContext(ctx, query,
			pkg.ID, pkg.Name, pkg.Description, pkg.ModuleID, pkg.ProrationDay,
			pkg.CompanyID, pkg.BaseModel.Status, pkg.CreatedAt, pkg.UpdatedAt,
			pkg.CreatedBy, pkg.UpdatedBy); err != nil {
			return ierr.WithError(err).
				WithHintf("failed to create package %s", pkg.ID).
				Mark(ierr.ErrDatabase)
		}

		for _, pricing := range pkg.Pricings {
			if err := r.insertPricing(ctx, q, pricing); err != nil {
				return err
			}
		}
		for _, option := range pkg.Options {
			if err := r.insertOption(ctx, q, option); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *catalogRepository) insertPricing(ctx context.Context, q sqlx.ExtContext, p *catalog.PackagePricing) error {
	query := `INSERT INTO package_pricings (id, package_id, term, period_unit, price,
		price_renews, setup_fee, currency, company_id, status,
		created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := q.ExecContext(ctx, query,
		p.ID, p.PackageID, p.Term, p.PeriodUnit, p.Price, p.PriceRenews,
		p.SetupFee, p.Currency, p.CompanyID, p.BaseModel.Status,
		p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create package pricing %s", p.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *catalogRepository) insertOption(ctx context.Context, q sqlx.ExtContext, o *catalog.PackageOption) error {
	query := `INSERT INTO package_options (id, package_id, label, name, type, addable,
		editable, company_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := q.ExecContext(ctx, query,
		o.ID, o.PackageID, o.Label, o.Name, o.Type, o.Addable, o.Editable,
		o.CompanyID, o.BaseModel.Status, o.CreatedAt, o.UpdatedAt,
		o.CreatedBy, o.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create package option %s", o.ID).
			Mark(ierr.ErrDatabase)
	}

	for _, value := range o.Values {
		valueQuery := `INSERT INTO package_option_values (id, option_id, name, value,
			min, max, company_id, status, created_at, updated_at, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
		if _, err := q.ExecContext(ctx, valueQuery,
			value.ID, value.OptionID, value.Name, value.Value, value.Min, value.Max,
			value.CompanyID, value.BaseModel.Status, value.CreatedAt, value.UpdatedAt,
			value.CreatedBy, value.UpdatedBy); err != nil {
			return ierr.WithError(err).
				WithHintf("failed to create option value %s", value.ID).
				Mark(ierr.ErrDatabase)
		}

		for _, pricing := range value.Pricings {
			pricingQuery := `INSERT INTO option_value_pricings (id, option_value_id,
				term, period_unit, price, setup_fee, currency, company_id, status,
				created_at, updated_at, created_by, updated_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
			if _, err := q.ExecContext(ctx, pricingQuery,
				pricing.ID, pricing.OptionValueID, pricing.Term, pricing.PeriodUnit,
				pricing.Price, pricing.SetupFee, pricing.Currency,
				pricing.CompanyID, pricing.BaseModel.Status,
				pricing.CreatedAt, pricing.UpdatedAt, pricing.CreatedBy, pricing.UpdatedBy); err != nil {
				return ierr.WithError(err).
					WithHintf("failed to create option value pricing %s", pricing.ID).
					Mark(ierr.ErrDatabase)
			}
		}
	}
	return nil
}

func (r *catalogRepository) GetPackage(ctx context.Context, id string) (*catalog.Package, error) {
	var row packageRow
	query := `SELECT id, name, description, module_id, proration_day, company_id,
		status, created_at, updated_at, created_by, updated_by
		FROM packages WHERE id = $1 AND status != 'deleted'`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("package %s not found", id).
				WithHint("The package does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("failed to get package %s", id).
			Mark(ierr.ErrDatabase)
	}

	pkg := &catalog.Package{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		ModuleID:     row.ModuleID,
		ProrationDay: row.ProrationDay,
		BaseModel:    baseFromRow(row.CompanyID, row.Status, row.CreatedAt, row.UpdatedAt, row.CreatedBy, row.UpdatedBy),
	}

	if err := r.loadPricings(ctx, pkg); err != nil {
		return nil, err
	}
	if err := r.loadOptions(ctx, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (r *catalogRepository) loadPricings(ctx context.Context, pkg *catalog.Package) error {
	var rows []pricingRow
	query := `SELECT id, package_id, term, period_unit, price, price_renews, setup_fee,
		currency, company_id, status, created_at, updated_at, created_by, updated_by
		FROM package_pricings WHERE package_id = $1 AND status != 'deleted' ORDER BY term`
	if err := sqlx.SelectContext(ctx, r.client.Querier(ctx), &rows, query, pkg.ID); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to load pricings for package %s", pkg.ID).
			Mark(ierr.ErrDatabase)
	}
	for i := range rows {
		row := rows[i]
		pkg.Pricings = append(pkg.Pricings, &catalog.PackagePricing{
			ID:          row.ID,
			PackageID:   row.PackageID,
			Term:        row.Term,
			PeriodUnit:  types.PeriodUnit(row.PeriodUnit),
			Price:       row.Price,
			PriceRenews: row.PriceRenews,
			SetupFee:    row.SetupFee,
			Currency:    row.Currency,
			BaseModel:   baseFromRow(row.CompanyID, row.Status, row.CreatedAt, row.UpdatedAt, row.CreatedBy, row.UpdatedBy),
		})
	}
	return nil
}

func (r *catalogRepository) loadOptions(ctx context.Context, pkg *catalog.Package) error {
	q := r.client.Querier(ctx)

	var optionRows []optionRow
	query := `SELECT id, package_id, label, name, type, addable, editable, company_id,
		status, created_at, updated_at, created_by, updated_by
		FROM package_options WHERE package_id = $1 AND status != 'deleted' ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, q, &optionRows, query, pkg.ID); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to load options for package %s", pkg.ID).
			Mark(ierr.ErrDatabase)
	}

	for i := range optionRows {
		row := optionRows[i]
		option := &catalog.PackageOption{
			ID:        row.ID,
			PackageID: row.PackageID,
			Label:     row.Label,
			Name:      row.Name,
			Type:      types.OptionValueType(row.Type),
			Addable:   row.Addable,
			Editable:  row.Editable,
			BaseModel: baseFromRow(row.CompanyID, row.Status, row.CreatedAt, row.UpdatedAt, row.CreatedBy, row.UpdatedBy),
		}

		var valueRows []optionValueRow
		valueQuery := `SELECT id, option_id, name, value, min, max, company_id, status,
			created_at, updated_at, created_by, updated_by
			FROM package_option_values WHERE option_id = $1 AND status != 'deleted' ORDER BY created_at`
		if err := sqlx.SelectContext(ctx, q, &valueRows, valueQuery, option.ID); err != nil {
			return ierr.WithError(err).
				WithHintf("failed to load values for option %s", option.ID).
				Mark(ierr.ErrDatabase)
		}

		for j := range valueRows {
			valueRow := valueRows[j]
			value := &catalog.PackageOptionValue{
				ID:        valueRow.ID,
				OptionID:  valueRow.OptionID,
				Name:      valueRow.Name,
				Value:     valueRow.Value,
				Min:       valueRow.Min,
				Max:       valueRow.Max,
				BaseModel: baseFromRow(valueRow.CompanyID, valueRow.Status, valueRow.CreatedAt, valueRow.UpdatedAt, valueRow.CreatedBy, valueRow.UpdatedBy),
			}

			var pricingRows []optionValuePricingRow
			pricingQuery := `SELECT id, option_value_id, term, period_unit, price, setup_fee,
				currency, company_id, status, created_at, updated_at, created_by, updated_by
				FROM option_value_pricings WHERE option_value_id = $1 AND status != 'deleted' ORDER BY term`
			if err := sqlx.SelectContext(ctx, q, &pricingRows, pricingQuery, value.ID); err != nil {
				return ierr.WithError(err).
					WithHintf("failed to load pricings for option value %s", value.ID).
					Mark(ierr.ErrDatabase)
			}
			for k := range pricingRows {
				pr := pricingRows[k]
				value.Pricings = append(value.Pricings, &catalog.OptionValuePricing{
					ID:            pr.ID,
					OptionValueID: pr.OptionValueID,
					Term:          pr.Term,
					PeriodUnit:    types.PeriodUnit(pr.PeriodUnit),
					Price:         pr.Price,
					SetupFee:      pr.SetupFee,
					Currency:      pr.Currency,
					BaseModel:     baseFromRow(pr.CompanyID, pr.Status, pr.CreatedAt, pr.UpdatedAt, pr.CreatedBy, pr.UpdatedBy),
				})
			}
			option.Values = append(option.Values, value)
		}
		pkg.Options = append(pkg.Options, option)
	}
	return nil
}

func (r *catalogRepository) GetPricing(ctx context.Context, id string) (*catalog.PackagePricing, error) {
	var row pricingRow
	query := `SELECT id, package_id, term, period_unit, price, price_renews, setup_fee,
		currency, company_id, status, created_at, updated_at, created_by, updated_by
		FROM package_pricings WHERE id = $1 AND status != 'deleted'`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("pricing %s not found", id).
				WithHint("The pricing term does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("failed to get pricing %s", id).
			Mark(ierr.ErrDatabase)
	}
	return &catalog.PackagePricing{
		ID:          row.ID,
		PackageID:   row.PackageID,
		Term:        row.Term,
		PeriodUnit:  types.PeriodUnit(row.PeriodUnit),
		Price:       row.Price,
		PriceRenews: row.PriceRenews,
		SetupFee:    row.SetupFee,
		Currency:    row.Currency,
		BaseModel:   baseFromRow(row.CompanyID, row.Status, row.CreatedAt, row.UpdatedAt, row.CreatedBy, row.UpdatedBy),
	}, nil
}

func (r *catalogRepository) GetPackageByPricing(ctx context.Context, pricingID string) (*catalog.Package, error) {
	pricing, err := r.GetPricing(ctx, pricingID)
	if err != nil {
		return nil, err
	}
	return r.GetPackage(ctx, pricing.PackageID)
}

func (r *catalogRepository) UpdatePackage(ctx context.Context, pkg *catalog.Package) error {
	pkg.UpdatedAt = time.Now().UTC()
	pkg.UpdatedBy = types.GetActorID(ctx)

	query := `UPDATE packages SET name = $2, description = $3, module_id = $4,
		proration_day = $5, status = $6, updated_at = $7, updated_by = $8
		WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		pkg.ID, pkg.Name, pkg.Description, pkg.ModuleID, pkg.ProrationDay,
		pkg.BaseModel.Status, pkg.UpdatedAt, pkg.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update package %s", pkg.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("package %s not found", pkg.ID).
			WithHint("The package does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
