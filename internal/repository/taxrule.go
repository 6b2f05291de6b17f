package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/servabill/servabill/internal/domain/tax"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

type taxRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newTaxRepository(client postgres.IClient, log *logger.Logger) tax.Repository {
	return &taxRepository{client: client, logger: log}
}

type taxRuleRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Rate      decimal.Decimal `db:"rate"`
	Type      string          `db:"type"`
	CompanyID string          `db:"company_id"`
	Status    string          `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
	CreatedBy string          `db:"created_by"`
	UpdatedBy string          `db:"updated_by"`
}

func (r *taxRuleRow) toDomain() *tax.Rule {
	return &tax.Rule{
		ID:        r.ID,
		Name:      r.Name,
		Rate:      r.Rate,
		Type:      types.TaxRuleType(r.Type),
		BaseModel: baseFromRow(r.CompanyID, r.Status, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy),
	}
}

// companyTaxProvider resolves every client to the company's active tax
// rules. Per-client tax residency would slot in here.
type companyTaxProvider struct {
	repo tax.Repository
}

// NewCompanyTaxProvider creates a tax provider backed by the company's
// stored tax rules
func NewCompanyTaxProvider(repo tax.Repository) tax.Provider {
	return &companyTaxProvider{repo: repo}
}

func (p *companyTaxProvider) RulesForClient(ctx context.Context, clientID string) ([]*tax.Rule, error) {
	return p.repo.ListActive(ctx)
}

const taxRuleColumns = `id, name, rate, type, company_id, status,
	created_at, updated_at, created_by, updated_by`

func (r *taxRepository) Create(ctx context.Context, rule *tax.Rule) error {
	query := `INSERT INTO tax_rules (` + taxRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.client.Querier(ctx).ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Rate, rule.Type, rule.CompanyID, rule.BaseModel.Status,
		rule.CreatedAt, rule.UpdatedAt, rule.CreatedBy, rule.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create tax rule %s", rule.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *taxRepository) Get(ctx context.Context, id string) (*tax.Rule, error) {
	var row taxRuleRow
	query := `SELECT ` + taxRuleColumns + ` FROM tax_rules WHERE id = $1 AND status != 'deleted'`
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("tax rule %s not found", id).
				WithHint("The tax rule does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("failed to get tax rule %s", id).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *taxRepository) ListActive(ctx context.Context) ([]*tax.Rule, error) {
	companyID := types.GetCompanyID(ctx)

	var rows []taxRuleRow
	query := `SELECT ` + taxRuleColumns + ` FROM tax_rules
		WHERE company_id = $1 AND status = 'active' ORDER BY name`
	if err := sqlx.SelectContext(ctx, r.client.Querier(ctx), &rows, query, companyID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list tax rules").
			Mark(ierr.ErrDatabase)
	}
	rules := make([]*tax.Rule, 0, len(rows))
	for i := range rows {
		rules = append(rules, rows[i].toDomain())
	}
	return rules, nil
}

func (r *taxRepository) Update(ctx context.Context, rule *tax.Rule) error {
	rule.UpdatedAt = time.Now().UTC()
	rule.UpdatedBy = types.GetActorID(ctx)

	query := `UPDATE tax_rules SET name = $2, rate = $3, type = $4, status = $5,
		updated_at = $6, updated_by = $7 WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Rate, rule.Type,
		rule.BaseModel.Status, rule.UpdatedAt, rule.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update tax rule %s", rule.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("tax rule %s not found", rule.ID).
			WithHint("The tax rule does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
