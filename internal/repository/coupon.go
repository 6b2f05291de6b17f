package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/servabill/servabill/internal/domain/coupon"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

type couponRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func newCouponRepository(client postgres.IClient, log *logger.Logger) coupon.Repository {
	return &couponRepository{client: client, logger: log}
}

type couponRow struct {
	ID               string           `db:"id"`
	Code             string           `db:"code"`
	Name             string           `db:"name"`
	AmountOff        *decimal.Decimal `db:"amount_off"`
	PercentageOff    *decimal.Decimal `db:"percentage_off"`
	Type             string           `db:"type"`
	Recurring        bool             `db:"recurring"`
	Currency         string           `db:"currency"`
	RedeemAfter      *time.Time       `db:"redeem_after"`
	RedeemBefore     *time.Time       `db:"redeem_before"`
	MaxRedemptions   *int             `db:"max_redemptions"`
	TotalRedemptions int              `db:"total_redemptions"`
	CompanyID        string           `db:"company_id"`
	Status           string           `db:"status"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
	CreatedBy        string           `db:"created_by"`
	UpdatedBy        string           `db:"updated_by"`
}

func (r *couponRow) toDomain() *coupon.Coupon {
	return &coupon.Coupon{
		ID:               r.ID,
		Code:             r.Code,
		Name:             r.Name,
		AmountOff:        r.AmountOff,
		PercentageOff:    r.PercentageOff,
		Type:             types.CouponType(r.Type),
		Recurring:        r.Recurring,
		Currency:         r.Currency,
		RedeemAfter:      r.RedeemAfter,
		RedeemBefore:     r.RedeemBefore,
		MaxRedemptions:   r.MaxRedemptions,
		TotalRedemptions: r.TotalRedemptions,
		BaseModel:        baseFromRow(r.CompanyID, r.Status, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy),
	}
}

const couponColumns = `id, code, name, amount_off, percentage_off, type, recurring,
	currency, redeem_after, redeem_before, max_redemptions, total_redemptions,
	company_id, status, created_at, updated_at, created_by, updated_by`

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	query := `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	if _, err := r.client.Querier(ctx).ExecContext(ctx, query,
		c.ID, c.Code, c.Name, c.AmountOff, c.PercentageOff, c.Type, c.Recurring,
		c.Currency, c.RedeemAfter, c.RedeemBefore, c.MaxRedemptions, c.TotalRedemptions,
		c.CompanyID, c.BaseModel.Status, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create coupon %s", c.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *couponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 AND status != 'deleted'`
	return r.get(ctx, query, id)
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND status = 'active'`
	return r.get(ctx, query, code)
}

func (r *couponRepository) get(ctx context.Context, query string, arg string) (*coupon.Coupon, error) {
	var row couponRow
	if err := sqlx.GetContext(ctx, r.client.Querier(ctx), &row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("coupon not found").
				WithHint("The coupon does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("failed to get coupon").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *couponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	c.UpdatedAt = time.Now().UTC()
	c.UpdatedBy = types.GetActorID(ctx)

	query := `UPDATE coupons SET name = $2, amount_off = $3, percentage_off = $4,
		recurring = $5, currency = $6, redeem_after = $7, redeem_before = $8,
		max_redemptions = $9, status = $10, updated_at = $11, updated_by = $12
		WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		c.ID, c.Name, c.AmountOff, c.PercentageOff, c.Recurring, c.Currency,
		c.RedeemAfter, c.RedeemBefore, c.MaxRedemptions,
		c.BaseModel.Status, c.UpdatedAt, c.UpdatedBy)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to update coupon %s", c.ID).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("coupon %s not found", c.ID).
			WithHint("The coupon does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *couponRepository) IncrementRedemptions(ctx context.Context, id string) error {
	query := `UPDATE coupons SET total_redemptions = total_redemptions + 1,
		updated_at = $2 WHERE id = $1`
	result, err := r.client.Querier(ctx).ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to increment redemptions for coupon %s", id).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewErrorf("coupon %s not found", id).
			WithHint("The coupon does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
