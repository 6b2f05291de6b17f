package coupon

import (
	"time"

	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Coupon represents a discount code entity
type Coupon struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	// Exactly one of AmountOff/PercentageOff is set depending on Type
	AmountOff     *decimal.Decimal `json:"amount_off,omitempty"`
	PercentageOff *decimal.Decimal `json:"percentage_off,omitempty"`
	Type          types.CouponType `json:"type"`
	// Recurring coupons re-apply at every renewal, not just first purchase
	Recurring bool `json:"recurring"`
	// Currency scopes amount-off coupons; empty means any currency
	Currency         string     `json:"currency,omitempty"`
	RedeemAfter      *time.Time `json:"redeem_after,omitempty"`
	RedeemBefore     *time.Time `json:"redeem_before,omitempty"`
	MaxRedemptions   *int       `json:"max_redemptions,omitempty"`
	TotalRedemptions int        `json:"total_redemptions"`

	types.BaseModel
}

// IsValidAt checks if the coupon is redeemable at the given time for the
// given currency
func (c *Coupon) IsValidAt(at time.Time, currency string) bool {
	if c.RedeemAfter != nil && at.Before(*c.RedeemAfter) {
		return false
	}
	if c.RedeemBefore != nil && at.After(*c.RedeemBefore) {
		return false
	}
	if c.MaxRedemptions != nil && c.TotalRedemptions >= *c.MaxRedemptions {
		return false
	}
	if c.Type == types.CouponTypeAmount && c.Currency != "" && !types.IsSameCurrency(c.Currency, currency) {
		return false
	}
	return true
}

// CalculateDiscount calculates the discount amount for a qualifying subtotal
func (c *Coupon) CalculateDiscount(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.Type {
	case types.CouponTypeAmount:
		if c.AmountOff == nil {
			return decimal.Zero
		}
		discount = *c.AmountOff
	case types.CouponTypePercentage:
		if c.PercentageOff == nil {
			return decimal.Zero
		}
		discount = subtotal.Mul(*c.PercentageOff).Div(decimal.NewFromInt(100))
	default:
		return decimal.Zero
	}

	// A discount never exceeds what it is discounting
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
