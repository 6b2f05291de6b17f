package invoice

import (
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem is one billable line on an invoice. Discount lines carry a
// negative amount so downstream records stay auditable.
type LineItem struct {
	ID        string  `json:"id"`
	InvoiceID string  `json:"invoice_id"`
	ServiceID *string `json:"service_id,omitempty"`
	Description string `json:"description"`
	Quantity  decimal.Decimal `json:"quantity"`
	// Amount is the unit amount; line total is Quantity * Amount
	Amount  decimal.Decimal `json:"amount"`
	Taxable bool            `json:"taxable"`

	types.BaseModel
}

// Total returns the extended line amount
func (l *LineItem) Total() decimal.Decimal {
	return l.Quantity.Mul(l.Amount)
}

// Validate validates the line item
func (l *LineItem) Validate() error {
	if l.Description == "" {
		return ierr.NewError("invalid line description").
			WithHint("Line item description is required").
			WithReportableDetails(map[string]any{"field": "description"}).
			Mark(ierr.ErrValidation)
	}
	if l.Quantity.IsZero() {
		return ierr.NewError("invalid line quantity").
			WithHint("Line item quantity must not be zero").
			WithReportableDetails(map[string]any{"field": "quantity"}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
