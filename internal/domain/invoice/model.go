package invoice

import (
	"time"

	"github.com/servabill/servabill/internal/domain/tax"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice represents billable lines tied optionally to a service. Tax is
// never stored on lines; it is computed at query time from each line's
// taxable flag plus the currently active tax rules.
type Invoice struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	ClientID string `json:"client_id"`
	// ServiceID ties a service-scoped invoice to its service
	ServiceID     *string             `json:"service_id,omitempty"`
	Currency      string              `json:"currency"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	DateBilled    time.Time           `json:"date_billed"`
	DateDue       time.Time           `json:"date_due"`
	DateClosed    *time.Time          `json:"date_closed,omitempty"`
	LineItems     []*LineItem         `json:"line_items,omitempty"`

	types.BaseModel
}

// Validate validates the invoice
func (i *Invoice) Validate() error {
	if i.ClientID == "" {
		return ierr.NewError("invalid client id").
			WithHint("Client id is required").
			WithReportableDetails(map[string]any{"field": "client_id"}).
			Mark(ierr.ErrValidation)
	}
	if i.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			WithReportableDetails(map[string]any{"field": "currency"}).
			Mark(ierr.ErrValidation)
	}
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	for _, line := range i.LineItems {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Subtotal sums all line amounts, discounts included, tax excluded
func (i *Invoice) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range i.LineItems {
		subtotal = subtotal.Add(line.Total())
	}
	return subtotal
}

// TaxTotal resolves tax from the taxable lines against the given rules.
// Inclusive rules report extracted tax without changing the total due.
func (i *Invoice) TaxTotal(rules []*tax.Rule) decimal.Decimal {
	taxable := decimal.Zero
	for _, line := range i.LineItems {
		if line.Taxable {
			taxable = taxable.Add(line.Total())
		}
	}

	total := decimal.Zero
	for _, rule := range rules {
		total = total.Add(rule.TaxOn(taxable))
	}
	return total.Round(types.GetCurrencyPrecision(i.Currency))
}

// TotalDue is the collectible amount: subtotal plus exclusive tax
func (i *Invoice) TotalDue(rules []*tax.Rule) decimal.Decimal {
	total := i.Subtotal()
	taxable := decimal.Zero
	for _, line := range i.LineItems {
		if line.Taxable {
			taxable = taxable.Add(line.Total())
		}
	}
	for _, rule := range rules {
		if !rule.IsInclusive() {
			total = total.Add(rule.TaxOn(taxable))
		}
	}
	return total.Round(types.GetCurrencyPrecision(i.Currency))
}

// GuardVoid rejects voiding while transactions remain applied. An invoice
// may not be void while applied amounts remain on it.
func (i *Invoice) GuardVoid(appliedTotal decimal.Decimal) error {
	if i.InvoiceStatus == types.InvoiceStatusVoid {
		return ierr.NewError("invoice already void").
			WithHint("The invoice is already void").
			WithReportableDetails(map[string]any{
				"field":      "invoice_status",
				"invoice_id": i.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if appliedTotal.GreaterThan(decimal.Zero) {
		return ierr.NewError("invoice has applied transactions").
			WithHint("Unapply all transactions before voiding the invoice").
			WithReportableDetails(map[string]any{
				"field":          "applied_total",
				"invoice_id":     i.ID,
				"applied_amount": appliedTotal.String(),
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}
