package transaction

import (
	"time"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is a payment or credit record. Its applied ledger links
// portions of the amount to specific invoices; the total applied to an
// invoice must never exceed that invoice's remaining due amount.
type Transaction struct {
	ID                string                  `json:"id"`
	ClientID          string                  `json:"client_id"`
	Type              types.TransactionType   `json:"type"`
	TransactionStatus types.TransactionStatus `json:"transaction_status"`
	Amount            decimal.Decimal         `json:"amount"`
	Currency          string                  `json:"currency"`
	// GatewayName and GatewayReference identify the processing gateway and
	// its transaction descriptor; nil for in-house credits
	GatewayName      *string `json:"gateway_name,omitempty"`
	GatewayReference *string `json:"gateway_reference,omitempty"`

	types.BaseModel
}

// Applied is one ledger entry linking a transaction amount to an invoice
type Applied struct {
	TransactionID string          `json:"transaction_id"`
	InvoiceID     string          `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAt     time.Time       `json:"applied_at"`
}

// Validate validates the transaction
func (t *Transaction) Validate() error {
	if t.ClientID == "" {
		return ierr.NewError("invalid client id").
			WithHint("Client id is required").
			WithReportableDetails(map[string]any{"field": "client_id"}).
			Mark(ierr.ErrValidation)
	}
	if t.Amount.IsZero() || t.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{"field": "amount"}).
			Mark(ierr.ErrValidation)
	}
	if t.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			WithReportableDetails(map[string]any{"field": "currency"}).
			Mark(ierr.ErrValidation)
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.TransactionStatus.Validate(); err != nil {
		return err
	}
	if t.Type == types.TransactionTypeGateway && (t.GatewayName == nil || *t.GatewayName == "") {
		return ierr.NewError("invalid gateway name").
			WithHint("Gateway transactions must name their gateway").
			WithReportableDetails(map[string]any{"field": "gateway_name"}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AppliedTotal sums a set of ledger entries
func AppliedTotal(entries []*Applied) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}
	return total
}

// UnappliedAmount returns how much of the transaction remains available
// given its current ledger entries
func (t *Transaction) UnappliedAmount(entries []*Applied) decimal.Decimal {
	return t.Amount.Sub(AppliedTotal(entries))
}
