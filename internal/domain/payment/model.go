package payment

import (
	"time"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// Authorization is the explicit pending-operation record for a two-phase
// payment attempt. It replaces ambient session storage: the coordinator
// passes it through its API keyed by client id, with an expiry. At most one
// live authorization may exist per client at a time.
type Authorization struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	// TransactionID is the gateway transaction holding the funds
	TransactionID       string                    `json:"transaction_id"`
	GatewayName         string                    `json:"gateway_name"`
	Amount              decimal.Decimal           `json:"amount"`
	Currency            string                    `json:"currency"`
	AuthorizationStatus types.AuthorizationStatus `json:"authorization_status"`
	// InvoiceIDs are the invoices the capture will be applied against,
	// re-itemizable until confirmation
	InvoiceIDs []string  `json:"invoice_ids,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`

	types.BaseModel
}

// Validate validates the authorization record
func (a *Authorization) Validate() error {
	if a.ClientID == "" {
		return ierr.NewError("invalid client id").
			WithHint("Client id is required").
			WithReportableDetails(map[string]any{"field": "client_id"}).
			Mark(ierr.ErrValidation)
	}
	if a.TransactionID == "" {
		return ierr.NewError("invalid transaction id").
			WithHint("Transaction id is required").
			WithReportableDetails(map[string]any{"field": "transaction_id"}).
			Mark(ierr.ErrValidation)
	}
	if a.Amount.IsZero() || a.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{"field": "amount"}).
			Mark(ierr.ErrValidation)
	}
	return a.AuthorizationStatus.Validate()
}

// IsExpired reports whether the record has outlived its hold window
func (a *Authorization) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
