package types

import (
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus is the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusActive   InvoiceStatus = "active"
	InvoiceStatusProforma InvoiceStatus = "proforma"
	InvoiceStatusVoid     InvoiceStatus = "void"
	InvoiceStatusClosed   InvoiceStatus = "closed"
)

var InvoiceStatusValues = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusActive,
	InvoiceStatusProforma,
	InvoiceStatusVoid,
	InvoiceStatusClosed,
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	if !lo.Contains(InvoiceStatusValues, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Invoice status must be draft, active, proforma, void or closed").
			WithReportableDetails(map[string]any{
				"allowed_values": InvoiceStatusValues,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsOpen reports whether the invoice can still collect payments
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusActive || s == InvoiceStatusProforma
}

// IsFinal reports whether the invoice can no longer change
func (s InvoiceStatus) IsFinal() bool {
	return s == InvoiceStatusVoid || s == InvoiceStatusClosed
}
