package types

import (
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/samber/lo"
)

// TransactionStatus is the settlement status of a payment or credit record
type TransactionStatus string

const (
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusDeclined TransactionStatus = "declined"
	TransactionStatusVoid     TransactionStatus = "void"
	TransactionStatusRefunded TransactionStatus = "refunded"
	TransactionStatusReturned TransactionStatus = "returned"
	TransactionStatusError    TransactionStatus = "error"
)

var TransactionStatusValues = []TransactionStatus{
	TransactionStatusApproved,
	TransactionStatusPending,
	TransactionStatusDeclined,
	TransactionStatusVoid,
	TransactionStatusRefunded,
	TransactionStatusReturned,
	TransactionStatusError,
}

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) Validate() error {
	if !lo.Contains(TransactionStatusValues, s) {
		return ierr.NewError("invalid transaction status").
			WithHint("Transaction status must be approved, pending, declined, void, refunded, returned or error").
			WithReportableDetails(map[string]any{
				"allowed_values": TransactionStatusValues,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsApplicable reports whether amounts from this transaction may be applied
// against invoices
func (s TransactionStatus) IsApplicable() bool {
	return s == TransactionStatusApproved
}

// TransactionType distinguishes gateway settlements from in-house credits
type TransactionType string

const (
	TransactionTypeGateway       TransactionType = "gateway"
	TransactionTypeInHouseCredit TransactionType = "in_house_credit"
)

var TransactionTypeValues = []TransactionType{
	TransactionTypeGateway,
	TransactionTypeInHouseCredit,
}

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) Validate() error {
	if !lo.Contains(TransactionTypeValues, t) {
		return ierr.NewError("invalid transaction type").
			WithHint("Transaction type must be gateway or in_house_credit").
			WithReportableDetails(map[string]any{
				"allowed_values": TransactionTypeValues,
				"provided_value": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
