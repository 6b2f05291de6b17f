package service

import (
	"context"
	"time"

	"github.com/servabill/servabill/internal/domain/invoice"
	"github.com/servabill/servabill/internal/domain/pricing"
	"github.com/servabill/servabill/internal/domain/transaction"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// BillingService issues invoices and credits and maintains the applied
// ledger between transactions and invoices
type BillingService interface {
	// MaterializeInvoice turns a presenter result into a stored invoice.
	// Discounts become negative non-taxable lines; tax is never stored.
	MaterializeInvoice(ctx context.Context, clientID string, serviceID *string, result *pricing.Result, dateDue time.Time) (*invoice.Invoice, error)

	// CreateRenewalInvoice cuts the next-cycle invoice for a service
	CreateRenewalInvoice(ctx context.Context, serviceID string) (*invoice.Invoice, error)

	// GetInvoice retrieves an invoice with its computed totals
	GetInvoice(ctx context.Context, id string) (*InvoiceView, error)

	// VoidInvoice voids an invoice that has no applied transactions
	VoidInvoice(ctx context.Context, id string) error

	// ApplyTransaction applies part of a transaction to an invoice and
	// closes the invoice once fully paid
	ApplyTransaction(ctx context.Context, transactionID, invoiceID string, amount decimal.Decimal) (*invoice.Invoice, error)

	// UnapplyTransaction removes an applied entry and reopens the invoice
	UnapplyTransaction(ctx context.Context, transactionID, invoiceID string) error

	// UnapplyAll removes every applied entry from an invoice
	UnapplyAll(ctx context.Context, invoiceID string) error

	// IssueCredit creates an in-house credit transaction for a client
	IssueCredit(ctx context.Context, clientID string, amount decimal.Decimal, currency string) (*transaction.Transaction, error)

	// RemainingDue returns how much of the invoice is still uncollected
	RemainingDue(ctx context.Context, inv *invoice.Invoice) (decimal.Decimal, error)
}

// InvoiceView pairs an invoice with its render-time tax computation
type InvoiceView struct {
	Invoice  *invoice.Invoice
	TaxTotal decimal.Decimal
	TotalDue decimal.Decimal
	Applied  decimal.Decimal
}

type billingService struct {
	ServiceParams
}

// NewBillingService creates a new billing service
func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (s *billingService) MaterializeInvoice(ctx context.Context, clientID string, serviceID *string, result *pricing.Result, dateDue time.Time) (*invoice.Invoice, error) {
	now := time.Now().UTC()
	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		Number:        types.GenerateShortIDWithPrefix("INV-"),
		ClientID:      clientID,
		ServiceID:     serviceID,
		Currency:      result.Currency,
		InvoiceStatus: types.InvoiceStatusActive,
		DateBilled:    now,
		DateDue:       dateDue,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	for _, item := range result.Items {
		line := &invoice.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			Amount:      item.UnitAmount,
			Taxable:     item.Taxable,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}
		if item.ServiceID != "" {
			id := item.ServiceID
			line.ServiceID = &id
		}
		inv.LineItems = append(inv.LineItems, line)
	}

	for _, discount := range result.Discounts {
		inv.LineItems = append(inv.LineItems, &invoice.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:   inv.ID,
			Description: discount.Description,
			Quantity:    decimal.NewFromInt(1),
			Amount:      discount.Amount,
			Taxable:     false,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		})
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.Number,
		"client_id", clientID,
		"currency", inv.Currency,
		"subtotal", inv.Subtotal().String(),
	)
	return inv, nil
}

func (s *billingService) CreateRenewalInvoice(ctx context.Context, serviceID string) (*invoice.Invoice, error) {
	service, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if service.ServiceStatus != types.ServiceStatusActive {
		return nil, ierr.NewErrorf("service %s is not active", serviceID).
			WithHint("Only active services renew").
			WithReportableDetails(map[string]any{"service_status": service.ServiceStatus}).
			Mark(ierr.ErrInvalidOperation)
	}

	pkg, err := s.CatalogRepo.GetPackage(ctx, service.PackageID)
	if err != nil {
		return nil, err
	}
	pricingTerm := pkg.FindPricing(service.PricingID)
	if pricingTerm == nil {
		return nil, ierr.NewErrorf("pricing %s not found on package %s", service.PricingID, pkg.ID).
			Mark(ierr.ErrNotFound)
	}
	if !pricingTerm.IsRecurring() {
		return nil, ierr.NewError("one-time services do not renew").
			WithHint("The service is sold under a one-time term").
			Mark(ierr.ErrInvalidOperation)
	}

	lines, currency, err := resolveConfigLines(pkg, pricingTerm, configFromService(service), true)
	if err != nil {
		return nil, err
	}

	params := pricing.PresenterParams{
		Lines:    lines,
		Currency: currency,
	}
	if rules, err := s.TaxProvider.RulesForClient(ctx, service.ClientID); err == nil {
		params.TaxRules = rules
	} else {
		return nil, err
	}
	if service.CouponID != nil {
		cpn, err := s.CouponRepo.Get(ctx, *service.CouponID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		if cpn != nil {
			params.Coupon = &pricing.CouponContext{
				Coupon:  cpn,
				AsOf:    time.Now().UTC(),
				Renewal: true,
			}
		}
	}

	result, err := pricing.ComputeTotals(params)
	if err != nil {
		return nil, err
	}
	return s.MaterializeInvoice(ctx, service.ClientID, &service.ID, result, service.DateRenews)
}

func (s *billingService) GetInvoice(ctx context.Context, id string) (*InvoiceView, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rules, err := s.TaxProvider.RulesForClient(ctx, inv.ClientID)
	if err != nil {
		return nil, err
	}
	entries, err := s.TransactionRepo.GetAppliedByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceView{
		Invoice:  inv,
		TaxTotal: inv.TaxTotal(rules),
		TotalDue: inv.TotalDue(rules),
		Applied:  transaction.AppliedTotal(entries),
	}, nil
}

func (s *billingService) VoidInvoice(ctx context.Context, id string) error {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	entries, err := s.TransactionRepo.GetAppliedByInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := inv.GuardVoid(transaction.AppliedTotal(entries)); err != nil {
		return err
	}

	inv.InvoiceStatus = types.InvoiceStatusVoid
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	s.Logger.Infow("voided invoice", "invoice_id", id, "actor", types.GetActorID(ctx))
	return nil
}

func (s *billingService) ApplyTransaction(ctx context.Context, transactionID, invoiceID string, amount decimal.Decimal) (*invoice.Invoice, error) {
	var inv *invoice.Invoice

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		txn, err := s.TransactionRepo.Get(ctx, transactionID)
		if err != nil {
			return err
		}
		if !txn.TransactionStatus.IsApplicable() {
			return ierr.NewErrorf("transaction %s is not applicable", transactionID).
				WithHint("Only approved transactions can be applied").
				WithReportableDetails(map[string]any{"transaction_status": txn.TransactionStatus}).
				Mark(ierr.ErrInvalidOperation)
		}

		inv, err = s.InvoiceRepo.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.InvoiceStatus.IsOpen() {
			return ierr.NewErrorf("invoice %s is not collecting payment", invoiceID).
				WithHint("The invoice is not open").
				WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
				Mark(ierr.ErrInvalidOperation)
		}
		if !types.IsSameCurrency(txn.Currency, inv.Currency) {
			return ierr.NewError("currency mismatch").
				WithHint("The transaction and invoice currencies differ").
				WithReportableDetails(map[string]any{
					"transaction_currency": txn.Currency,
					"invoice_currency":     inv.Currency,
				}).
				Mark(ierr.ErrValidation)
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			return ierr.NewError("invalid applied amount").
				WithHint("The applied amount must be positive").
				Mark(ierr.ErrValidation)
		}

		txnEntries, err := s.TransactionRepo.GetAppliedByTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(txn.UnappliedAmount(txnEntries)) {
			return ierr.NewError("amount exceeds unapplied balance").
				WithHint("The transaction does not have that much unapplied").
				WithReportableDetails(map[string]any{
					"unapplied": txn.UnappliedAmount(txnEntries).String(),
					"requested": amount.String(),
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		remaining, err := s.RemainingDue(ctx, inv)
		if err != nil {
			return err
		}
		if amount.GreaterThan(remaining) {
			return ierr.NewError("amount exceeds remaining due").
				WithHint("Applying this amount would overpay the invoice").
				WithReportableDetails(map[string]any{
					"remaining": remaining.String(),
					"requested": amount.String(),
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		if err := s.TransactionRepo.Apply(ctx, &transaction.Applied{
			TransactionID: transactionID,
			InvoiceID:     invoiceID,
			Amount:        amount,
			AppliedAt:     time.Now().UTC(),
		}); err != nil {
			return err
		}

		if remaining.Sub(amount).IsZero() {
			now := time.Now().UTC()
			inv.InvoiceStatus = types.InvoiceStatusClosed
			inv.DateClosed = &now
			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				return err
			}
			s.Logger.Infow("invoice fully paid", "invoice_id", invoiceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *billingService) UnapplyTransaction(ctx context.Context, transactionID, invoiceID string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.TransactionRepo.Unapply(ctx, transactionID, invoiceID); err != nil {
			return err
		}
		return s.reopenIfClosed(ctx, invoiceID)
	})
}

func (s *billingService) UnapplyAll(ctx context.Context, invoiceID string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		entries, err := s.TransactionRepo.GetAppliedByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.TransactionRepo.Unapply(ctx, entry.TransactionID, entry.InvoiceID); err != nil {
				return err
			}
		}
		if len(entries) == 0 {
			return nil
		}
		return s.reopenIfClosed(ctx, invoiceID)
	})
}

func (s *billingService) reopenIfClosed(ctx context.Context, invoiceID string) error {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.InvoiceStatus != types.InvoiceStatusClosed {
		return nil
	}
	inv.InvoiceStatus = types.InvoiceStatusActive
	inv.DateClosed = nil
	return s.InvoiceRepo.Update(ctx, inv)
}

func (s *billingService) IssueCredit(ctx context.Context, clientID string, amount decimal.Decimal, currency string) (*transaction.Transaction, error) {
	txn := &transaction.Transaction{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		ClientID:          clientID,
		Type:              types.TransactionTypeInHouseCredit,
		TransactionStatus: types.TransactionStatusApproved,
		Amount:            amount,
		Currency:          currency,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	if err := s.TransactionRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	s.Logger.Infow("issued credit",
		"transaction_id", txn.ID,
		"client_id", clientID,
		"amount", amount.String(),
		"currency", currency,
	)
	return txn, nil
}

func (s *billingService) RemainingDue(ctx context.Context, inv *invoice.Invoice) (decimal.Decimal, error) {
	rules, err := s.TaxProvider.RulesForClient(ctx, inv.ClientID)
	if err != nil {
		return decimal.Zero, err
	}
	entries, err := s.TransactionRepo.GetAppliedByInvoice(ctx, inv.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return inv.TotalDue(rules).Sub(transaction.AppliedTotal(entries)), nil
}
