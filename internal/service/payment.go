package service

import (
	"context"
	"time"

	"github.com/servabill/servabill/internal/domain/gateway"
	"github.com/servabill/servabill/internal/domain/invoice"
	"github.com/servabill/servabill/internal/domain/payment"
	"github.com/servabill/servabill/internal/domain/transaction"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// PaymentRequest names the invoices a payment should settle and how
type PaymentRequest struct {
	ClientID    string
	GatewayName string
	// AccountRef identifies the client's stored payment account at the
	// gateway
	AccountRef string
	InvoiceIDs []string
}

// PaymentService coordinates gateways, transactions and invoice settlement.
// Two-phase gateways stage an authorization record; single-step gateways
// process and settle in one call.
type PaymentService interface {
	// Authorize reserves funds for a set of invoices on an auth-capable
	// gateway, voiding any previous live authorization first. Returns
	// ErrUnsupportedOperation when the gateway cannot stage payments.
	Authorize(ctx context.Context, req PaymentRequest) (*payment.Authorization, error)

	// Capture finalizes a live authorization and applies the captured
	// amount across its invoices
	Capture(ctx context.Context, authorizationID string) error

	// CancelAuthorization voids a live authorization; the gateway void is
	// best effort, the record is retired regardless
	CancelAuthorization(ctx context.Context, authorizationID string) error

	// Process charges and settles invoices in a single step, the path for
	// gateways without authorize/capture support
	Process(ctx context.Context, req PaymentRequest) (*transaction.Transaction, error)
}

type paymentService struct {
	ServiceParams
	billing BillingService
	changes ChangeService
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams, billing BillingService, changes ChangeService) PaymentService {
	return &paymentService{ServiceParams: params, billing: billing, changes: changes}
}

// collectDue loads the named invoices and totals what they still owe.
// All invoices must share one currency.
func (s *paymentService) collectDue(ctx context.Context, req PaymentRequest) ([]*invoice.Invoice, decimal.Decimal, string, error) {
	if len(req.InvoiceIDs) == 0 {
		return nil, decimal.Zero, "", ierr.NewError("no invoices selected").
			WithHint("A payment must name at least one invoice").
			Mark(ierr.ErrValidation)
	}

	var invoices []*invoice.Invoice
	total := decimal.Zero
	currency := ""
	for _, id := range req.InvoiceIDs {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return nil, decimal.Zero, "", err
		}
		if inv.ClientID != req.ClientID {
			return nil, decimal.Zero, "", ierr.NewErrorf("invoice %s belongs to another client", id).
				WithHint("All invoices must belong to the paying client").
				Mark(ierr.ErrPermissionDenied)
		}
		if !inv.InvoiceStatus.IsOpen() {
			return nil, decimal.Zero, "", ierr.NewErrorf("invoice %s is not collecting payment", id).
				WithHint("The invoice is not open").
				WithReportableDetails(map[string]any{"invoice_status": inv.InvoiceStatus}).
				Mark(ierr.ErrInvalidOperation)
		}
		if currency == "" {
			currency = inv.Currency
		} else if !types.IsSameCurrency(currency, inv.Currency) {
			return nil, decimal.Zero, "", ierr.NewError("mixed invoice currencies").
				WithHint("A single payment cannot span currencies").
				Mark(ierr.ErrValidation)
		}

		remaining, err := s.billing.RemainingDue(ctx, inv)
		if err != nil {
			return nil, decimal.Zero, "", err
		}
		total = total.Add(remaining)
		invoices = append(invoices, inv)
	}

	if total.LessThanOrEqual(decimal.Zero) {
		return nil, decimal.Zero, "", ierr.NewError("nothing to collect").
			WithHint("The selected invoices are already settled").
			Mark(ierr.ErrInvalidOperation)
	}
	return invoices, total, currency, nil
}

func (s *paymentService) Authorize(ctx context.Context, req PaymentRequest) (*payment.Authorization, error) {
	gw, err := s.Gateways.Resolve(req.GatewayName)
	if err != nil {
		return nil, err
	}
	authGateway, err := gateway.AsAuthCapable(gw)
	if err != nil {
		return nil, err
	}

	_, total, currency, err := s.collectDue(ctx, req)
	if err != nil {
		return nil, err
	}

	// A client holds at most one live authorization; an earlier one is
	// retired before the new hold is placed, never silently replaced.
	if existing, err := s.PaymentRepo.GetLiveByClient(ctx, req.ClientID); err == nil {
		if err := s.CancelAuthorization(ctx, existing.ID); err != nil {
			return nil, err
		}
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	result, err := authGateway.Authorize(ctx, gateway.ChargeRequest{
		ClientID:   req.ClientID,
		Amount:     total,
		Currency:   currency,
		AccountRef: req.AccountRef,
	})
	if err != nil {
		return nil, err
	}

	var auth *payment.Authorization
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		txn := &transaction.Transaction{
			ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
			ClientID:          req.ClientID,
			Type:              types.TransactionTypeGateway,
			TransactionStatus: types.TransactionStatusPending,
			Amount:            total,
			Currency:          currency,
			GatewayName:       &req.GatewayName,
			GatewayReference:  &result.Reference,
			BaseModel:         types.GetDefaultBaseModel(ctx),
		}
		if err := s.TransactionRepo.Create(ctx, txn); err != nil {
			return err
		}

		auth = &payment.Authorization{
			ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUTHORIZATION),
			ClientID:            req.ClientID,
			TransactionID:       txn.ID,
			GatewayName:         req.GatewayName,
			Amount:              total,
			Currency:            currency,
			AuthorizationStatus: types.AuthorizationStatusAuthorized,
			InvoiceIDs:          req.InvoiceIDs,
			ExpiresAt:           time.Now().UTC().Add(time.Duration(s.Config.Billing.AuthorizationHoldMinutes) * time.Minute),
			BaseModel:           types.GetDefaultBaseModel(ctx),
		}
		if err := auth.Validate(); err != nil {
			return err
		}
		return s.PaymentRepo.Create(ctx, auth)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("authorized payment",
		"authorization_id", auth.ID,
		"client_id", req.ClientID,
		"gateway", req.GatewayName,
		"amount", total.String(),
		"currency", currency,
	)
	return auth, nil
}

func (s *paymentService) Capture(ctx context.Context, authorizationID string) error {
	auth, err := s.PaymentRepo.Get(ctx, authorizationID)
	if err != nil {
		return err
	}
	if !auth.AuthorizationStatus.IsLive() {
		return ierr.NewErrorf("authorization %s is not live", authorizationID).
			WithHint("The authorization was already captured or voided").
			WithReportableDetails(map[string]any{"authorization_status": auth.AuthorizationStatus}).
			Mark(ierr.ErrInvalidOperation)
	}
	if auth.IsExpired(time.Now().UTC()) {
		return ierr.NewErrorf("authorization %s has expired", authorizationID).
			WithHint("The payment hold lapsed; authorize again").
			WithReportableDetails(map[string]any{"expires_at": auth.ExpiresAt}).
			Mark(ierr.ErrInvalidOperation)
	}

	txn, err := s.TransactionRepo.Get(ctx, auth.TransactionID)
	if err != nil {
		return err
	}

	gw, err := s.Gateways.Resolve(auth.GatewayName)
	if err != nil {
		return err
	}
	authGateway, err := gateway.AsAuthCapable(gw)
	if err != nil {
		return err
	}
	if _, err := authGateway.Capture(ctx, derefOrEmpty(txn.GatewayReference), auth.Amount); err != nil {
		return err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		txn.TransactionStatus = types.TransactionStatusApproved
		if err := s.TransactionRepo.Update(ctx, txn); err != nil {
			return err
		}
		if err := s.settle(ctx, txn, auth.InvoiceIDs); err != nil {
			return err
		}
		auth.AuthorizationStatus = types.AuthorizationStatusCaptured
		return s.PaymentRepo.Update(ctx, auth)
	})
	if err != nil {
		return err
	}

	// Settled invoices may release queued changes; run the hooks outside
	// the settlement transaction so a failing apply does not unwind payment
	for _, invoiceID := range auth.InvoiceIDs {
		if err := s.changes.OnInvoiceSettled(ctx, invoiceID); err != nil {
			s.Logger.Errorw("failed to apply queued change after settlement",
				"invoice_id", invoiceID,
				"error", err,
			)
		}
	}

	s.Logger.Infow("captured payment",
		"authorization_id", authorizationID,
		"transaction_id", txn.ID,
		"amount", auth.Amount.String(),
	)
	return nil
}

// settle walks the invoices in order, applying as much of the transaction
// as each still needs
func (s *paymentService) settle(ctx context.Context, txn *transaction.Transaction, invoiceIDs []string) error {
	for _, invoiceID := range invoiceIDs {
		inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		remaining, err := s.billing.RemainingDue(ctx, inv)
		if err != nil {
			return err
		}
		if remaining.LessThanOrEqual(decimal.Zero) {
			continue
		}

		entries, err := s.TransactionRepo.GetAppliedByTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}
		available := txn.UnappliedAmount(entries)
		if available.LessThanOrEqual(decimal.Zero) {
			break
		}

		amount := decimal.Min(remaining, available)
		if _, err := s.billing.ApplyTransaction(ctx, txn.ID, invoiceID, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *paymentService) CancelAuthorization(ctx context.Context, authorizationID string) error {
	auth, err := s.PaymentRepo.Get(ctx, authorizationID)
	if err != nil {
		return err
	}
	if !auth.AuthorizationStatus.IsLive() {
		return ierr.NewErrorf("authorization %s is not live", authorizationID).
			WithHint("The authorization was already captured or voided").
			Mark(ierr.ErrInvalidOperation)
	}

	txn, err := s.TransactionRepo.Get(ctx, auth.TransactionID)
	if err != nil {
		return err
	}

	// Best effort: the hold expires at the gateway on its own either way,
	// the local record must not stay live
	if gw, err := s.Gateways.Resolve(auth.GatewayName); err == nil {
		if _, err := gw.Void(ctx, derefOrEmpty(txn.GatewayReference)); err != nil {
			s.Logger.Warnw("gateway void failed, retiring authorization anyway",
				"authorization_id", authorizationID,
				"gateway", auth.GatewayName,
				"error", err,
			)
		}
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		txn.TransactionStatus = types.TransactionStatusVoid
		if err := s.TransactionRepo.Update(ctx, txn); err != nil {
			return err
		}
		auth.AuthorizationStatus = types.AuthorizationStatusVoided
		if err := s.PaymentRepo.Update(ctx, auth); err != nil {
			return err
		}

		s.Logger.Infow("voided authorization", "authorization_id", authorizationID)
		return nil
	})
}

func (s *paymentService) Process(ctx context.Context, req PaymentRequest) (*transaction.Transaction, error) {
	gw, err := s.Gateways.Resolve(req.GatewayName)
	if err != nil {
		return nil, err
	}

	_, total, currency, err := s.collectDue(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := gw.Process(ctx, gateway.ChargeRequest{
		ClientID:   req.ClientID,
		Amount:     total,
		Currency:   currency,
		AccountRef: req.AccountRef,
	})
	if err != nil {
		return nil, err
	}

	txn := &transaction.Transaction{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		ClientID:          req.ClientID,
		Type:              types.TransactionTypeGateway,
		TransactionStatus: types.TransactionStatusApproved,
		Amount:            total,
		Currency:          currency,
		GatewayName:       &req.GatewayName,
		GatewayReference:  &result.Reference,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.TransactionRepo.Create(ctx, txn); err != nil {
			return err
		}
		return s.settle(ctx, txn, req.InvoiceIDs)
	})
	if err != nil {
		return nil, err
	}

	for _, invoiceID := range req.InvoiceIDs {
		if err := s.changes.OnInvoiceSettled(ctx, invoiceID); err != nil {
			s.Logger.Errorw("failed to apply queued change after settlement",
				"invoice_id", invoiceID,
				"error", err,
			)
		}
	}

	s.Logger.Infow("processed payment",
		"transaction_id", txn.ID,
		"client_id", req.ClientID,
		"gateway", req.GatewayName,
		"amount", total.String(),
	)
	return txn, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
