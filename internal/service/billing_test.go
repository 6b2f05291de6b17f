package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/servabill/servabill/internal/domain/coupon"
	"github.com/servabill/servabill/internal/domain/pricing"
	"github.com/servabill/servabill/internal/domain/tax"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BillingServiceSuite struct {
	serviceSuite
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

// halfOffCoupon builds a 50 percent coupon, recurring or first-purchase only
func (s *BillingServiceSuite) halfOffCoupon(recurring bool) *coupon.Coupon {
	return &coupon.Coupon{
		ID:            "cpn_half",
		Code:          "HALF",
		Type:          types.CouponTypePercentage,
		PercentageOff: lo.ToPtr(decimal.NewFromInt(50)),
		Recurring:     recurring,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
}

// invoiceFor cuts a simple single-line invoice for the default client
func (s *BillingServiceSuite) invoiceFor(amount int64) string {
	result := &pricing.Result{
		Items: []pricing.Item{{
			Description: "Cloud VPS",
			Quantity:    decimal.NewFromInt(1),
			UnitAmount:  decimal.NewFromInt(amount),
			Total:       decimal.NewFromInt(amount),
			Taxable:     true,
		}},
		Totals:   pricing.Totals{Subtotal: decimal.NewFromInt(amount), Total: decimal.NewFromInt(amount)},
		Currency: "usd",
	}
	inv, err := s.billing.MaterializeInvoice(s.GetContext(), "client_1", nil, result, time.Now().UTC().AddDate(0, 0, 14))
	s.Require().NoError(err)
	return inv.ID
}

func (s *BillingServiceSuite) TestMaterializeInvoiceWithDiscount() {
	result := &pricing.Result{
		Items: []pricing.Item{{
			Description: "Cloud VPS",
			Quantity:    decimal.NewFromInt(2),
			UnitAmount:  decimal.NewFromInt(10),
			Total:       decimal.NewFromInt(20),
			Taxable:     true,
			ServiceID:   "svc_1",
		}},
		Discounts: []pricing.Discount{{
			Description: "Coupon WELCOME",
			CouponID:    "cpn_welcome",
			Amount:      decimal.NewFromInt(-5),
		}},
		Currency: "usd",
	}

	inv, err := s.billing.MaterializeInvoice(s.GetContext(), "client_1", nil, result, time.Now().UTC())
	s.Require().NoError(err)

	s.Equal(types.InvoiceStatusActive, inv.InvoiceStatus)
	s.NotEmpty(inv.Number)
	s.Require().Len(inv.LineItems, 2)
	s.True(inv.LineItems[0].Taxable)
	s.Require().NotNil(inv.LineItems[0].ServiceID)
	s.Equal("svc_1", *inv.LineItems[0].ServiceID)

	// Discounts land as negative non-taxable lines
	s.False(inv.LineItems[1].Taxable)
	s.True(inv.LineItems[1].Amount.Equal(decimal.NewFromInt(-5)))
	s.True(inv.Subtotal().Equal(decimal.NewFromInt(15)))
}

func (s *BillingServiceSuite) TestRenewalInvoiceUsesRenewalPrice() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	inv, err := s.billing.CreateRenewalInvoice(s.GetContext(), service.ID)
	s.Require().NoError(err)

	// Renewal price, no setup fee
	s.Require().Len(inv.LineItems, 1)
	s.True(inv.Subtotal().Equal(decimal.NewFromInt(8)))
	s.True(inv.DateDue.Equal(service.DateRenews))
}

func (s *BillingServiceSuite) TestRenewalInvoiceAppliesRecurringCoupon() {
	s.seedPackage()
	s.Require().NoError(s.GetStores().Coupon.Create(s.GetContext(), s.halfOffCoupon(true)))
	service := s.seedActiveService("price_basic")
	service.CouponID = lo.ToPtr("cpn_half")
	s.Require().NoError(s.GetStores().Service.Update(s.GetContext(), service))

	inv, err := s.billing.CreateRenewalInvoice(s.GetContext(), service.ID)
	s.Require().NoError(err)

	s.Require().Len(inv.LineItems, 2)
	s.True(inv.Subtotal().Equal(decimal.NewFromInt(4)))
}

func (s *BillingServiceSuite) TestRenewalInvoiceSkipsNonRecurringCoupon() {
	s.seedPackage()
	s.Require().NoError(s.GetStores().Coupon.Create(s.GetContext(), s.halfOffCoupon(false)))
	service := s.seedActiveService("price_basic")
	service.CouponID = lo.ToPtr("cpn_half")
	s.Require().NoError(s.GetStores().Service.Update(s.GetContext(), service))

	inv, err := s.billing.CreateRenewalInvoice(s.GetContext(), service.ID)
	s.Require().NoError(err)

	// First-purchase coupons do not follow the service into renewals
	s.Require().Len(inv.LineItems, 1)
	s.True(inv.Subtotal().Equal(decimal.NewFromInt(8)))
}

func (s *BillingServiceSuite) TestRenewalRejectedForOneTimeTerm() {
	s.seedPackage()
	service := s.seedActiveService("price_once")

	_, err := s.billing.CreateRenewalInvoice(s.GetContext(), service.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestRenewalRejectedForInactiveService() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")
	service.ServiceStatus = types.ServiceStatusSuspended
	s.Require().NoError(s.GetStores().Service.Update(s.GetContext(), service))

	_, err := s.billing.CreateRenewalInvoice(s.GetContext(), service.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestApplyTransactionClosesPaidInvoice() {
	invoiceID := s.invoiceFor(10)
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(10), "usd")
	s.Require().NoError(err)

	inv, err := s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(10))
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusClosed, inv.InvoiceStatus)
	s.NotNil(inv.DateClosed)

	view, err := s.billing.GetInvoice(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.True(view.Applied.Equal(decimal.NewFromInt(10)))
	s.True(view.TotalDue.Equal(decimal.NewFromInt(10)))
}

func (s *BillingServiceSuite) TestApplyTransactionPartialKeepsInvoiceOpen() {
	invoiceID := s.invoiceFor(10)
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(4), "usd")
	s.Require().NoError(err)

	inv, err := s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(4))
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusActive, inv.InvoiceStatus)

	remaining, err := s.billing.RemainingDue(s.GetContext(), inv)
	s.Require().NoError(err)
	s.True(remaining.Equal(decimal.NewFromInt(6)))
}

func (s *BillingServiceSuite) TestApplyTransactionRejectsOverpayment() {
	invoiceID := s.invoiceFor(10)
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(20), "usd")
	s.Require().NoError(err)

	_, err = s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(15))
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestApplyTransactionRejectsExceedingUnapplied() {
	invoiceID := s.invoiceFor(10)
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(5), "usd")
	s.Require().NoError(err)

	_, err = s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(8))
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *BillingServiceSuite) TestApplyTransactionRejectsCurrencyMismatch() {
	invoiceID := s.invoiceFor(10)
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(10), "eur")
	s.Require().NoError(err)

	_, err = s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(10))
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestVoidInvoiceWithAppliedRejected() {
	invoiceID := s.invoiceFor(10)
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(4), "usd")
	s.Require().NoError(err)
	_, err = s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(4))
	s.Require().NoError(err)

	err = s.billing.VoidInvoice(s.GetContext(), invoiceID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))

	s.Require().NoError(s.billing.UnapplyAll(s.GetContext(), invoiceID))
	s.Require().NoError(s.billing.VoidInvoice(s.GetContext(), invoiceID))

	inv, err := s.GetStores().Invoice.Get(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, inv.InvoiceStatus)
}

func (s *BillingServiceSuite) TestUnapplyReopensClosedInvoice() {
	invoiceID := s.invoiceFor(10)
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(10), "usd")
	s.Require().NoError(err)
	_, err = s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(10))
	s.Require().NoError(err)

	s.Require().NoError(s.billing.UnapplyTransaction(s.GetContext(), txn.ID, invoiceID))

	inv, err := s.GetStores().Invoice.Get(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusActive, inv.InvoiceStatus)
	s.Nil(inv.DateClosed)
}

func (s *BillingServiceSuite) TestRemainingDueIncludesExclusiveTax() {
	s.Require().NoError(s.GetStores().Tax.Create(s.GetContext(), &tax.Rule{
		ID:        "tax_vat",
		Name:      "VAT",
		Rate:      decimal.NewFromInt(20),
		Type:      types.TaxRuleTypeExclusive,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}))
	invoiceID := s.invoiceFor(10)

	inv, err := s.GetStores().Invoice.Get(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	remaining, err := s.billing.RemainingDue(s.GetContext(), inv)
	s.Require().NoError(err)
	s.True(remaining.Equal(decimal.NewFromInt(12)))

	// The invoice closes at the tax-inclusive amount, not the subtotal
	txn, err := s.billing.IssueCredit(s.GetContext(), "client_1", decimal.NewFromInt(12), "usd")
	s.Require().NoError(err)
	paid, err := s.billing.ApplyTransaction(s.GetContext(), txn.ID, invoiceID, decimal.NewFromInt(12))
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusClosed, paid.InvoiceStatus)
}
