package service

import (
	"testing"

	svc "github.com/servabill/servabill/internal/domain/service"
	"github.com/servabill/servabill/internal/domain/servicechange"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/testutil"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ChangeServiceSuite struct {
	serviceSuite
}

func TestChangeService(t *testing.T) {
	suite.Run(t, new(ChangeServiceSuite))
}

func (s *ChangeServiceSuite) upgradeTarget() servicechange.TargetFields {
	return servicechange.TargetFields{PricingID: "price_pro", Quantity: 1}
}

func (s *ChangeServiceSuite) TestUpgradeQueuesBehindInvoice() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().NoError(err)

	expected := prorated(20, result.Delta.Coefficient, "usd").
		Sub(prorated(10, result.Delta.Coefficient, "usd"))
	s.True(result.Delta.Total.Equal(expected), "delta %s != %s", result.Delta.Total, expected)
	s.True(result.Delta.Total.GreaterThan(decimal.Zero))

	s.Require().NotNil(result.Invoice)
	s.Equal(types.InvoiceStatusActive, result.Invoice.InvoiceStatus)
	s.True(result.Invoice.Subtotal().Equal(result.Delta.Total))

	s.Require().NotNil(result.Change)
	s.Equal(types.ServiceChangeStatusPending, result.Change.ChangeStatus)
	s.Equal(result.Invoice.ID, result.Change.InvoiceID)
	s.False(result.Applied)

	// The service keeps its old configuration until the invoice settles
	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal("price_basic", stored.PricingID)
}

func (s *ChangeServiceSuite) TestSecondRequestReplacesPending() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	first, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().NoError(err)

	second, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_pro",
		Quantity:  2,
	})
	s.Require().NoError(err)

	oldChange, err := s.GetStores().ServiceChange.Get(s.GetContext(), first.Change.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceChangeStatusCanceled, oldChange.ChangeStatus)

	oldInvoice, err := s.GetStores().Invoice.Get(s.GetContext(), first.Invoice.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, oldInvoice.InvoiceStatus)

	pending, err := s.GetStores().ServiceChange.GetPendingByService(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal(second.Change.ID, pending.ID)
}

func (s *ChangeServiceSuite) TestDowngradeAppliesImmediately() {
	s.seedPackage()
	service := s.seedActiveService("price_pro")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_basic",
		Quantity:  1,
	})
	s.Require().NoError(err)

	s.True(result.Applied)
	s.Nil(result.Invoice)
	s.Nil(result.Change)
	s.True(result.Delta.Total.IsNegative())

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal("price_basic", stored.PricingID)

	// The unused remainder comes back as an in-house credit
	txns, err := s.GetStores().Transaction.ListByClient(s.GetContext(), "client_1")
	s.Require().NoError(err)
	s.Require().Len(txns, 1)
	s.Equal(types.TransactionTypeInHouseCredit, txns[0].Type)
	s.Equal(types.TransactionStatusApproved, txns[0].TransactionStatus)
	s.True(txns[0].Amount.Equal(result.Delta.Total.Neg()))
}

func (s *ChangeServiceSuite) TestUpgradeAppliesImmediatelyWhenQueueingDisabled() {
	s.params.Config.Billing.QueueServiceChanges = false
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().NoError(err)

	s.True(result.Applied)
	s.Nil(result.Change)
	s.Require().NotNil(result.Invoice)

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal("price_pro", stored.PricingID)
}

func (s *ChangeServiceSuite) TestOneTimeTermRejected() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	_, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_once",
		Quantity:  1,
	})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ChangeServiceSuite) TestInactiveServiceRejected() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")
	service.ServiceStatus = types.ServiceStatusSuspended
	s.Require().NoError(s.GetStores().Service.Update(s.GetContext(), service))

	_, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ChangeServiceSuite) TestUnknownPricingRejected() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	_, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_missing",
		Quantity:  1,
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ChangeServiceSuite) TestCurrencyMismatchRejected() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	_, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_eur",
		Quantity:  1,
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ChangeServiceSuite) TestClientCannotAddStaffOnlyOption() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	clientCtx := testutil.SetupClientContext()
	_, err := s.changes.RequestChange(clientCtx, service.ID, servicechange.TargetFields{
		PricingID: "price_pro",
		Quantity:  1,
		Options: []*svc.ServiceOption{
			{OptionID: "opt_ram", ValueID: "val_ram_gb", Quantity: 2},
		},
	})
	s.Require().Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *ChangeServiceSuite) TestQuantityBoundsEnforcedForStaff() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	_, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_pro",
		Quantity:  1,
		Options: []*svc.ServiceOption{
			{OptionID: "opt_ram", ValueID: "val_ram_gb", Quantity: 9},
		},
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ChangeServiceSuite) TestOnInvoiceSettledAppliesPendingChange() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().NoError(err)

	s.Require().NoError(s.changes.OnInvoiceSettled(s.GetContext(), result.Invoice.ID))

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal("price_pro", stored.PricingID)

	change, err := s.GetStores().ServiceChange.Get(s.GetContext(), result.Change.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceChangeStatusActive, change.ChangeStatus)

	// Settling an invoice with no pending change is a no-op
	s.NoError(s.changes.OnInvoiceSettled(s.GetContext(), result.Invoice.ID))
}

func (s *ChangeServiceSuite) TestApplyChangeTwiceRejected() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().NoError(err)

	s.Require().NoError(s.changes.ApplyChange(s.GetContext(), result.Change.ID))

	err = s.changes.ApplyChange(s.GetContext(), result.Change.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ChangeServiceSuite) TestApplyChangeFailsWhenPricingRemoved() {
	pkg := s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().NoError(err)

	kept := pkg.Pricings[:0]
	for _, pricing := range pkg.Pricings {
		if pricing.ID != "price_pro" {
			kept = append(kept, pricing)
		}
	}
	pkg.Pricings = kept
	s.Require().NoError(s.GetStores().Catalog.UpdatePackage(s.GetContext(), pkg))

	err = s.changes.ApplyChange(s.GetContext(), result.Change.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ChangeServiceSuite) TestApplyChangeFailsWhenOptionValueRemoved() {
	pkg := s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_pro",
		Quantity:  1,
		Options: []*svc.ServiceOption{
			{OptionID: "opt_os", ValueID: "val_windows"},
		},
	})
	s.Require().NoError(err)
	s.Require().NotNil(result.Change)

	option := pkg.FindOption("opt_os")
	kept := option.Values[:0]
	for _, value := range option.Values {
		if value.ID != "val_windows" {
			kept = append(kept, value)
		}
	}
	option.Values = kept
	s.Require().NoError(s.GetStores().Catalog.UpdatePackage(s.GetContext(), pkg))

	err = s.changes.ApplyChange(s.GetContext(), result.Change.ID)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal("price_basic", stored.PricingID)
	s.Empty(stored.Options)

	change, err := s.GetStores().ServiceChange.Get(s.GetContext(), result.Change.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceChangeStatusPending, change.ChangeStatus)
}

func (s *ChangeServiceSuite) TestCancelPendingForService() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, s.upgradeTarget())
	s.Require().NoError(err)

	s.Require().NoError(s.changes.CancelPendingForService(s.GetContext(), service.ID))

	change, err := s.GetStores().ServiceChange.Get(s.GetContext(), result.Change.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceChangeStatusCanceled, change.ChangeStatus)

	inv, err := s.GetStores().Invoice.Get(s.GetContext(), result.Invoice.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, inv.InvoiceStatus)

	// A second cancel finds nothing pending and succeeds
	s.NoError(s.changes.CancelPendingForService(s.GetContext(), service.ID))
}
