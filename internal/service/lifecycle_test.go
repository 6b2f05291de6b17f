package service

import (
	"testing"
	"time"

	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/coupon"
	"github.com/servabill/servabill/internal/domain/servicechange"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/samber/lo"
	"github.com/servabill/servabill/internal/testutil"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LifecycleServiceSuite struct {
	serviceSuite
}

func TestLifecycleService(t *testing.T) {
	suite.Run(t, new(LifecycleServiceSuite))
}

func (s *LifecycleServiceSuite) TestCreateService() {
	s.seedPackage()

	service, err := s.lifecycle.CreateService(s.GetContext(), CreateServiceRequest{
		ClientID:  "client_1",
		PricingID: "price_basic",
		Quantity:  1,
		ModuleData: map[string]string{
			"hostname": "web01",
		},
	})
	s.Require().NoError(err)

	s.Equal(types.ServiceStatusPending, service.ServiceStatus)
	s.Equal("pkg_vps", service.PackageID)
	s.WithinDuration(time.Now().UTC().AddDate(0, 0, 30), service.DateRenews, time.Minute)

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal("web01", stored.ModuleData["hostname"])
}

func (s *LifecycleServiceSuite) TestCreateServiceWithCoupon() {
	s.seedPackage()
	s.Require().NoError(s.GetStores().Coupon.Create(s.GetContext(), &coupon.Coupon{
		ID:            "cpn_welcome",
		Code:          "WELCOME",
		Name:          "Welcome discount",
		Type:          types.CouponTypePercentage,
		PercentageOff: lo.ToPtr(decimal.NewFromInt(50)),
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))

	service, err := s.lifecycle.CreateService(s.GetContext(), CreateServiceRequest{
		ClientID:   "client_1",
		PricingID:  "price_basic",
		Quantity:   1,
		CouponCode: "WELCOME",
	})
	s.Require().NoError(err)
	s.Require().NotNil(service.CouponID)
	s.Equal("cpn_welcome", *service.CouponID)

	cpn, err := s.GetStores().Coupon.Get(s.GetContext(), "cpn_welcome")
	s.Require().NoError(err)
	s.Equal(1, cpn.TotalRedemptions)
}

func (s *LifecycleServiceSuite) TestCreateServiceWithExpiredCoupon() {
	s.seedPackage()
	past := time.Now().UTC().AddDate(0, 0, -1)
	s.Require().NoError(s.GetStores().Coupon.Create(s.GetContext(), &coupon.Coupon{
		ID:            "cpn_old",
		Code:          "OLD",
		Type:          types.CouponTypePercentage,
		PercentageOff: lo.ToPtr(decimal.NewFromInt(10)),
		RedeemBefore:  &past,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))

	_, err := s.lifecycle.CreateService(s.GetContext(), CreateServiceRequest{
		ClientID:   "client_1",
		PricingID:  "price_basic",
		Quantity:   1,
		CouponCode: "OLD",
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *LifecycleServiceSuite) TestActivateEstablishesRenewalDate() {
	s.seedPackage()
	service, err := s.lifecycle.CreateService(s.GetContext(), CreateServiceRequest{
		ClientID:  "client_1",
		PricingID: "price_basic",
		Quantity:  1,
	})
	s.Require().NoError(err)

	activated, err := s.lifecycle.ActivateService(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusActive, activated.ServiceStatus)
	s.WithinDuration(time.Now().UTC().AddDate(0, 0, 30), activated.DateRenews, time.Minute)
}

func (s *LifecycleServiceSuite) TestActivatePinsToProrationDay() {
	day := 1
	pkg := &catalog.Package{
		ID:           "pkg_monthly",
		Name:         "Monthly Plan",
		ModuleID:     "vps",
		ProrationDay: &day,
		Pricings: []*catalog.PackagePricing{
			{
				ID:         "price_monthly",
				PackageID:  "pkg_monthly",
				Term:       1,
				PeriodUnit: types.PeriodUnitMonth,
				Price:      decimal.NewFromInt(15),
				Currency:   "usd",
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().Catalog.CreatePackage(s.GetContext(), pkg))

	service, err := s.lifecycle.CreateService(s.GetContext(), CreateServiceRequest{
		ClientID:  "client_1",
		PricingID: "price_monthly",
		Quantity:  1,
	})
	s.Require().NoError(err)

	activated, err := s.lifecycle.ActivateService(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal(1, activated.DateRenews.Day())
}

func (s *LifecycleServiceSuite) TestActivateSyncedAddOnInheritsParentDate() {
	s.seedPackage()
	parent := s.seedActiveService("price_basic")

	child, err := s.lifecycle.CreateService(s.GetContext(), CreateServiceRequest{
		ClientID:        "client_1",
		PricingID:       "price_basic",
		Quantity:        1,
		ParentServiceID: &parent.ID,
		RenewsSynced:    true,
	})
	s.Require().NoError(err)

	activated, err := s.lifecycle.ActivateService(s.GetContext(), child.ID)
	s.Require().NoError(err)
	s.True(activated.DateRenews.Equal(parent.DateRenews))
}

func (s *LifecycleServiceSuite) TestSuspendAndUnsuspend() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")
	renews := service.DateRenews

	s.Require().NoError(s.lifecycle.SuspendService(s.GetContext(), service.ID, "nonpayment"))
	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusSuspended, stored.ServiceStatus)
	s.NotNil(stored.DateSuspended)

	s.Require().NoError(s.lifecycle.UnsuspendService(s.GetContext(), service.ID))
	stored, err = s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusActive, stored.ServiceStatus)
	s.Nil(stored.DateSuspended)

	// Suspension never moves the renewal date
	s.True(stored.DateRenews.Equal(renews))
}

func (s *LifecycleServiceSuite) TestUnsuspendActiveRejected() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	err := s.lifecycle.UnsuspendService(s.GetContext(), service.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *LifecycleServiceSuite) TestImmediateCancelDiscardsPendingChange() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_pro",
		Quantity:  1,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.lifecycle.CancelService(s.GetContext(), service.ID, types.CancellationTypeImmediate, nil))

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusCanceled, stored.ServiceStatus)
	s.NotNil(stored.DateCanceled)

	change, err := s.GetStores().ServiceChange.Get(s.GetContext(), result.Change.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceChangeStatusCanceled, change.ChangeStatus)

	inv, err := s.GetStores().Invoice.Get(s.GetContext(), result.Invoice.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, inv.InvoiceStatus)
}

func (s *LifecycleServiceSuite) TestImmediateCancelUnappliesPartialPayment() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	result, err := s.changes.RequestChange(s.GetContext(), service.ID, servicechange.TargetFields{
		PricingID: "price_pro",
		Quantity:  1,
	})
	s.Require().NoError(err)

	partial := result.Delta.Total.Div(decimal.NewFromInt(2)).Round(2)
	txn, err := s.billing.IssueCredit(s.GetContext(), service.ClientID, partial, "usd")
	s.Require().NoError(err)
	_, err = s.billing.ApplyTransaction(s.GetContext(), txn.ID, result.Invoice.ID, partial)
	s.Require().NoError(err)

	s.Require().NoError(s.lifecycle.CancelService(s.GetContext(), service.ID, types.CancellationTypeImmediate, nil))

	entries, err := s.GetStores().Transaction.GetAppliedByInvoice(s.GetContext(), result.Invoice.ID)
	s.Require().NoError(err)
	s.Empty(entries)

	inv, err := s.GetStores().Invoice.Get(s.GetContext(), result.Invoice.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, inv.InvoiceStatus)

	txnEntries, err := s.GetStores().Transaction.GetAppliedByTransaction(s.GetContext(), txn.ID)
	s.Require().NoError(err)
	s.Empty(txnEntries)

	stored, err := s.GetStores().Transaction.Get(s.GetContext(), txn.ID)
	s.Require().NoError(err)
	s.True(stored.UnappliedAmount(txnEntries).Equal(stored.Amount))
}

func (s *LifecycleServiceSuite) TestEndOfTermCancelSchedules() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	s.Require().NoError(s.lifecycle.CancelService(s.GetContext(), service.ID, types.CancellationTypeEndOfTerm, nil))

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Equal(types.ServiceStatusActive, stored.ServiceStatus)
	s.Require().NotNil(stored.DateCanceled)
	s.True(stored.DateCanceled.Equal(stored.DateRenews))
	s.True(stored.HasScheduledCancellation())

	s.Require().NoError(s.lifecycle.UnscheduleCancellation(s.GetContext(), service.ID))
	stored, err = s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Nil(stored.DateCanceled)
	s.Nil(stored.CancellationType)
}

func (s *LifecycleServiceSuite) TestSpecificDateCancelRequiresFuture() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")

	past := time.Now().UTC().AddDate(0, 0, -1)
	err := s.lifecycle.CancelService(s.GetContext(), service.ID, types.CancellationTypeSpecificDate, &past)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	future := time.Now().UTC().AddDate(0, 0, 7)
	s.Require().NoError(s.lifecycle.CancelService(s.GetContext(), service.ID, types.CancellationTypeSpecificDate, &future))

	stored, err := s.GetStores().Service.Get(s.GetContext(), service.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.DateCanceled)
	s.True(stored.DateCanceled.Equal(future))
}

func (s *LifecycleServiceSuite) TestCancelCanceledRejected() {
	s.seedPackage()
	service := s.seedActiveService("price_basic")
	s.Require().NoError(s.lifecycle.CancelService(s.GetContext(), service.ID, types.CancellationTypeImmediate, nil))

	err := s.lifecycle.CancelService(s.GetContext(), service.ID, types.CancellationTypeImmediate, nil)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *LifecycleServiceSuite) TestChangeRenewalDateResyncsChildren() {
	s.seedPackage()
	parent := s.seedActiveService("price_basic")

	synced := s.seedActiveService("price_basic")
	synced.ParentServiceID = &parent.ID
	synced.RenewsSynced = true
	s.Require().NoError(s.GetStores().Service.Update(s.GetContext(), synced))

	detached := s.seedActiveService("price_basic")
	detached.ParentServiceID = &parent.ID
	s.Require().NoError(s.GetStores().Service.Update(s.GetContext(), detached))
	detachedRenews := detached.DateRenews

	target := time.Now().UTC().AddDate(0, 0, 45)
	s.Require().NoError(s.lifecycle.ChangeRenewalDate(s.GetContext(), parent.ID, target))

	stored, err := s.GetStores().Service.Get(s.GetContext(), synced.ID)
	s.Require().NoError(err)
	s.True(stored.DateRenews.Equal(target))

	stored, err = s.GetStores().Service.Get(s.GetContext(), detached.ID)
	s.Require().NoError(err)
	s.True(stored.DateRenews.Equal(detachedRenews))
}

func (s *LifecycleServiceSuite) TestGetAddFieldsScopedByActor() {
	s.seedPackage()

	staffFields, err := s.lifecycle.GetAddFields(s.GetContext(), "pkg_vps", nil)
	s.Require().NoError(err)
	s.Len(staffFields, 2)

	clientFields, err := s.lifecycle.GetAddFields(testutil.SetupClientContext(), "pkg_vps", nil)
	s.Require().NoError(err)
	s.Len(clientFields, 1)
	s.Equal("hostname", clientFields[0].Key)
}
