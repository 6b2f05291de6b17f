package service

import (
	"time"

	"github.com/servabill/servabill/internal/config"
	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/gateway"
	"github.com/servabill/servabill/internal/domain/pricing"
	"github.com/servabill/servabill/internal/domain/provisioning"
	svc "github.com/servabill/servabill/internal/domain/service"
	"github.com/servabill/servabill/internal/testutil"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
)

// serviceSuite wires the service layer against the in-memory stores. A 30
// day billing term keeps proration math independent of calendar month
// lengths across test runs.
type serviceSuite struct {
	testutil.BaseServiceTestSuite

	params    ServiceParams
	gateway   *testutil.FakeGateway
	basic     *testutil.BasicGateway
	billing   BillingService
	changes   ChangeService
	lifecycle LifecycleService
	payments  PaymentService
	worker    *Worker
}

func (s *serviceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()

	s.gateway = testutil.NewFakeGateway("fakepay")
	s.basic = testutil.NewBasicGateway("basicpay")

	s.params = ServiceParams{
		Logger: s.GetLogger(),
		Config: config.GetDefaultConfig(),
		DB:     s.GetDB(),

		CatalogRepo:     stores.Catalog,
		ServiceRepo:     stores.Service,
		ChangeRepo:      stores.ServiceChange,
		InvoiceRepo:     stores.Invoice,
		TransactionRepo: stores.Transaction,
		CouponRepo:      stores.Coupon,
		TaxRepo:         stores.Tax,
		PaymentRepo:     stores.Payment,

		TaxProvider: stores.Tax,
		Gateways:    gateway.NewRegistry(s.gateway, s.basic),
		Modules:     provisioning.NewRegistry(testutil.NewFakeModule("vps")),
		Calculator:  pricing.NewCalculator(types.ProrationStrategyDayBased),
	}

	s.billing = NewBillingService(s.params)
	s.changes = NewChangeService(s.params, s.billing)
	s.lifecycle = NewLifecycleService(s.params, s.changes)
	s.payments = NewPaymentService(s.params, s.billing, s.changes)
	s.worker = NewWorker(s.params, s.billing, s.changes)
}

// seedPackage registers the package most tests sell from: basic and pro
// terms on a 30 day cycle, a one-time term, a eur term, a client-editable
// OS option and a staff-only bounded memory option.
func (s *serviceSuite) seedPackage() *catalog.Package {
	renews := decimal.NewFromInt(8)
	ramMin, ramMax := 1, 8

	pkg := &catalog.Package{
		ID:       "pkg_vps",
		Name:     "Cloud VPS",
		ModuleID: "vps",
		Pricings: []*catalog.PackagePricing{
			{
				ID:          "price_basic",
				PackageID:   "pkg_vps",
				Term:        30,
				PeriodUnit:  types.PeriodUnitDay,
				Price:       decimal.NewFromInt(10),
				PriceRenews: &renews,
				SetupFee:    decimal.NewFromInt(5),
				Currency:    "usd",
			},
			{
				ID:         "price_pro",
				PackageID:  "pkg_vps",
				Term:       30,
				PeriodUnit: types.PeriodUnitDay,
				Price:      decimal.NewFromInt(20),
				Currency:   "usd",
			},
			{
				ID:         "price_once",
				PackageID:  "pkg_vps",
				PeriodUnit: types.PeriodUnitOneTime,
				Price:      decimal.NewFromInt(50),
				Currency:   "usd",
			},
			{
				ID:         "price_eur",
				PackageID:  "pkg_vps",
				Term:       30,
				PeriodUnit: types.PeriodUnitDay,
				Price:      decimal.NewFromInt(18),
				Currency:   "eur",
			},
		},
		Options: []*catalog.PackageOption{
			{
				ID:        "opt_os",
				PackageID: "pkg_vps",
				Label:     "Operating system",
				Name:      "os",
				Type:      types.OptionValueTypeSelect,
				Addable:   true,
				Editable:  true,
				Values: []*catalog.PackageOptionValue{
					{
						ID:       "val_linux",
						OptionID: "opt_os",
						Name:     "Linux",
						Value:    "linux",
						Pricings: []*catalog.OptionValuePricing{
							{ID: "ovp_linux", OptionValueID: "val_linux", Term: 30, PeriodUnit: types.PeriodUnitDay, Price: decimal.Zero, Currency: "usd"},
						},
					},
					{
						ID:       "val_windows",
						OptionID: "opt_os",
						Name:     "Windows",
						Value:    "windows",
						Pricings: []*catalog.OptionValuePricing{
							{ID: "ovp_windows", OptionValueID: "val_windows", Term: 30, PeriodUnit: types.PeriodUnitDay, Price: decimal.NewFromInt(4), Currency: "usd"},
						},
					},
				},
			},
			{
				ID:        "opt_ram",
				PackageID: "pkg_vps",
				Label:     "Memory",
				Name:      "ram",
				Type:      types.OptionValueTypeQuantity,
				Addable:   false,
				Editable:  false,
				Values: []*catalog.PackageOptionValue{
					{
						ID:       "val_ram_gb",
						OptionID: "opt_ram",
						Name:     "GB",
						Value:    "gb",
						Min:      &ramMin,
						Max:      &ramMax,
						Pricings: []*catalog.OptionValuePricing{
							{ID: "ovp_ram", OptionValueID: "val_ram_gb", Term: 30, PeriodUnit: types.PeriodUnitDay, Price: decimal.NewFromInt(2), Currency: "usd"},
						},
					},
				},
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}

	s.Require().NoError(s.GetStores().Catalog.CreatePackage(s.GetContext(), pkg))
	return pkg
}

// seedActiveService stores an active service halfway through its 30 day
// term, so day-based proration yields a coefficient of one half
func (s *serviceSuite) seedActiveService(pricingID string) *svc.Service {
	service := &svc.Service{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
		ClientID:      "client_1",
		PricingID:     pricingID,
		PackageID:     "pkg_vps",
		Quantity:      1,
		ServiceStatus: types.ServiceStatusActive,
		DateRenews:    time.Now().UTC().AddDate(0, 0, 15),
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().Service.Create(s.GetContext(), service))
	return service
}

// prorated applies the delta's own coefficient to an amount the way the
// calculator does, keeping expectations immune to midnight boundaries
func prorated(amount int64, coefficient decimal.Decimal, currency string) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(coefficient).Round(types.GetCurrencyPrecision(currency))
}
