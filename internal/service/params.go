package service

import (
	"github.com/servabill/servabill/internal/config"
	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/coupon"
	"github.com/servabill/servabill/internal/domain/gateway"
	"github.com/servabill/servabill/internal/domain/invoice"
	"github.com/servabill/servabill/internal/domain/payment"
	"github.com/servabill/servabill/internal/domain/pricing"
	"github.com/servabill/servabill/internal/domain/provisioning"
	svc "github.com/servabill/servabill/internal/domain/service"
	"github.com/servabill/servabill/internal/domain/servicechange"
	"github.com/servabill/servabill/internal/domain/tax"
	"github.com/servabill/servabill/internal/domain/transaction"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
)

// ServiceParams bundles the dependencies every service constructor takes.
// Keeps constructor signatures stable as the dependency set grows.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	CatalogRepo     catalog.Repository
	ServiceRepo     svc.Repository
	ChangeRepo      servicechange.Repository
	InvoiceRepo     invoice.Repository
	TransactionRepo transaction.Repository
	CouponRepo      coupon.Repository
	TaxRepo         tax.Repository
	PaymentRepo     payment.Repository

	TaxProvider tax.Provider
	Gateways    gateway.Registry
	Modules     provisioning.Registry
	Calculator  pricing.Calculator
}
