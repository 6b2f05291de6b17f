package repository

import (
	"github.com/servabill/servabill/internal/domain/catalog"
	"github.com/servabill/servabill/internal/domain/coupon"
	"github.com/servabill/servabill/internal/domain/invoice"
	"github.com/servabill/servabill/internal/domain/payment"
	svc "github.com/servabill/servabill/internal/domain/service"
	"github.com/servabill/servabill/internal/domain/servicechange"
	"github.com/servabill/servabill/internal/domain/tax"
	"github.com/servabill/servabill/internal/domain/transaction"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"go.uber.org/fx"
)

// Module provides fx options wiring every repository implementation
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewCatalogRepository,
			NewServiceRepository,
			NewServiceChangeRepository,
			NewInvoiceRepository,
			NewTransactionRepository,
			NewCouponRepository,
			NewTaxRepository,
			NewPaymentRepository,
			NewCompanyTaxProvider,
		),
	)
}

// NewCatalogRepository creates the postgres catalog repository
func NewCatalogRepository(client postgres.IClient, log *logger.Logger) catalog.Repository {
	return newCatalogRepository(client, log)
}

// NewServiceRepository creates the postgres service repository
func NewServiceRepository(client postgres.IClient, log *logger.Logger) svc.Repository {
	return newServiceRepository(client, log)
}

// NewServiceChangeRepository creates the postgres service change repository
func NewServiceChangeRepository(client postgres.IClient, log *logger.Logger) servicechange.Repository {
	return newServiceChangeRepository(client, log)
}

// NewInvoiceRepository creates the postgres invoice repository
func NewInvoiceRepository(client postgres.IClient, log *logger.Logger) invoice.Repository {
	return newInvoiceRepository(client, log)
}

// NewTransactionRepository creates the postgres transaction repository
func NewTransactionRepository(client postgres.IClient, log *logger.Logger) transaction.Repository {
	return newTransactionRepository(client, log)
}

// NewCouponRepository creates the postgres coupon repository
func NewCouponRepository(client postgres.IClient, log *logger.Logger) coupon.Repository {
	return newCouponRepository(client, log)
}

// NewTaxRepository creates the postgres tax rule repository
func NewTaxRepository(client postgres.IClient, log *logger.Logger) tax.Repository {
	return newTaxRepository(client, log)
}

// NewPaymentRepository creates the postgres authorization repository
func NewPaymentRepository(client postgres.IClient, log *logger.Logger) payment.Repository {
	return newPaymentRepository(client, log)
}
