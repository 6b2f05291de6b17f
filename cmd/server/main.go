package main

import (
	"context"
	"time"

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
	"github.com/servabill/servabill/internal/gateway/stripe"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/servabill/servabill/internal/repository"
	"github.com/servabill/servabill/internal/service"
	"go.uber.org/fx"
)

func init() {
	// Billing math assumes UTC everywhere
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
		),
		postgres.Module(),
		repository.Module(),
		fx.Provide(
			newGatewayRegistry,
			newModuleRegistry,
			newCalculator,
			newServiceParams,
			service.NewBillingService,
			service.NewChangeService,
			service.NewLifecycleService,
			service.NewPaymentService,
			service.NewWorker,
		),
		fx.Invoke(startWorker),
	)
	app.Run()
}

func newGatewayRegistry(cfg *config.Configuration, log *logger.Logger) gateway.Registry {
	var gateways []gateway.Gateway
	if cfg.Stripe.APIKey != "" {
		gateways = append(gateways, stripe.New(cfg.Stripe, log))
	}
	return gateway.NewRegistry(gateways...)
}

func newModuleRegistry() provisioning.Registry {
	// Provisioning backends register here as they are built
	return provisioning.NewRegistry()
}

func newCalculator(cfg *config.Configuration) pricing.Calculator {
	return pricing.NewCalculator(cfg.Billing.ProrationStrategy)
}

type serviceParamsIn struct {
	fx.In

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

func newServiceParams(in serviceParamsIn) service.ServiceParams {
	return service.ServiceParams{
		Logger:          in.Logger,
		Config:          in.Config,
		DB:              in.DB,
		CatalogRepo:     in.CatalogRepo,
		ServiceRepo:     in.ServiceRepo,
		ChangeRepo:      in.ChangeRepo,
		InvoiceRepo:     in.InvoiceRepo,
		TransactionRepo: in.TransactionRepo,
		CouponRepo:      in.CouponRepo,
		TaxRepo:         in.TaxRepo,
		PaymentRepo:     in.PaymentRepo,
		TaxProvider:     in.TaxProvider,
		Gateways:        in.Gateways,
		Modules:         in.Modules,
		Calculator:      in.Calculator,
	}
}

func startWorker(lc fx.Lifecycle, worker *service.Worker, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting billing worker")
			worker.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping billing worker")
			worker.Stop()
			return nil
		},
	})
}
