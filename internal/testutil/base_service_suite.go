package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/postgres"
	"github.com/stretchr/testify/suite"
)

// Stores bundles the in-memory repository fakes a service test runs against
type Stores struct {
	Catalog       *InMemoryCatalogStore
	Service       *InMemoryServiceStore
	ServiceChange *InMemoryServiceChangeStore
	Invoice       *InMemoryInvoiceStore
	Transaction   *InMemoryTransactionStore
	Coupon        *InMemoryCouponStore
	Tax           *InMemoryTaxStore
	Payment       *InMemoryPaymentStore
}

// BaseServiceTestSuite provides common setup for service layer tests
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores *Stores
	logger *logger.Logger
	db     postgres.IClient
}

// SetupTest prepares fresh stores and context before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.logger = logger.NewNopLogger()
	s.db = NewMockPostgresClient()
	s.stores = &Stores{
		Catalog:       NewInMemoryCatalogStore(),
		Service:       NewInMemoryServiceStore(),
		ServiceChange: NewInMemoryServiceChangeStore(),
		Invoice:       NewInMemoryInvoiceStore(),
		Transaction:   NewInMemoryTransactionStore(),
		Coupon:        NewInMemoryCouponStore(),
		Tax:           NewInMemoryTaxStore(),
		Payment:       NewInMemoryPaymentStore(),
	}
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// SetContext overrides the test context, e.g. with a client scope
func (s *BaseServiceTestSuite) SetContext(ctx context.Context) {
	s.ctx = ctx
}

// GetStores returns the in-memory stores
func (s *BaseServiceTestSuite) GetStores() *Stores {
	return s.stores
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetDB returns the mock database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}
