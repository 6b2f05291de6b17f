package testutil

import (
	"context"

	"github.com/servabill/servabill/internal/types"
)

const (
	testCompanyID = "company_test"
	testStaffID   = "staff_test"
	testClientID  = "client_test"
)

// SetupContext builds a staff-scoped context for tests
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetCompanyID(ctx, testCompanyID)
	ctx = types.SetStaffID(ctx, testStaffID)
	return ctx
}

// SetupClientContext builds a client-scoped context for tests, where the
// staff-only option rules apply
func SetupClientContext() context.Context {
	ctx := context.Background()
	ctx = types.SetCompanyID(ctx, testCompanyID)
	ctx = types.SetClientID(ctx, testClientID)
	return ctx
}
