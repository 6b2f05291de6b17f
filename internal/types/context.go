package types

import (
	"context"
	"fmt"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxCompanyID     ContextKey = "ctx_company_id"
	CtxStaffID       ContextKey = "ctx_staff_id"
	CtxClientID      ContextKey = "ctx_client_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"

	// Default values
	DefaultCompanyID = "00000000-0000-0000-0000-000000000000"
	DefaultStaffID   = "00000000-0000-0000-0000-000000000000"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetCompanyID(ctx context.Context) string {
	if companyID, ok := ctx.Value(CtxCompanyID).(string); ok {
		return companyID
	}
	return ""
}

// GetStaffID returns the acting staff identity, empty for client-initiated
// requests
func GetStaffID(ctx context.Context) string {
	if staffID, ok := ctx.Value(CtxStaffID).(string); ok {
		return staffID
	}
	return ""
}

func GetClientID(ctx context.Context) string {
	if clientID, ok := ctx.Value(CtxClientID).(string); ok {
		return clientID
	}
	return ""
}

// GetActorID returns the identity to record as the trigger of a mutation:
// the staff member when present, otherwise the client
func GetActorID(ctx context.Context) string {
	if staffID := GetStaffID(ctx); staffID != "" {
		return staffID
	}
	return GetClientID(ctx)
}

// IsStaffContext reports whether the request is acting with staff privileges.
// Option addable/editable restrictions only apply to non-staff actors.
func IsStaffContext(ctx context.Context) bool {
	return GetStaffID(ctx) != ""
}

// SetCompanyID sets the company ID in the context
func SetCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, CtxCompanyID, companyID)
}

// SetStaffID sets the staff ID in the context
func SetStaffID(ctx context.Context, staffID string) context.Context {
	return context.WithValue(ctx, CtxStaffID, staffID)
}

// SetClientID sets the client ID in the context
func SetClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, CtxClientID, clientID)
}

// ValidateCompanyContext validates that the required company context is present
func ValidateCompanyContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is nil")
	}

	if GetCompanyID(ctx) == "" {
		return fmt.Errorf("no company context found in context")
	}

	return nil
}
