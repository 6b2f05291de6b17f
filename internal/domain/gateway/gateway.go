package gateway

import (
	"context"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/shopspring/decimal"
)

// ChargeRequest describes a payment operation against a gateway
type ChargeRequest struct {
	ClientID string
	Amount   decimal.Decimal
	Currency string
	// AccountRef identifies the stored payment account at the gateway
	AccountRef string
}

// Result is the transaction descriptor a gateway returns on success
type Result struct {
	// Reference is the gateway-side transaction identifier
	Reference string
	// Raw carries gateway-specific response data for diagnostics
	Raw map[string]string
}

// Gateway is the pluggable payment processor interface. Every method is
// synchronous and blocking; there is no automatic retry. Failures are
// returned as structured errors: capability gaps marked
// ErrUnsupportedOperation, everything else ErrGatewayProcessing.
type Gateway interface {
	// Name returns the gateway's registered name
	Name() string

	// Process authorizes and captures in a single step
	Process(ctx context.Context, req ChargeRequest) (*Result, error)

	// Void cancels a previously authorized or processed transaction
	Void(ctx context.Context, reference string) (*Result, error)

	// Refund returns funds for a captured transaction
	Refund(ctx context.Context, reference string, amount decimal.Decimal) (*Result, error)
}

// AuthCapable marks gateways that support the two-phase authorize/capture
// protocol. Callers must check for this capability before staging a payment.
type AuthCapable interface {
	Gateway

	// Authorize reserves funds without capturing them
	Authorize(ctx context.Context, req ChargeRequest) (*Result, error)

	// Capture finalizes a prior authorization, possibly for a lesser amount
	Capture(ctx context.Context, reference string, amount decimal.Decimal) (*Result, error)
}

// AsAuthCapable returns the gateway's two-phase interface, or an unsupported
// operation error distinct from a processing failure
func AsAuthCapable(g Gateway) (AuthCapable, error) {
	if ac, ok := g.(AuthCapable); ok {
		return ac, nil
	}
	return nil, ierr.NewErrorf("gateway %s does not support authorize/capture", g.Name()).
		WithHint("The selected payment gateway cannot stage payments").
		WithReportableDetails(map[string]any{"gateway": g.Name()}).
		Mark(ierr.ErrUnsupportedOperation)
}

// Registry resolves gateways by name
type Registry interface {
	// Resolve returns the named gateway, ErrNotFound when unregistered
	Resolve(name string) (Gateway, error)
}

type registry struct {
	gateways map[string]Gateway
}

// NewRegistry builds a registry from the given gateways
func NewRegistry(gateways ...Gateway) Registry {
	m := make(map[string]Gateway, len(gateways))
	for _, g := range gateways {
		m[g.Name()] = g
	}
	return &registry{gateways: m}
}

func (r *registry) Resolve(name string) (Gateway, error) {
	if g, ok := r.gateways[name]; ok {
		return g, nil
	}
	return nil, ierr.NewErrorf("unknown payment gateway %s", name).
		WithHint("The gateway is not configured").
		WithReportableDetails(map[string]any{"gateway": name}).
		Mark(ierr.ErrNotFound)
}
