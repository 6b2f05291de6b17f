package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/servabill/servabill/internal/domain/gateway"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/shopspring/decimal"
)

// GatewayCall records one operation performed against a fake gateway
type GatewayCall struct {
	Op        string
	Reference string
	Amount    decimal.Decimal
}

// FakeGateway is an auth-capable gateway fake recording every call.
// Set FailNext to make the next operation return a processing failure.
type FakeGateway struct {
	GatewayName string
	FailNext    bool

	mu    sync.Mutex
	seq   int
	Calls []GatewayCall
}

func NewFakeGateway(name string) *FakeGateway {
	return &FakeGateway{GatewayName: name}
}

func (g *FakeGateway) Name() string { return g.GatewayName }

func (g *FakeGateway) record(op, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailNext {
		g.FailNext = false
		return nil, ierr.NewErrorf("%s declined by gateway", op).
			WithHint("The payment gateway rejected the operation").
			Mark(ierr.ErrGatewayProcessing)
	}

	if reference == "" {
		g.seq++
		reference = fmt.Sprintf("%s-ref-%d", g.GatewayName, g.seq)
	}
	g.Calls = append(g.Calls, GatewayCall{Op: op, Reference: reference, Amount: amount})
	return &gateway.Result{Reference: reference}, nil
}

func (g *FakeGateway) Process(ctx context.Context, req gateway.ChargeRequest) (*gateway.Result, error) {
	return g.record("process", "", req.Amount)
}

func (g *FakeGateway) Void(ctx context.Context, reference string) (*gateway.Result, error) {
	return g.record("void", reference, decimal.Zero)
}

func (g *FakeGateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	return g.record("refund", reference, amount)
}

func (g *FakeGateway) Authorize(ctx context.Context, req gateway.ChargeRequest) (*gateway.Result, error) {
	return g.record("authorize", "", req.Amount)
}

func (g *FakeGateway) Capture(ctx context.Context, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	return g.record("capture", reference, amount)
}

// CallsFor returns the recorded calls matching an operation
func (g *FakeGateway) CallsFor(op string) []GatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	var calls []GatewayCall
	for _, call := range g.Calls {
		if call.Op == op {
			calls = append(calls, call)
		}
	}
	return calls
}

// BasicGateway is a single-step gateway fake without authorize/capture
// support, for exercising capability fallbacks
type BasicGateway struct {
	*FakeGateway
}

func NewBasicGateway(name string) *BasicGateway {
	return &BasicGateway{FakeGateway: NewFakeGateway(name)}
}

// Hide the two-phase methods so the fake fails the AuthCapable assertion
func (g *BasicGateway) Authorize() {}
func (g *BasicGateway) Capture()  {}
