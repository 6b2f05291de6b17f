// Package stripe adapts the Stripe API to the payment gateway interface.
// Two-phase payments map onto manual-capture PaymentIntents.
package stripe

import (
	"context"

	"github.com/servabill/servabill/internal/config"
	"github.com/servabill/servabill/internal/domain/gateway"
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/logger"
	"github.com/servabill/servabill/internal/types"
	"github.com/shopspring/decimal"
	stripesdk "github.com/stripe/stripe-go/v82"
)

const GatewayName = "stripe"

// Gateway implements gateway.AuthCapable against the Stripe API
type Gateway struct {
	client *stripesdk.Client
	logger *logger.Logger
}

// New creates a stripe gateway from configuration
func New(cfg config.StripeConfig, log *logger.Logger) *Gateway {
	return &Gateway{
		client: stripesdk.NewClient(cfg.APIKey, nil),
		logger: log,
	}
}

func (g *Gateway) Name() string { return GatewayName }

// minorUnits converts a decimal amount to the currency's smallest unit
func minorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(types.GetCurrencyPrecision(currency)).IntPart()
}

func processingError(err error, op string) error {
	return ierr.WithError(err).
		WithHintf("Stripe %s failed", op).
		Mark(ierr.ErrGatewayProcessing)
}

func intentResult(pi *stripesdk.PaymentIntent) *gateway.Result {
	return &gateway.Result{
		Reference: pi.ID,
		Raw: map[string]string{
			"status": string(pi.Status),
		},
	}
}

func (g *Gateway) create(ctx context.Context, req gateway.ChargeRequest, manualCapture bool) (*gateway.Result, error) {
	params := &stripesdk.PaymentIntentCreateParams{
		Amount:        stripesdk.Int64(minorUnits(req.Amount, req.Currency)),
		Currency:      stripesdk.String(req.Currency),
		Customer:      stripesdk.String(req.AccountRef),
		OffSession:    stripesdk.Bool(true),
		Confirm:       stripesdk.Bool(true),
		Metadata: map[string]string{
			"client_id": req.ClientID,
		},
	}
	if manualCapture {
		params.CaptureMethod = stripesdk.String(string(stripesdk.PaymentIntentCaptureMethodManual))
	}

	pi, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, processingError(err, "payment intent creation")
	}

	g.logger.Infow("created stripe payment intent",
		"payment_intent_id", pi.ID,
		"client_id", req.ClientID,
		"manual_capture", manualCapture,
	)
	return intentResult(pi), nil
}

func (g *Gateway) Process(ctx context.Context, req gateway.ChargeRequest) (*gateway.Result, error) {
	return g.create(ctx, req, false)
}

func (g *Gateway) Authorize(ctx context.Context, req gateway.ChargeRequest) (*gateway.Result, error) {
	return g.create(ctx, req, true)
}

func (g *Gateway) Capture(ctx context.Context, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	pi, err := g.client.V1PaymentIntents.Retrieve(ctx, reference, nil)
	if err != nil {
		return nil, processingError(err, "payment intent retrieval")
	}

	captured, err := g.client.V1PaymentIntents.Capture(ctx, reference, &stripesdk.PaymentIntentCaptureParams{
		AmountToCapture: stripesdk.Int64(minorUnits(amount, string(pi.Currency))),
	})
	if err != nil {
		return nil, processingError(err, "capture")
	}
	return intentResult(captured), nil
}

func (g *Gateway) Void(ctx context.Context, reference string) (*gateway.Result, error) {
	pi, err := g.client.V1PaymentIntents.Cancel(ctx, reference, nil)
	if err != nil {
		return nil, processingError(err, "cancellation")
	}
	return intentResult(pi), nil
}

func (g *Gateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	pi, err := g.client.V1PaymentIntents.Retrieve(ctx, reference, nil)
	if err != nil {
		return nil, processingError(err, "payment intent retrieval")
	}

	ref, err := g.client.V1Refunds.Create(ctx, &stripesdk.RefundCreateParams{
		PaymentIntent: stripesdk.String(reference),
		Amount:        stripesdk.Int64(minorUnits(amount, string(pi.Currency))),
	})
	if err != nil {
		return nil, processingError(err, "refund")
	}
	return &gateway.Result{
		Reference: ref.ID,
		Raw: map[string]string{
			"status": string(ref.Status),
		},
	}, nil
}
