package service

import (
	"context"
	"time"

	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/servabill/servabill/internal/types"
)

// Worker is the billing background loop. It effects scheduled
// cancellations once their date arrives and cuts renewal invoices ahead
// of each service's renewal date.
type Worker struct {
	ServiceParams
	billing  BillingService
	changes  ChangeService
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	started  bool
}

// NewWorker creates a new billing worker
func NewWorker(params ServiceParams, billing BillingService, changes ChangeService) *Worker {
	return &Worker{
		ServiceParams: params,
		billing:       billing,
		changes:       changes,
		interval:      time.Minute,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start runs the worker loop until Stop is called
func (w *Worker) Start(ctx context.Context) {
	w.started = true
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// Stop terminates the loop and waits for the current pass to finish.
// Safe to call when the loop was never started.
func (w *Worker) Stop() {
	close(w.stop)
	if !w.started {
		return
	}
	<-w.done
}

// RunOnce executes a single worker pass. Failures on one service are
// logged and do not block the rest of the batch.
func (w *Worker) RunOnce(ctx context.Context) {
	w.processScheduledCancellations(ctx)
	w.processRenewals(ctx)
}

func (w *Worker) processScheduledCancellations(ctx context.Context) {
	due, err := w.ServiceRepo.ListScheduledCancellationsDue(ctx)
	if err != nil {
		w.Logger.Errorw("failed to list due cancellations", "error", err)
		return
	}

	for _, service := range due {
		err := w.DB.WithTx(ctx, func(ctx context.Context) error {
			if err := w.changes.CancelPendingForService(ctx, service.ID); err != nil {
				return err
			}
			service.ServiceStatus = types.ServiceStatusCanceled
			return w.ServiceRepo.Update(ctx, service)
		})
		if err != nil {
			w.Logger.Errorw("failed to effect scheduled cancellation",
				"service_id", service.ID,
				"error", err,
			)
			continue
		}
		w.Logger.Infow("effected scheduled cancellation", "service_id", service.ID)
	}
}

func (w *Worker) processRenewals(ctx context.Context) {
	horizon := time.Now().UTC().AddDate(0, 0, w.Config.Billing.InvoiceDaysBeforeRenewal)
	due, err := w.ServiceRepo.ListRenewalsDue(ctx, horizon)
	if err != nil {
		w.Logger.Errorw("failed to list due renewals", "error", err)
		return
	}

	for _, service := range due {
		invoiced, err := w.hasOpenRenewalInvoice(ctx, service.ID)
		if err != nil {
			w.Logger.Errorw("failed to check renewal invoices",
				"service_id", service.ID,
				"error", err,
			)
			continue
		}
		if invoiced {
			continue
		}

		inv, err := w.billing.CreateRenewalInvoice(ctx, service.ID)
		if err != nil {
			// One-time terms slip through the repository filter only when
			// mispriced; skip rather than retry forever
			if ierr.IsInvalidOperation(err) {
				continue
			}
			w.Logger.Errorw("failed to create renewal invoice",
				"service_id", service.ID,
				"error", err,
			)
			continue
		}
		w.Logger.Infow("created renewal invoice",
			"service_id", service.ID,
			"invoice_id", inv.ID,
		)
	}
}

func (w *Worker) hasOpenRenewalInvoice(ctx context.Context, serviceID string) (bool, error) {
	invoices, err := w.InvoiceRepo.ListByService(ctx, serviceID)
	if err != nil {
		return false, err
	}
	for _, inv := range invoices {
		if inv.InvoiceStatus.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}
