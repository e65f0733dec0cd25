package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/eduhub/edupay/internal/errs"
	repo "github.com/eduhub/edupay/internal/repository"
	"github.com/eduhub/edupay/internal/services"
)

// Reconciler sweeps transactions stuck in pending and asks the gateway for
// their real state. Callbacks get lost; this is the backstop.
type Reconciler struct {
	txns     repo.Transactions
	payments *services.PaymentService
	pool     *Pool
	interval time.Duration
	after    time.Duration
	log      *slog.Logger
}

func NewReconciler(txns repo.Transactions, payments *services.PaymentService, pool *Pool, interval, after time.Duration, log *slog.Logger) *Reconciler {
	return &Reconciler{
		txns:     txns,
		payments: payments,
		pool:     pool,
		interval: interval,
		after:    after,
		log:      log,
	}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.after)
	pending, err := r.txns.ListPendingBefore(ctx, cutoff, 100)
	if err != nil {
		r.log.Error("reconcile: list pending", "error", err)
		return
	}
	for _, tx := range pending {
		id := tx.ID
		r.pool.Submit(func() {
			_, err := r.payments.VerifyByID(ctx, id)
			switch {
			case err == nil:
			case errs.Is(err, errs.KindVerificationFailed):
				// Settled as failed, which is still settled.
			default:
				r.log.Warn("reconcile: verify", "transaction_id", id, "error", err)
			}
		})
	}
}
