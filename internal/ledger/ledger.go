// Package ledger owns the transaction state machine. All status mutation in
// the process funnels through ApplyOutcome; nothing else writes status.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/gateway"
	"github.com/eduhub/edupay/internal/metrics"
	"github.com/eduhub/edupay/internal/models"
	repo "github.com/eduhub/edupay/internal/repository"
)

// CartClearer clears a user's cart after a successful payment. Clearing an
// empty cart is a no-op.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Publisher fans a terminal transaction out to interested consumers
// (enrollment, notifications). Best-effort.
type Publisher interface {
	PublishOutcome(ctx context.Context, tx models.Transaction) error
}

type Ledger struct {
	txns   repo.Transactions
	carts  CartClearer
	events Publisher
	audit  repo.AuditLogs
	log    *slog.Logger
}

func New(txns repo.Transactions, carts CartClearer, events Publisher, audit repo.AuditLogs, log *slog.Logger) *Ledger {
	return &Ledger{txns: txns, carts: carts, events: events, audit: audit, log: log}
}

// Resolve finds a transaction by our id first, then by the provider's.
func (l *Ledger) Resolve(ctx context.Context, reference string) (models.Transaction, error) {
	tx, err := l.txns.GetByID(ctx, reference)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, err
	}
	tx, err = l.txns.GetByProviderOrderID(ctx, reference)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, errs.Newf(errs.KindNotFound, "no transaction matches reference %q", reference)
	}
	return tx, err
}

// ApplyOutcome applies a canonical outcome at most once. A transaction that
// is already terminal is returned unchanged, whatever the new outcome says;
// side effects fire only for the caller whose conditional update won.
func (l *Ledger) ApplyOutcome(ctx context.Context, reference string, outcome gateway.Outcome) (models.Transaction, error) {
	tx, err := l.Resolve(ctx, reference)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Status.Terminal() {
		return tx, nil
	}

	status := models.TxnFailed
	if outcome.Succeeded {
		status = models.TxnSuccess
	}

	updated, transitioned, err := l.txns.ApplyOutcome(ctx, tx.ID, status, outcome.RawPayload)
	if err != nil {
		return models.Transaction{}, err
	}
	if !transitioned {
		// Lost the race; the other caller's outcome stands.
		return updated, nil
	}

	metrics.PaymentOutcomes.WithLabelValues(string(updated.Gateway), string(updated.Status)).Inc()
	l.auditTransition(ctx, updated, outcome.Message)

	if updated.Status == models.TxnSuccess {
		// Committed success is never rolled back over a side-effect failure;
		// log and leave it for the reconciliation follow-up.
		if err := l.carts.Clear(ctx, updated.UserID); err != nil {
			l.log.Error("cart clear after successful payment", "transaction_id", updated.ID, "user_id", updated.UserID, "err", err)
		}
	}
	if l.events != nil {
		if err := l.events.PublishOutcome(ctx, updated); err != nil {
			l.log.Error("publish payment outcome", "transaction_id", updated.ID, "err", err)
		}
	}
	return updated, nil
}

func (l *Ledger) auditTransition(ctx context.Context, tx models.Transaction, message string) {
	if l.audit == nil {
		return
	}
	id := tx.ID
	err := l.audit.Create(ctx, models.AuditLog{
		EntityType: "transaction",
		EntityID:   &id,
		Action:     "status_change",
		Details: map[string]any{
			"status":  string(tx.Status),
			"gateway": string(tx.Gateway),
			"message": message,
		},
	})
	if err != nil {
		l.log.Error("audit log write", "transaction_id", tx.ID, "err", err)
	}
}
