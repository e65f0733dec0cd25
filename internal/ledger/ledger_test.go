package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/gateway"
	"github.com/eduhub/edupay/internal/models"
	"github.com/eduhub/edupay/internal/repository/memory"
)

type countingPublisher struct {
	calls atomic.Int64
	fail  bool
}

func (p *countingPublisher) PublishOutcome(_ context.Context, _ models.Transaction) error {
	p.calls.Add(1)
	if p.fail {
		return errors.New("broker unreachable")
	}
	return nil
}

type failingCarts struct{}

func (failingCarts) Clear(context.Context, string) error { return errors.New("cart store down") }

func newLedgerFixture() (*Ledger, *memory.Transactions, *memory.Carts, *countingPublisher, *memory.AuditLogs) {
	txns := memory.NewTransactions()
	carts := memory.NewCarts()
	events := &countingPublisher{}
	audit := memory.NewAuditLogs()
	l := New(txns, carts, events, audit, slog.Default())
	return l, txns, carts, events, audit
}

func pendingTxn(t *testing.T, txns *memory.Transactions) models.Transaction {
	t.Helper()
	tx, err := txns.Create(context.Background(), models.Transaction{
		ID:          "TXN1",
		UserID:      "user-1",
		TotalAmount: 50000,
		Currency:    "INR",
		Gateway:     models.GatewayPayU,
		Status:      models.TxnPending,
	})
	require.NoError(t, err)
	return tx
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	l, txns, _, _, _ := newLedgerFixture()
	pendingTxn(t, txns)
	require.NoError(t, txns.SetProviderOrderID(ctx, "TXN1", "PROV-9"))

	t.Run("by our id", func(t *testing.T) {
		tx, err := l.Resolve(ctx, "TXN1")
		require.NoError(t, err)
		require.Equal(t, "TXN1", tx.ID)
	})

	t.Run("by provider order id", func(t *testing.T) {
		tx, err := l.Resolve(ctx, "PROV-9")
		require.NoError(t, err)
		require.Equal(t, "TXN1", tx.ID)
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, err := l.Resolve(ctx, "nope")
		require.True(t, errs.Is(err, errs.KindNotFound))
	})
}

func TestApplyOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("success clears the cart and publishes once", func(t *testing.T) {
		l, txns, carts, events, audit := newLedgerFixture()
		pendingTxn(t, txns)
		carts.SetItems("user-1", []models.CartItem{{CourseID: "c1", Price: 50000}})

		tx, err := l.ApplyOutcome(ctx, "TXN1", gateway.Outcome{Reference: "TXN1", Succeeded: true})
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
		require.Equal(t, 1, carts.ClearCount("user-1"))
		require.EqualValues(t, 1, events.calls.Load())
		require.Len(t, audit.Entries, 1)
	})

	t.Run("failure does not touch the cart", func(t *testing.T) {
		l, txns, carts, events, _ := newLedgerFixture()
		pendingTxn(t, txns)

		tx, err := l.ApplyOutcome(ctx, "TXN1", gateway.Outcome{Succeeded: false, Message: "declined"})
		require.NoError(t, err)
		require.Equal(t, models.TxnFailed, tx.Status)
		require.Equal(t, 0, carts.ClearCount("user-1"))
		require.EqualValues(t, 1, events.calls.Load())
	})

	t.Run("terminal state is immutable", func(t *testing.T) {
		l, txns, _, events, _ := newLedgerFixture()
		pendingTxn(t, txns)

		_, err := l.ApplyOutcome(ctx, "TXN1", gateway.Outcome{Succeeded: true})
		require.NoError(t, err)

		// A contradictory late callback changes nothing.
		tx, err := l.ApplyOutcome(ctx, "TXN1", gateway.Outcome{Succeeded: false, Message: "late failure"})
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
		require.EqualValues(t, 1, events.calls.Load())
	})

	t.Run("cart clear failure never rolls back the payment", func(t *testing.T) {
		txns := memory.NewTransactions()
		l := New(txns, failingCarts{}, &countingPublisher{}, memory.NewAuditLogs(), slog.Default())
		pendingTxn(t, txns)

		tx, err := l.ApplyOutcome(ctx, "TXN1", gateway.Outcome{Succeeded: true})
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
	})

	t.Run("publish failure never rolls back the payment", func(t *testing.T) {
		l, txns, _, events, _ := newLedgerFixture()
		events.fail = true
		pendingTxn(t, txns)

		tx, err := l.ApplyOutcome(ctx, "TXN1", gateway.Outcome{Succeeded: true})
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
	})

	t.Run("concurrent callers settle exactly once", func(t *testing.T) {
		l, txns, carts, events, audit := newLedgerFixture()
		pendingTxn(t, txns)
		carts.SetItems("user-1", []models.CartItem{{CourseID: "c1", Price: 50000}})

		const n = 32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			succeeded := i%2 == 0
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.ApplyOutcome(ctx, "TXN1", gateway.Outcome{Succeeded: succeeded})
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		tx, err := txns.GetByID(ctx, "TXN1")
		require.NoError(t, err)
		require.True(t, tx.Status.Terminal())
		require.EqualValues(t, 1, events.calls.Load(), "side effects must fire for exactly one caller")
		require.Len(t, audit.Entries, 1)
		require.LessOrEqual(t, carts.ClearCount("user-1"), 1)
	})
}
