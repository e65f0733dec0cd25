package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/event"
	"github.com/eduhub/edupay/internal/gateway"
	"github.com/eduhub/edupay/internal/gateway/sign"
	"github.com/eduhub/edupay/internal/ledger"
	"github.com/eduhub/edupay/internal/models"
	"github.com/eduhub/edupay/internal/repository/memory"
)

const (
	testPayUKey  = "test-key"
	testPayUSalt = "test-salt"
)

type fixture struct {
	svc   *PaymentService
	txns  *memory.Transactions
	carts *memory.Carts
	users *memory.Users
}

func newFixture(t *testing.T, adapters ...gateway.Adapter) *fixture {
	t.Helper()
	if len(adapters) == 0 {
		adapters = []gateway.Adapter{
			gateway.NewPayU(config.PayUConfig{Key: testPayUKey, Salt: testPayUSalt, FormURL: "https://pay.example/form"}, "https://api.example/callback"),
		}
	}
	txns := memory.NewTransactions()
	carts := memory.NewCarts()
	users := memory.NewUsers("user-1")
	registry := gateway.NewRegistry(adapters...)
	ldg := ledger.New(txns, carts, event.Noop{}, memory.NewAuditLogs(), slog.Default())
	return &fixture{
		svc:   NewPaymentService(txns, carts, users, registry, ldg),
		txns:  txns,
		carts: carts,
		users: users,
	}
}

func testContact() models.CustomerContact {
	return models.CustomerContact{FirstName: "Asha", Email: "asha@example.com", Phone: "9999999999"}
}

// signedPayUCallback builds the redirect the hosted page would send for the
// given form fields and status.
func signedPayUCallback(form map[string]string, status string) map[string]string {
	p := map[string]string{
		"txnid":       form["txnid"],
		"status":      status,
		"amount":      form["amount"],
		"productinfo": form["productinfo"],
		"firstname":   form["firstname"],
		"email":       form["email"],
	}
	fields := []string{testPayUSalt, p["status"]}
	fields = append(fields, make([]string, 10)...)
	fields = append(fields, p["email"], p["firstname"], p["productinfo"], p["amount"], p["txnid"], testPayUKey)
	p["hash"] = sign.ChainHash(fields, "|")
	return p
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Initiate(ctx, "ghost", "payu", testContact())
		require.True(t, errs.Is(err, errs.KindNotFound))
	})

	t.Run("invalid contact", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Initiate(ctx, "user-1", "payu", models.CustomerContact{FirstName: "Asha"})
		require.True(t, errs.Is(err, errs.KindValidation))
	})

	t.Run("unknown payment method", func(t *testing.T) {
		f := newFixture(t)
		f.carts.SetItems("user-1", []models.CartItem{{CourseID: "go-101", Price: 49900}})
		_, err := f.svc.Initiate(ctx, "user-1", "stripe", testContact())
		require.True(t, errs.Is(err, errs.KindValidation))
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Initiate(ctx, "user-1", "payu", testContact())
		require.True(t, errs.Is(err, errs.KindValidation))
		require.Contains(t, err.Error(), "cart is empty")
	})

	t.Run("pending transaction snapshots the cart", func(t *testing.T) {
		f := newFixture(t)
		f.carts.SetItems("user-1", []models.CartItem{
			{CourseID: "go-101", Price: 49900},
			{CourseID: "sql-201", Price: 99900},
		})

		redirect, err := f.svc.Initiate(ctx, "user-1", "payu", testContact())
		require.NoError(t, err)
		require.Equal(t, "1498.00", redirect.FormFields["amount"])

		tx, err := f.txns.GetByID(ctx, redirect.FormFields["txnid"])
		require.NoError(t, err)
		require.Equal(t, models.TxnPending, tx.Status)
		require.EqualValues(t, 149800, tx.TotalAmount)
		require.Len(t, tx.Items, 2)

		// The cart survives initiation; it only empties on success.
		items, err := f.carts.GetItems(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, items, 2)
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	initiate := func(t *testing.T, f *fixture) map[string]string {
		t.Helper()
		f.carts.SetItems("user-1", []models.CartItem{{CourseID: "go-101", Price: 49900}})
		redirect, err := f.svc.Initiate(ctx, "user-1", "payu", testContact())
		require.NoError(t, err)
		return redirect.FormFields
	}

	t.Run("full round trip settles as success and clears the cart", func(t *testing.T) {
		f := newFixture(t)
		form := initiate(t, f)

		tx, err := f.svc.Verify(ctx, signedPayUCallback(form, "success"))
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
		require.Equal(t, 1, f.carts.ClearCount("user-1"))

		items, err := f.carts.GetItems(ctx, "user-1")
		require.NoError(t, err)
		require.Empty(t, items)
	})

	t.Run("price change after initiation does not move the charge", func(t *testing.T) {
		f := newFixture(t)
		form := initiate(t, f)
		f.carts.SetItems("user-1", []models.CartItem{{CourseID: "go-101", Price: 99}})

		tx, err := f.svc.Verify(ctx, signedPayUCallback(form, "success"))
		require.NoError(t, err)
		require.EqualValues(t, 49900, tx.TotalAmount)
	})

	t.Run("duplicate callback is a no-op", func(t *testing.T) {
		f := newFixture(t)
		form := initiate(t, f)
		cb := signedPayUCallback(form, "success")

		_, err := f.svc.Verify(ctx, cb)
		require.NoError(t, err)
		tx, err := f.svc.Verify(ctx, cb)
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
		require.Equal(t, 1, f.carts.ClearCount("user-1"))
	})

	t.Run("late contradictory callback cannot flip a settled transaction", func(t *testing.T) {
		f := newFixture(t)
		form := initiate(t, f)

		_, err := f.svc.Verify(ctx, signedPayUCallback(form, "success"))
		require.NoError(t, err)

		tx, err := f.svc.Verify(ctx, signedPayUCallback(form, "failure"))
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
	})

	t.Run("tampered callback settles as failed", func(t *testing.T) {
		f := newFixture(t)
		form := initiate(t, f)
		cb := signedPayUCallback(form, "success")
		cb["amount"] = "1.00"

		tx, err := f.svc.Verify(ctx, cb)
		require.Error(t, err)
		require.True(t, errs.Is(err, errs.KindVerificationFailed))
		require.Equal(t, models.TxnFailed, tx.Status)
		require.Equal(t, 0, f.carts.ClearCount("user-1"))
	})

	t.Run("declined payment carries the provider message", func(t *testing.T) {
		f := newFixture(t)
		form := initiate(t, f)

		_, err := f.svc.Verify(ctx, signedPayUCallback(form, "failure"))
		require.Error(t, err)
		require.True(t, errs.Is(err, errs.KindVerificationFailed))
	})

	t.Run("payload without a reference", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(ctx, map[string]string{"status": "success"})
		require.True(t, errs.Is(err, errs.KindValidation))
	})

	t.Run("unknown reference", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(ctx, map[string]string{"txnid": "TXNNOPE"})
		require.True(t, errs.Is(err, errs.KindNotFound))
	})
}

func TestVerifyByID(t *testing.T) {
	ctx := context.Background()

	t.Run("provider without inquiry returns the stored state", func(t *testing.T) {
		f := newFixture(t)
		f.carts.SetItems("user-1", []models.CartItem{{CourseID: "go-101", Price: 49900}})
		redirect, err := f.svc.Initiate(ctx, "user-1", "payu", testContact())
		require.NoError(t, err)

		tx, err := f.svc.VerifyByID(ctx, redirect.FormFields["txnid"])
		require.NoError(t, err)
		require.Equal(t, models.TxnPending, tx.Status)
	})

	t.Run("inquiry-capable provider settles a stuck pending", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"order_id": "TXNSTUCK", "order_status": "PAID"})
		}))
		defer srv.Close()

		cf := gateway.NewCashfree(config.CashfreeConfig{
			AppID: "id", Secret: "sec", BaseURL: srv.URL, APIVersion: "2023-08-01",
		}, "cb", &http.Client{})
		f := newFixture(t, cf)

		_, err := f.txns.Create(ctx, models.Transaction{
			ID: "TXNSTUCK", UserID: "user-1", TotalAmount: 49900, Currency: "INR",
			Gateway: models.GatewayCashfree, Status: models.TxnPending,
		})
		require.NoError(t, err)

		tx, err := f.svc.VerifyByID(ctx, "TXNSTUCK")
		require.NoError(t, err)
		require.Equal(t, models.TxnSuccess, tx.Status)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.VerifyByID(ctx, "TXNNOPE")
		require.True(t, errs.Is(err, errs.KindNotFound))
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		_, err := f.txns.Create(ctx, models.Transaction{
			ID: NewTransactionID(), UserID: "user-1", TotalAmount: 100, Currency: "INR",
			Gateway: models.GatewayPayU, Status: models.TxnPending,
		})
		require.NoError(t, err)
	}

	txs, err := f.svc.History(ctx, "user-1", 3, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	// Out-of-range limits fall back to the default page size.
	txs, err = f.svc.History(ctx, "user-1", -1, 0)
	require.NoError(t, err)
	require.Len(t, txs, 5)

	txs, err = f.svc.History(ctx, "other", 10, 0)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestNewTransactionID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewTransactionID()
		require.Len(t, id, 23)
		require.Equal(t, "TXN", id[:3])
		require.False(t, seen[id])
		seen[id] = true
	}
}
