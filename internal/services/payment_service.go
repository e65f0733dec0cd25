package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/gateway"
	"github.com/eduhub/edupay/internal/ledger"
	"github.com/eduhub/edupay/internal/metrics"
	"github.com/eduhub/edupay/internal/models"
	repo "github.com/eduhub/edupay/internal/repository"
)

// callbackReferenceKeys is the cross-provider candidate list used to find a
// transaction before we know which adapter the callback belongs to. Ordered:
// the redirect-hash providers' txnid first, then the REST providers'
// order ids, then our own field names.
var callbackReferenceKeys = []string{
	"txnid", "order_id", "orderId", "merchant_order_id", "transactionId", "transaction_id",
}

const productInfo = "EduHub Course Purchase"

// PaymentService drives the initiate and verify use cases. It owns no
// transaction state; all mutation goes through the ledger.
type PaymentService struct {
	txns     repo.Transactions
	carts    repo.Carts
	users    repo.Users
	registry *gateway.Registry
	ledger   *ledger.Ledger
	currency string
}

func NewPaymentService(txns repo.Transactions, carts repo.Carts, users repo.Users, registry *gateway.Registry, ldg *ledger.Ledger) *PaymentService {
	return &PaymentService{
		txns:     txns,
		carts:    carts,
		users:    users,
		registry: registry,
		ledger:   ldg,
		currency: "INR",
	}
}

// Initiate converts the user's cart into a pending transaction and asks the
// selected gateway for a redirect. The cart's prices are read here and never
// again: the transaction's snapshot is immune to later catalog changes.
func (s *PaymentService) Initiate(ctx context.Context, userID, method string, contact models.CustomerContact) (gateway.RedirectDescriptor, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return gateway.RedirectDescriptor{}, err
	}
	if !exists {
		return gateway.RedirectDescriptor{}, errs.New(errs.KindNotFound, "user not found")
	}
	if err := contact.Validate(); err != nil {
		return gateway.RedirectDescriptor{}, errs.Wrap(errs.KindValidation, "invalid customer details", err)
	}

	gwName, err := models.ParseGateway(method)
	if err != nil {
		return gateway.RedirectDescriptor{}, errs.Wrap(errs.KindValidation, "invalid payment method", err)
	}
	adapter, err := s.registry.Get(gwName)
	if err != nil {
		return gateway.RedirectDescriptor{}, err
	}

	items, err := s.carts.GetItems(ctx, userID)
	if err != nil {
		return gateway.RedirectDescriptor{}, err
	}
	if len(items) == 0 {
		return gateway.RedirectDescriptor{}, errs.New(errs.KindValidation, "cart is empty")
	}

	var total int64
	lineItems := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		total += item.Price
		lineItems = append(lineItems, models.LineItem{CourseID: item.CourseID, UnitPrice: item.Price})
	}
	if total <= 0 {
		return gateway.RedirectDescriptor{}, errs.New(errs.KindValidation, "cart total must be positive")
	}

	tx, err := s.txns.Create(ctx, models.Transaction{
		ID:          NewTransactionID(),
		UserID:      userID,
		Items:       lineItems,
		TotalAmount: total,
		Currency:    s.currency,
		Gateway:     gwName,
		Status:      models.TxnPending,
		Contact:     contact,
	})
	if err != nil {
		return gateway.RedirectDescriptor{}, err
	}

	result, err := adapter.Initiate(ctx, gateway.Order{
		TransactionID: tx.ID,
		AmountMinor:   tx.TotalAmount,
		Currency:      tx.Currency,
		ProductInfo:   productInfo,
		UserID:        userID,
		Customer:      contact,
	})
	if err != nil {
		// The pending record stays: a later verify or the reconciler settles
		// it, and the gateway may still deliver a callback for it.
		return gateway.RedirectDescriptor{}, err
	}

	if result.ProviderOrderID != "" {
		if err := s.txns.SetProviderOrderID(ctx, tx.ID, result.ProviderOrderID); err != nil {
			return gateway.RedirectDescriptor{}, err
		}
	}
	metrics.PaymentsInitiated.WithLabelValues(string(gwName)).Inc()
	return result.Redirect, nil
}

// Verify normalizes a callback payload and applies the canonical outcome. It
// returns the settled transaction; a confirmed non-success additionally
// returns a verification error carrying the provider's message.
func (s *PaymentService) Verify(ctx context.Context, payload map[string]string) (models.Transaction, error) {
	ref, ok := gateway.Reference(payload, callbackReferenceKeys)
	if !ok {
		return models.Transaction{}, errs.New(errs.KindValidation, "payload carries no transaction reference")
	}

	tx, err := s.ledger.Resolve(ctx, ref)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Status.Terminal() {
		// Duplicate or late callback; nothing to do and no provider call.
		return tx, nil
	}

	adapter, err := s.registry.Get(tx.Gateway)
	if err != nil {
		return models.Transaction{}, err
	}
	outcome, err := adapter.NormalizeCallback(ctx, payload)
	if err != nil {
		// Includes upstream/timeout failures: retryable, never terminal.
		return models.Transaction{}, err
	}

	settled, err := s.ledger.ApplyOutcome(ctx, tx.ID, outcome)
	if err != nil {
		return models.Transaction{}, err
	}
	if settled.Status == models.TxnFailed {
		msg := outcome.Message
		if msg == "" {
			msg = "payment not confirmed by gateway"
		}
		return settled, errs.New(errs.KindVerificationFailed, msg)
	}
	return settled, nil
}

// VerifyByID re-checks a transaction on the caller's initiative. Providers
// with an inquiry endpoint are asked directly; for the rest the stored state
// is already as good as it gets, so it is returned as-is.
func (s *PaymentService) VerifyByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	tx, err := s.ledger.Resolve(ctx, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Status.Terminal() {
		return tx, nil
	}

	adapter, err := s.registry.Get(tx.Gateway)
	if err != nil {
		return models.Transaction{}, err
	}
	inquirer, ok := adapter.(gateway.Inquirer)
	if !ok {
		return tx, nil
	}

	ref := tx.ID
	if tx.ProviderOrderID != "" {
		ref = tx.ProviderOrderID
	}
	outcome, err := inquirer.Inquire(ctx, ref)
	if err != nil {
		return models.Transaction{}, err
	}
	settled, err := s.ledger.ApplyOutcome(ctx, tx.ID, outcome)
	if err != nil {
		return models.Transaction{}, err
	}
	if settled.Status == models.TxnFailed {
		return settled, errs.New(errs.KindVerificationFailed, outcome.Message)
	}
	return settled, nil
}

// Status is the read-only reconciliation view.
func (s *PaymentService) Status(ctx context.Context, transactionID string) (models.Transaction, error) {
	return s.ledger.Resolve(ctx, transactionID)
}

// History lists a user's transactions, newest first.
func (s *PaymentService) History(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.txns.ListByUser(ctx, userID, limit, offset)
}

// NewTransactionID mints the caller-visible reference. The TXN prefix plus
// an uppercased UUID tail keeps it unique and gateway-safe (alphanumeric,
// under 25 chars for the strictest provider).
func NewTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TXN" + strings.ToUpper(raw[:20])
}
