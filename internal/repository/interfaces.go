package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eduhub/edupay/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

type Transactions interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)

	// GetByProviderOrderID resolves callbacks that only carry the
	// provider-assigned reference.
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (models.Transaction, error)

	SetProviderOrderID(ctx context.Context, id, providerOrderID string) error

	// ApplyOutcome performs the single atomic pending->terminal transition.
	// The returned bool is true only for the caller that actually performed
	// the transition; every other caller gets the existing record unchanged.
	ApplyOutcome(ctx context.Context, id string, status models.TransactionStatus, payload map[string]string) (models.Transaction, bool, error)

	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
}

// Carts is the cart snapshot collaborator: read items with current prices,
// and clear after a successful payment. Clear is idempotent.
type Carts interface {
	GetItems(ctx context.Context, userID string) ([]models.CartItem, error)
	Clear(ctx context.Context, userID string) error
}

// Users is the user directory collaborator; payments only check existence.
type Users interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
