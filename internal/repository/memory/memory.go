// Package memory holds in-memory repository implementations used by unit
// tests and local development. The transaction store honors the same atomic
// conditional-transition contract as the postgres implementation, with a
// mutex standing in for the conditional UPDATE.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eduhub/edupay/internal/models"
	repo "github.com/eduhub/edupay/internal/repository"
)

type Transactions struct {
	mu   sync.Mutex
	byID map[string]models.Transaction
}

func NewTransactions() *Transactions {
	return &Transactions{byID: make(map[string]models.Transaction)}
}

func (r *Transactions) Create(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	tx.CreatedAt, tx.UpdatedAt = now, now
	r.byID[tx.ID] = tx
	return tx, nil
}

func (r *Transactions) GetByID(_ context.Context, id string) (models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return tx, nil
}

func (r *Transactions) GetByProviderOrderID(_ context.Context, providerOrderID string) (models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.byID {
		if tx.ProviderOrderID != "" && tx.ProviderOrderID == providerOrderID {
			return tx, nil
		}
	}
	return models.Transaction{}, repo.ErrNotFound
}

func (r *Transactions) SetProviderOrderID(_ context.Context, id, providerOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	tx.ProviderOrderID = providerOrderID
	tx.UpdatedAt = time.Now()
	r.byID[id] = tx
	return nil
}

func (r *Transactions) ApplyOutcome(_ context.Context, id string, status models.TransactionStatus, payload map[string]string) (models.Transaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byID[id]
	if !ok {
		return models.Transaction{}, false, repo.ErrNotFound
	}
	if tx.Status.Terminal() {
		return tx, false, nil
	}
	tx.Status = status
	tx.GatewayResponse = payload
	tx.UpdatedAt = time.Now()
	r.byID[id] = tx
	return tx, true, nil
}

func (r *Transactions) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.byID {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Transactions) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.byID {
		if tx.Status == models.TxnPending && tx.CreatedAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type Carts struct {
	mu    sync.Mutex
	items map[string][]models.CartItem
	// Clears counts Clear calls per user so tests can assert the cart is
	// cleared exactly once.
	clears map[string]int
}

func NewCarts() *Carts {
	return &Carts{items: make(map[string][]models.CartItem), clears: make(map[string]int)}
}

func (c *Carts) SetItems(userID string, items []models.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[userID] = items
}

func (c *Carts) GetItems(_ context.Context, userID string) ([]models.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CartItem, len(c.items[userID]))
	copy(out, c.items[userID])
	return out, nil
}

func (c *Carts) Clear(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, userID)
	c.clears[userID]++
	return nil
}

func (c *Carts) ClearCount(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears[userID]
}

type Users struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewUsers(ids ...string) *Users {
	u := &Users{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		u.ids[id] = struct{}{}
	}
	return u
}

func (u *Users) Add(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ids[id] = struct{}{}
}

func (u *Users) Exists(_ context.Context, id string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.ids[id]
	return ok, nil
}

type AuditLogs struct {
	mu      sync.Mutex
	Entries []models.AuditLog
}

func NewAuditLogs() *AuditLogs { return &AuditLogs{} }

func (a *AuditLogs) Create(_ context.Context, l models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, l)
	return nil
}
