package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eduhub/edupay/internal/models"
	repo "github.com/eduhub/edupay/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id, provider_order_id, user_id, items, total_amount, currency,
  gateway, status, gateway_response, contact, created_at, updated_at`

func (r *transactionsRepo) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	items, err := json.Marshal(tx.Items)
	if err != nil {
		return models.Transaction{}, err
	}
	contact, err := json.Marshal(tx.Contact)
	if err != nil {
		return models.Transaction{}, err
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO transactions (id, user_id, items, total_amount, currency, gateway, status, contact)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING `+txnColumns,
		tx.ID, tx.UserID, items, tx.TotalAmount, tx.Currency, tx.Gateway, tx.Status, contact,
	)
	return scanTransaction(row)
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id=$1`, id)
	return scanTransaction(row)
}

func (r *transactionsRepo) GetByProviderOrderID(ctx context.Context, providerOrderID string) (models.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE provider_order_id=$1`, providerOrderID)
	return scanTransaction(row)
}

func (r *transactionsRepo) SetProviderOrderID(ctx context.Context, id, providerOrderID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transactions SET provider_order_id=$2, updated_at=now() WHERE id=$1`,
		id, providerOrderID)
	return err
}

// ApplyOutcome is the ledger's serialization point: the WHERE status='pending'
// guard makes the read-check-write a single atomic operation, so of N racing
// callers exactly one sees a row updated.
func (r *transactionsRepo) ApplyOutcome(ctx context.Context, id string, status models.TransactionStatus, payload map[string]string) (models.Transaction, bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.Transaction{}, false, err
	}
	row := r.pool.QueryRow(ctx, `
UPDATE transactions
   SET status=$2, gateway_response=$3, updated_at=now()
 WHERE id=$1 AND status='pending'
RETURNING `+txnColumns,
		id, status, raw)
	tx, err := scanTransaction(row)
	if err == nil {
		return tx, true, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, false, err
	}
	// No pending row: either already terminal (idempotent no-op) or unknown.
	tx, err = r.GetByID(ctx, id)
	if err != nil {
		return models.Transaction{}, false, err
	}
	return tx, false, nil
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+txnColumns+` FROM transactions
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *transactionsRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+txnColumns+` FROM transactions
 WHERE status='pending' AND created_at < $1
 ORDER BY created_at
 LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	var out []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var (
		tx              models.Transaction
		providerOrderID *string
		items           []byte
		response        []byte
		contact         []byte
	)
	err := row.Scan(&tx.ID, &providerOrderID, &tx.UserID, &items, &tx.TotalAmount, &tx.Currency,
		&tx.Gateway, &tx.Status, &response, &contact, &tx.CreatedAt, &tx.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repo.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	if providerOrderID != nil {
		tx.ProviderOrderID = *providerOrderID
	}
	if err := json.Unmarshal(items, &tx.Items); err != nil {
		return models.Transaction{}, err
	}
	if len(response) > 0 {
		if err := json.Unmarshal(response, &tx.GatewayResponse); err != nil {
			return models.Transaction{}, err
		}
	}
	if err := json.Unmarshal(contact, &tx.Contact); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}
