package postgres

import (
	"context"

	"github.com/eduhub/edupay/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type cartsRepo struct{ pool *pgxpool.Pool }

// GetItems joins cart entries to the course catalog so prices are read at
// this single point; a deleted course simply drops out of the snapshot.
func (r *cartsRepo) GetItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT ci.course_id, c.price
  FROM cart_items ci
  JOIN courses c ON c.id = ci.course_id
 WHERE ci.user_id = $1
 ORDER BY ci.added_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.CourseID, &item.Price); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *cartsRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}
