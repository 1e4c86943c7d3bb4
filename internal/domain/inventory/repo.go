package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Append logs a movement inside tx. The caller has already written the new stock.
func Append(ctx context.Context, tx pgx.Tx, m *Movement) error {
	return tx.QueryRow(ctx, `
		INSERT INTO inventory_movements
			(product_id, store_id, kind, delta, stock_before, stock_after, reason, sale_id, actor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at
	`, m.ProductID, m.StoreID, string(m.Kind), m.Delta, m.StockBefore, m.StockAfter, m.Reason, m.SaleID, m.ActorID).
		Scan(&m.ID, &m.CreatedAt)
}

// ListByProduct returns the product's movements, newest first.
func (r *Repo) ListByProduct(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, store_id, kind, delta, stock_before, stock_after, reason, sale_id, actor_id, created_at
		FROM inventory_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.StoreID, &m.Kind, &m.Delta, &m.StockBefore, &m.StockAfter,
			&m.Reason, &m.SaleID, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
