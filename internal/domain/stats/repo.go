package stats

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// CompletedSince sums completed sales created at or after since.
func (r *Repo) CompletedSince(ctx context.Context, storeID int64, since time.Time) (decimal.Decimal, int64, error) {
	var (
		sum   decimal.Decimal
		count int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM sales
		WHERE store_id = $1 AND status = 'completed' AND created_at >= $2
	`, storeID, since).Scan(&sum, &count)
	return sum, count, err
}

func (r *Repo) CountLowStock(ctx context.Context, storeID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM products
		WHERE store_id = $1 AND active = TRUE AND track_inventory = TRUE AND stock <= stock_min
	`, storeID).Scan(&n)
	return n, err
}

func (r *Repo) CountCustomersSince(ctx context.Context, storeID int64, since time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM customers WHERE store_id = $1 AND created_at >= $2
	`, storeID, since).Scan(&n)
	return n, err
}

// TopProducts ranks active products by quantity sold in completed sales.
func (r *Repo) TopProducts(ctx context.Context, storeID int64, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.store_id, p.name, COALESCE(p.barcode,''), COALESCE(p.sku,''), p.price, p.cost_price,
		       p.track_inventory, p.stock, p.stock_min, p.stock_max, p.active, p.created_at, p.updated_at,
		       SUM(l.quantity) AS qty, SUM(l.subtotal) AS revenue
		FROM sale_lines l
		JOIN sales s ON s.id = l.sale_id
		JOIN products p ON p.id = l.product_id
		WHERE s.store_id = $1 AND s.status = 'completed' AND p.active = TRUE
		GROUP BY p.id
		ORDER BY qty DESC, p.id
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var (
			t TopProduct
			p = &t.Product
		)
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Name, &p.Barcode, &p.SKU, &p.Price, &p.CostPrice,
			&p.TrackInventory, &p.Stock, &p.StockMin, &p.StockMax, &p.Active, &p.CreatedAt, &p.UpdatedAt,
			&t.QuantitySold, &t.Revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

