package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const stockCheck = "products_tracked_stock_nonneg"

const selectColumns = `
	SELECT id, store_id, name, COALESCE(barcode,''), COALESCE(sku,''), price, cost_price,
	       track_inventory, stock, stock_min, stock_max, active, created_at, updated_at
	FROM products`

// Scan reads one product row produced by selectColumns (or an equivalent column list).
func Scan(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(
		&p.ID,
		&p.StoreID,
		&p.Name,
		&p.Barcode,
		&p.SKU,
		&p.Price,
		&p.CostPrice,
		&p.TrackInventory,
		&p.Stock,
		&p.StockMin,
		&p.StockMax,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Product, error) {
	return Scan(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
}

// ForUpdate locks the product row for the rest of tx and returns its current state.
func ForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*Product, error) {
	return Scan(tx.QueryRow(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id))
}

// SetStock writes an absolute stock value inside tx; callers hold the row lock.
func SetStock(ctx context.Context, tx pgx.Tx, id int64, stock int) error {
	tag, err := tx.Exec(ctx, `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, id, stock)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == stockCheck {
			return ErrNegativeStock
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListByStore(ctx context.Context, storeID int64, onlyActive bool) ([]Product, error) {
	q := selectColumns + ` WHERE store_id = $1`
	if onlyActive {
		q += " AND active = TRUE"
	}
	q += " ORDER BY name"

	rows, err := r.pool.Query(ctx, q, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
