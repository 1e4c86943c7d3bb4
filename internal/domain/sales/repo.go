package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/products"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// InTx runs fn in one transaction; any error rolls everything back.
func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sales: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sales: commit: %w", err)
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockProduct(ctx context.Context, id int64) (*products.Product, error) {
	return products.ForUpdate(ctx, t.tx, id)
}

func (t *pgTx) SetStock(ctx context.Context, productID int64, stock int) error {
	return products.SetStock(ctx, t.tx, productID, stock)
}

func (t *pgTx) AppendMovement(ctx context.Context, m *inventory.Movement) error {
	return inventory.Append(ctx, t.tx, m)
}

func (t *pgTx) CountSales(ctx context.Context, storeID int64) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE store_id = $1`, storeID).Scan(&n)
	return n, err
}

// NextFolio bumps the store's folio sequence; the row lock serializes concurrent creates.
func (t *pgTx) NextFolio(ctx context.Context, storeID int64) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO store_folio_sequences (store_id, last_value)
		VALUES ($1, (SELECT COUNT(*) + 1 FROM sales WHERE store_id = $1))
		ON CONFLICT (store_id)
		DO UPDATE SET last_value = store_folio_sequences.last_value + 1
		RETURNING last_value
	`, storeID).Scan(&n)
	return n, err
}

func (t *pgTx) InsertSale(ctx context.Context, s *Sale) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO sales
			(store_id, folio, customer_id, payment_method_id, created_by,
			 subtotal, discount, tax, tip, total, status, channel)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at, updated_at
	`, s.StoreID, s.Folio, s.CustomerID, s.PaymentMethodID, s.CreatedBy,
		s.Subtotal, s.Discount, s.Tax, s.Tip, s.Total, string(s.Status), string(s.Channel)).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (t *pgTx) InsertLine(ctx context.Context, l *Line) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price, discount, subtotal)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, l.SaleID, l.ProductID, l.Quantity, l.UnitPrice, l.Discount, l.Subtotal).Scan(&l.ID)
}

func (t *pgTx) LockSale(ctx context.Context, id int64) (*Sale, error) {
	s, err := scanSale(t.tx.QueryRow(ctx, saleHeader+` WHERE s.id = $1 FOR UPDATE OF s`, id))
	if err != nil {
		return nil, err
	}
	if s.Lines, err = queryLines(ctx, t.tx, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *pgTx) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const saleHeader = `
	SELECT s.id, s.store_id, s.folio, s.customer_id, s.payment_method_id, s.created_by,
	       s.subtotal, s.discount, s.tax, s.tip, s.total, s.status, s.channel, s.created_at, s.updated_at,
	       st.name, COALESCE(c.name,''), pm.name, sf.name
	FROM sales s
	JOIN stores st ON st.id = s.store_id
	LEFT JOIN customers c ON c.id = s.customer_id
	JOIN payment_methods pm ON pm.id = s.payment_method_id
	JOIN staff sf ON sf.id = s.created_by`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	if err := row.Scan(
		&s.ID, &s.StoreID, &s.Folio, &s.CustomerID, &s.PaymentMethodID, &s.CreatedBy,
		&s.Subtotal, &s.Discount, &s.Tax, &s.Tip, &s.Total, &s.Status, &s.Channel, &s.CreatedAt, &s.UpdatedAt,
		&s.StoreName, &s.CustomerName, &s.PaymentMethodName, &s.StaffName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, saleID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.sale_id, l.product_id, l.quantity, l.unit_price, l.discount, l.subtotal,
		       p.name, COALESCE(p.sku,'')
		FROM sale_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.sale_id = $1
		ORDER BY l.id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Discount, &l.Subtotal,
			&l.ProductName, &l.ProductSKU); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetByID returns the sale with its relations and lines.
func (r *Repo) GetByID(ctx context.Context, id int64) (*Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, saleHeader+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if s.Lines, err = queryLines(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns a store's sales, newest first, with relations but without lines.
func (r *Repo) List(ctx context.Context, f Filter) ([]Sale, error) {
	var (
		where = []string{"s.store_id = $1"}
		args  = []any{f.StoreID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("s.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("s.created_at < $%d", *f.To)
	}
	if f.Status != "" {
		add("s.status = $%d", string(f.Status))
	}
	if f.Channel != "" {
		add("s.channel = $%d", string(f.Channel))
	}
	if f.CustomerID != nil {
		add("s.customer_id = $%d", *f.CustomerID)
	}
	q := saleHeader + " WHERE " + strings.Join(where, " AND ") + " ORDER BY s.created_at DESC, s.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
