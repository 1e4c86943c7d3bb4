package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) GetByID(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, store_id, name, COALESCE(email,''), COALESCE(phone,''), created_at
		FROM customers
		WHERE id = $1
	`, id)
	var c Customer
	if err := row.Scan(&c.ID, &c.StoreID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, storeID int64, in NewCustomer) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (store_id, name, email, phone)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''))
		RETURNING id, store_id, name, COALESCE(email,''), COALESCE(phone,''), created_at
	`, storeID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Email), strings.TrimSpace(in.Phone))
	var c Customer
	if err := row.Scan(&c.ID, &c.StoreID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Summary returns the customer together with the sum and count of its completed sales.
func (r *Repo) Summary(ctx context.Context, id int64) (*Summary, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s := Summary{Customer: *c}
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM sales
		WHERE customer_id = $1 AND status = 'completed'
	`, id).Scan(&s.PurchasesTotal, &s.PurchasesCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
