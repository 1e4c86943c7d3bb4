package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) GetByID(ctx context.Context, id int64) (*Method, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, code, active, created_at
		FROM payment_methods WHERE id = $1
	`, id)
	var m Method
	if err := row.Scan(&m.ID, &m.Name, &m.Code, &m.Active, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) ListActive(ctx context.Context) ([]Method, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, code, active, created_at
		FROM payment_methods
		WHERE active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Method
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.ID, &m.Name, &m.Code, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
