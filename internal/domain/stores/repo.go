package stores

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) GetByID(ctx context.Context, id int64) (*Store, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, account_id, name, active, created_at
		FROM stores WHERE id = $1
	`, id)
	var s Store
	if err := row.Scan(&s.ID, &s.AccountID, &s.Name, &s.Active, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
