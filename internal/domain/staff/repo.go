package staff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) GetByID(ctx context.Context, id int64) (*Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, store_id, name, email, role, active, created_at, updated_at
		FROM staff WHERE id = $1
	`, id)

	var m Member
	if err := row.Scan(&m.ID, &m.StoreID, &m.Name, &m.Email, &m.Role, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
