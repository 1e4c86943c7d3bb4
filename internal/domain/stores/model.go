package stores

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("stores: not found")

type Store struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
