package payments

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("payments: method not found")

type Method struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
