package customers

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("customers: not found")

type Customer struct {
	ID        int64     `json:"id"`
	StoreID   int64     `json:"store_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NewCustomer struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=40"`
}

// Summary aggregates a customer's completed purchases.
type Summary struct {
	Customer
	PurchasesTotal decimal.Decimal `json:"purchases_total"`
	PurchasesCount int64           `json:"purchases_count"`
}
