package products

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("products: not found")
	ErrNegativeStock = errors.New("products: tracked stock cannot go below zero")
)

type Product struct {
	ID             int64           `json:"id"`
	StoreID        int64           `json:"store_id"`
	Name           string          `json:"name"`
	Barcode        string          `json:"barcode,omitempty"`
	SKU            string          `json:"sku,omitempty"`
	Price          decimal.Decimal `json:"price"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	TrackInventory bool            `json:"track_inventory"`
	Stock          int             `json:"stock"`
	StockMin       int             `json:"stock_min"`
	StockMax       int             `json:"stock_max"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LowStock reports whether a tracked, active product sits at or below its minimum.
func (p Product) LowStock() bool {
	return p.Active && p.TrackInventory && p.Stock <= p.StockMin
}
