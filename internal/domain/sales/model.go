package sales

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/products"
)

var ErrNotFound = errors.New("sales: not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusCancelled
}

type Channel string

const (
	ChannelInStore Channel = "in-store"
	ChannelOnline  Channel = "online"
)

func (c Channel) Valid() bool {
	return c == ChannelInStore || c == ChannelOnline
}

type Sale struct {
	ID              int64           `json:"id"`
	StoreID         int64           `json:"store_id"`
	Folio           string          `json:"folio"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	PaymentMethodID int64           `json:"payment_method_id"`
	CreatedBy       int64           `json:"created_by"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Tip             decimal.Decimal `json:"tip"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	Channel         Channel         `json:"channel"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []Line          `json:"lines"`

	// Relations, filled on reads.
	StoreName         string `json:"store_name,omitempty"`
	CustomerName      string `json:"customer_name,omitempty"`
	PaymentMethodName string `json:"payment_method_name,omitempty"`
	StaffName         string `json:"staff_name,omitempty"`
}

type Line struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`

	ProductName string `json:"product_name,omitempty"`
	ProductSKU  string `json:"product_sku,omitempty"`
}

// Filter narrows a store's sale listing. Zero values mean "any".
type Filter struct {
	StoreID    int64
	From       *time.Time
	To         *time.Time
	Status     Status
	Channel    Channel
	CustomerID *int64
	Limit      int
}

// Tx is the set of writes available inside one sale transaction.
type Tx interface {
	LockProduct(ctx context.Context, id int64) (*products.Product, error)
	SetStock(ctx context.Context, productID int64, stock int) error
	AppendMovement(ctx context.Context, m *inventory.Movement) error

	CountSales(ctx context.Context, storeID int64) (int64, error)
	NextFolio(ctx context.Context, storeID int64) (int64, error)
	InsertSale(ctx context.Context, s *Sale) error
	InsertLine(ctx context.Context, l *Line) error

	LockSale(ctx context.Context, id int64) (*Sale, error)
	SetStatus(ctx context.Context, id int64, status Status) error
}
