package inventory

import "time"

type Kind string

const (
	KindSale       Kind = "sale"
	KindEntry      Kind = "entry"
	KindExit       Kind = "exit"
	KindAdjustment Kind = "adjustment"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSale, KindEntry, KindExit, KindAdjustment:
		return true
	}
	return false
}

// Movement is one append-only stock change. Delta is signed: negative removes stock.
type Movement struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	StoreID     int64     `json:"store_id"`
	Kind        Kind      `json:"kind"`
	Delta       int       `json:"delta"`
	StockBefore int       `json:"stock_before"`
	StockAfter  int       `json:"stock_after"`
	Reason      string    `json:"reason"`
	SaleID      *int64    `json:"sale_id,omitempty"`
	ActorID     int64     `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}
