package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/tienda-pos/internal/domain/products"
)

// Snapshot is the derived per-store statistics view. Only completed sales count toward revenue.
type Snapshot struct {
	StoreID           int64           `json:"store_id"`
	TodayRevenue      decimal.Decimal `json:"today_revenue"`
	TodayCount        int64           `json:"today_count"`
	MonthRevenue      decimal.Decimal `json:"month_revenue"`
	MonthCount        int64           `json:"month_count"`
	LowStockProducts  int64           `json:"low_stock_products"`
	NewCustomersToday int64           `json:"new_customers_today"`
	ComputedAt        time.Time       `json:"computed_at"`
}

type TopProduct struct {
	Product      products.Product `json:"product"`
	QuantitySold int64            `json:"quantity_sold"`
	Revenue      decimal.Decimal  `json:"revenue"`
}
