package memstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/domain/stats"
)

func (v Stats) CompletedSince(_ context.Context, storeID int64, since time.Time) (decimal.Decimal, int64, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	var (
		sum   = decimal.Zero
		count int64
	)
	for _, s := range v.db.sales {
		if s.StoreID == storeID && s.Status == sales.StatusCompleted && !s.CreatedAt.Before(since) {
			sum = sum.Add(s.Total)
			count++
		}
	}
	return sum, count, nil
}

func (v Stats) CountLowStock(_ context.Context, storeID int64) (int64, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	var n int64
	for _, p := range v.db.products {
		if p.StoreID == storeID && p.LowStock() {
			n++
		}
	}
	return n, nil
}

func (v Stats) CountCustomersSince(_ context.Context, storeID int64, since time.Time) (int64, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	var n int64
	for _, c := range v.db.customers {
		if c.StoreID == storeID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (v Stats) TopProducts(_ context.Context, storeID int64, limit int) ([]stats.TopProduct, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()

	agg := make(map[int64]*stats.TopProduct)
	for _, s := range v.db.sales {
		if s.StoreID != storeID || s.Status != sales.StatusCompleted {
			continue
		}
		for _, l := range s.Lines {
			p, ok := v.db.products[l.ProductID]
			if !ok || !p.Active {
				continue
			}
			t := agg[p.ID]
			if t == nil {
				t = &stats.TopProduct{Product: p, Revenue: decimal.Zero}
				agg[p.ID] = t
			}
			t.QuantitySold += int64(l.Quantity)
			t.Revenue = t.Revenue.Add(l.Subtotal)
		}
	}

	out := make([]stats.TopProduct, 0, len(agg))
	for _, t := range agg {
		out = append(out, *t)
	}
	sortBy(out, func(a, b stats.TopProduct) bool {
		if a.QuantitySold != b.QuantitySold {
			return a.QuantitySold > b.QuantitySold
		}
		return a.Product.ID < b.Product.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
