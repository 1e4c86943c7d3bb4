// Package stats computes the per-store statistics snapshot and top-selling products.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	domain "github.com/Spok95/tienda-pos/internal/domain/stats"
)

const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

// Source is the read side the aggregator queries; domain/stats.Repo and memstore implement it.
type Source interface {
	CompletedSince(ctx context.Context, storeID int64, since time.Time) (decimal.Decimal, int64, error)
	CountLowStock(ctx context.Context, storeID int64) (int64, error)
	CountCustomersSince(ctx context.Context, storeID int64, since time.Time) (int64, error)
	TopProducts(ctx context.Context, storeID int64, limit int) ([]domain.TopProduct, error)
}

type Aggregator struct {
	src Source
	loc *time.Location
	now func() time.Time
}

func New(src Source, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{src: src, loc: loc, now: time.Now}
}

// WithClock overrides the aggregator's notion of "now".
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Bounds returns the start of the current day and of the current month in the aggregator's zone.
func (a *Aggregator) Bounds() (dayStart, monthStart time.Time) {
	n := a.now().In(a.loc)
	dayStart = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, a.loc)
	monthStart = time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, a.loc)
	return dayStart, monthStart
}

// Compute runs the four snapshot queries in parallel. It never writes.
func (a *Aggregator) Compute(ctx context.Context, storeID int64) (domain.Snapshot, error) {
	dayStart, monthStart := a.Bounds()
	snap := domain.Snapshot{
		StoreID:      storeID,
		TodayRevenue: decimal.Zero,
		MonthRevenue: decimal.Zero,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, n, err := a.src.CompletedSince(ctx, storeID, dayStart)
		if err != nil {
			return fmt.Errorf("stats: today: %w", err)
		}
		snap.TodayRevenue, snap.TodayCount = sum, n
		return nil
	})
	g.Go(func() error {
		sum, n, err := a.src.CompletedSince(ctx, storeID, monthStart)
		if err != nil {
			return fmt.Errorf("stats: month: %w", err)
		}
		snap.MonthRevenue, snap.MonthCount = sum, n
		return nil
	})
	g.Go(func() error {
		n, err := a.src.CountLowStock(ctx, storeID)
		if err != nil {
			return fmt.Errorf("stats: low stock: %w", err)
		}
		snap.LowStockProducts = n
		return nil
	})
	g.Go(func() error {
		n, err := a.src.CountCustomersSince(ctx, storeID, dayStart)
		if err != nil {
			return fmt.Errorf("stats: new customers: %w", err)
		}
		snap.NewCustomersToday = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}
	snap.ComputedAt = a.now().UTC()
	return snap, nil
}

// TopProducts ranks products by quantity sold in completed sales. limit <= 0 means the default.
func (a *Aggregator) TopProducts(ctx context.Context, storeID int64, limit int) ([]domain.TopProduct, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	out, err := a.src.TopProducts(ctx, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("stats: top products: %w", err)
	}
	if out == nil {
		out = []domain.TopProduct{}
	}
	return out, nil
}
