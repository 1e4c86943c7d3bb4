package engine

import (
	"context"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/events"
)

const defaultHistoryLimit = 100

// Adjust applies a manual stock change: entry adds, exit subtracts, adjustment sets the
// absolute stock. It takes the same row lock as a sale and appends one movement.
func (e *Engine) Adjust(ctx context.Context, storeID, productID, requestedBy int64, in AdjustInput) (*inventory.Movement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := e.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, storageErr(err, "product", productID)
	}
	if p.StoreID != storeID {
		return nil, apperr.NotFound("product", productID)
	}

	var (
		mv    inventory.Movement
		final products.Product
	)
	err = e.Sales.InTx(ctx, func(ctx context.Context, tx sales.Tx) error {
		p, err := tx.LockProduct(ctx, productID)
		if err != nil {
			return storageErr(err, "product", productID)
		}

		var after int
		switch in.Kind {
		case inventory.KindEntry:
			after = p.Stock + in.Quantity
		case inventory.KindExit:
			after = p.Stock - in.Quantity
			if p.TrackInventory && after < 0 {
				e.Recorder.StockRejected()
				return apperr.InsufficientStock(p.Name, p.Stock, in.Quantity)
			}
		case inventory.KindAdjustment:
			after = in.Quantity
		}

		if err := tx.SetStock(ctx, p.ID, after); err != nil {
			return err
		}
		mv = inventory.Movement{
			ProductID:   p.ID,
			StoreID:     p.StoreID,
			Kind:        in.Kind,
			Delta:       after - p.Stock,
			StockBefore: p.Stock,
			StockAfter:  after,
			Reason:      in.Reason,
			ActorID:     requestedBy,
		}
		if err := tx.AppendMovement(ctx, &mv); err != nil {
			return err
		}
		final = *p
		final.Stock = after
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "product", productID)
	}
	e.Recorder.StockAdjusted(string(in.Kind))

	var low []products.Product
	if final.LowStock() {
		low = append(low, final)
	}
	e.refresh(ctx, storeID, low)
	return &mv, nil
}

// refresh recomputes and publishes the store snapshot, then any low-stock alerts.
func (e *Engine) refresh(ctx context.Context, storeID int64, low []products.Product) {
	ctx = context.WithoutCancel(ctx)
	snap, err := e.Stats.Compute(ctx, storeID)
	if err != nil {
		e.Log.Warn("statistics recompute failed", "store_id", storeID, "err", err)
	} else {
		e.publish(events.StatisticsUpdated(snap))
	}
	for _, p := range low {
		e.publish(events.LowStock(p))
	}
}

// History lists a product's movements, newest first.
func (e *Engine) History(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error) {
	if _, err := e.Products.GetByID(ctx, productID); err != nil {
		return nil, storageErr(err, "product", productID)
	}
	if limit <= 0 || limit > 1000 {
		limit = defaultHistoryLimit
	}
	out, err := e.Movements.ListByProduct(ctx, productID, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if out == nil {
		out = []inventory.Movement{}
	}
	return out, nil
}
