// Package engine records sales and keeps product stock consistent with them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/domain/customers"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/payments"
	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	domainstats "github.com/Spok95/tienda-pos/internal/domain/stats"
	"github.com/Spok95/tienda-pos/internal/domain/stores"
	"github.com/Spok95/tienda-pos/internal/events"
)

type SaleStore interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx sales.Tx) error) error
	GetByID(ctx context.Context, id int64) (*sales.Sale, error)
	List(ctx context.Context, f sales.Filter) ([]sales.Sale, error)
}

type StoreReader interface {
	GetByID(ctx context.Context, id int64) (*stores.Store, error)
}

type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*products.Product, error)
}

type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (*customers.Customer, error)
}

type PaymentMethodReader interface {
	GetByID(ctx context.Context, id int64) (*payments.Method, error)
}

type MovementReader interface {
	ListByProduct(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error)
}

type StatsComputer interface {
	Compute(ctx context.Context, storeID int64) (domainstats.Snapshot, error)
}

type Publisher interface {
	Publish(e events.Event)
}

// Recorder receives business counters; internal/infra/metrics implements it.
type Recorder interface {
	SaleCreated(channel string)
	SaleTransition(to string)
	StockRejected()
	StockAdjusted(kind string)
}

type nopRecorder struct{}

func (nopRecorder) SaleCreated(string)    {}
func (nopRecorder) SaleTransition(string) {}
func (nopRecorder) StockRejected()        {}
func (nopRecorder) StockAdjusted(string)  {}

type Deps struct {
	Sales     SaleStore
	Stores    StoreReader
	Products  ProductReader
	Customers CustomerReader
	Payments  PaymentMethodReader
	Movements MovementReader
	Stats     StatsComputer
	Publisher Publisher
	Recorder  Recorder
	Log       *slog.Logger
}

// Policy selects between the literal behavior and its hardened alternatives.
type Policy struct {
	FolioPrefix           string
	StrictFolio           bool
	ForbidCancelCompleted bool
}

type Engine struct {
	Deps
	policy Policy
}

func New(d Deps, p Policy) *Engine {
	if p.FolioPrefix == "" {
		p.FolioPrefix = "V"
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Engine{Deps: d, policy: p}
}

func (e *Engine) folio(storeID, n int64) string {
	return fmt.Sprintf("%s-%d-%d", e.policy.FolioPrefix, storeID, n)
}

// storageErr keeps AppErrors as they are and turns anything else into INTERNAL_ERROR.
func storageErr(err error, resource string, id int64) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sales.ErrNotFound),
		errors.Is(err, products.ErrNotFound),
		errors.Is(err, stores.ErrNotFound),
		errors.Is(err, customers.ErrNotFound),
		errors.Is(err, payments.ErrNotFound):
		return apperr.NotFound(resource, id).Wrap(err)
	}
	return apperr.Internal(err)
}

// lineTotals computes each line subtotal, the sale subtotal and the total.
// Negative totals are kept as computed.
func lineTotals(in CreateSaleInput) ([]decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	subs := make([]decimal.Decimal, len(in.Lines))
	subtotal := decimal.Zero
	for i, l := range in.Lines {
		subs[i] = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(l.Discount)
		subtotal = subtotal.Add(subs[i])
	}
	total := subtotal.Sub(in.Discount).Add(in.Tax).Add(in.Tip)
	return subs, subtotal, total
}

func lineProductIDs(lines []LineInput) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// lockProducts row-locks each distinct product once, in ascending id order, so
// transactions touching overlapping products always queue instead of deadlocking.
func lockProducts(ctx context.Context, tx sales.Tx, ids []int64) (map[int64]*products.Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	locked := make(map[int64]*products.Product, len(sorted))
	for _, id := range sorted {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return nil, storageErr(err, "product", id)
		}
		locked[id] = p
	}
	return locked, nil
}

// precheck validates every referenced entity before anything is written.
func (e *Engine) precheck(ctx context.Context, storeID int64, in CreateSaleInput) error {
	st, err := e.Stores.GetByID(ctx, storeID)
	if err != nil {
		return storageErr(err, "store", storeID)
	}
	if !st.Active {
		return apperr.Inactive("store", st.Name)
	}

	if in.CustomerID != nil {
		c, err := e.Customers.GetByID(ctx, *in.CustomerID)
		if err != nil {
			return storageErr(err, "customer", *in.CustomerID)
		}
		if c.StoreID != storeID {
			return apperr.NotFound("customer", *in.CustomerID)
		}
	}

	pm, err := e.Payments.GetByID(ctx, in.PaymentMethodID)
	if err != nil {
		return storageErr(err, "payment method", in.PaymentMethodID)
	}
	if !pm.Active {
		return apperr.Inactive("payment method", pm.Name)
	}

	wanted := make(map[int64]int, len(in.Lines))
	var order []int64
	for _, l := range in.Lines {
		if _, seen := wanted[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		wanted[l.ProductID] += l.Quantity
	}
	for _, id := range order {
		p, err := e.Products.GetByID(ctx, id)
		if err != nil {
			return storageErr(err, "product", id)
		}
		if p.StoreID != storeID {
			return apperr.NotFound("product", id)
		}
		if !p.Active {
			return apperr.Inactive("product", p.Name)
		}
		if p.TrackInventory && p.Stock < wanted[id] {
			e.Recorder.StockRejected()
			return apperr.InsufficientStock(p.Name, p.Stock, wanted[id])
		}
	}
	return nil
}

// Create validates in, then writes the sale, its lines, the stock decrements and
// their movements in one transaction.
func (e *Engine) Create(ctx context.Context, storeID, requestedBy int64, in CreateSaleInput) (*sales.Sale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Channel == "" {
		in.Channel = sales.ChannelInStore
	}
	if err := e.precheck(ctx, storeID, in); err != nil {
		return nil, err
	}

	lineSubs, subtotal, total := lineTotals(in)
	var (
		created *sales.Sale
		low     = map[int64]products.Product{}
	)
	err := e.Sales.InTx(ctx, func(ctx context.Context, tx sales.Tx) error {
		locked, err := lockProducts(ctx, tx, lineProductIDs(in.Lines))
		if err != nil {
			return err
		}

		var n int64
		if e.policy.StrictFolio {
			n, err = tx.NextFolio(ctx, storeID)
		} else {
			n, err = tx.CountSales(ctx, storeID)
			n++
		}
		if err != nil {
			return err
		}

		s := &sales.Sale{
			StoreID:         storeID,
			Folio:           e.folio(storeID, n),
			CustomerID:      in.CustomerID,
			PaymentMethodID: in.PaymentMethodID,
			CreatedBy:       requestedBy,
			Subtotal:        subtotal,
			Discount:        in.Discount,
			Tax:             in.Tax,
			Tip:             in.Tip,
			Total:           total,
			Status:          sales.StatusPending,
			Channel:         in.Channel,
		}
		if err := tx.InsertSale(ctx, s); err != nil {
			return err
		}

		for i, l := range in.Lines {
			line := &sales.Line{
				SaleID:    s.ID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				Discount:  l.Discount,
				Subtotal:  lineSubs[i],
			}
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
			s.Lines = append(s.Lines, *line)

			p := locked[l.ProductID]
			if !p.TrackInventory {
				continue
			}
			if p.Stock < l.Quantity {
				e.Recorder.StockRejected()
				return apperr.InsufficientStock(p.Name, p.Stock, l.Quantity)
			}
			after := p.Stock - l.Quantity
			if err := tx.SetStock(ctx, p.ID, after); err != nil {
				return err
			}
			if err := tx.AppendMovement(ctx, &inventory.Movement{
				ProductID:   p.ID,
				StoreID:     p.StoreID,
				Kind:        inventory.KindSale,
				Delta:       -l.Quantity,
				StockBefore: p.Stock,
				StockAfter:  after,
				Reason:      "Sale " + s.Folio,
				SaleID:      &s.ID,
				ActorID:     requestedBy,
			}); err != nil {
				return err
			}
			p.Stock = after
			low[p.ID] = *p
		}
		created = s
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "sale", 0)
	}
	e.Recorder.SaleCreated(string(in.Channel))

	// The sale is committed from here on; a failed re-read falls back to the written row.
	sale, err := e.Sales.GetByID(ctx, created.ID)
	if err != nil {
		e.Log.Error("re-read of created sale failed",
			"store_id", storeID, "sale_id", created.ID, "folio", created.Folio, "err", err)
		sale = created
	}

	var lowStock []products.Product
	for _, p := range low {
		if p.LowStock() {
			lowStock = append(lowStock, p)
		}
	}
	sort.Slice(lowStock, func(i, j int) bool { return lowStock[i].ID < lowStock[j].ID })
	e.afterCommit(ctx, storeID, events.SaleCreated(*sale), lowStock...)
	return sale, nil
}

// Complete moves a pending sale to completed. Inventory is untouched.
func (e *Engine) Complete(ctx context.Context, saleID int64) (*sales.Sale, error) {
	err := e.Sales.InTx(ctx, func(ctx context.Context, tx sales.Tx) error {
		s, err := tx.LockSale(ctx, saleID)
		if err != nil {
			return storageErr(err, "sale", saleID)
		}
		if s.Status != sales.StatusPending {
			return apperr.InvalidTransition(string(s.Status), string(sales.StatusCompleted))
		}
		return tx.SetStatus(ctx, saleID, sales.StatusCompleted)
	})
	if err != nil {
		return nil, storageErr(err, "sale", saleID)
	}
	e.Recorder.SaleTransition(string(sales.StatusCompleted))
	return e.notifyUpdated(ctx, saleID)
}

// Cancel restores stock for every tracked line and marks the sale cancelled.
func (e *Engine) Cancel(ctx context.Context, saleID, requestedBy int64) (*sales.Sale, error) {
	err := e.Sales.InTx(ctx, func(ctx context.Context, tx sales.Tx) error {
		s, err := tx.LockSale(ctx, saleID)
		if err != nil {
			return storageErr(err, "sale", saleID)
		}
		switch {
		case s.Status == sales.StatusCancelled:
			return apperr.InvalidTransition(string(s.Status), string(sales.StatusCancelled))
		case s.Status == sales.StatusCompleted && e.policy.ForbidCancelCompleted:
			return apperr.InvalidTransition(string(s.Status), string(sales.StatusCancelled))
		}

		ids := make([]int64, 0, len(s.Lines))
		for _, l := range s.Lines {
			ids = append(ids, l.ProductID)
		}
		locked, err := lockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		for _, l := range s.Lines {
			p := locked[l.ProductID]
			if !p.TrackInventory {
				continue
			}
			after := p.Stock + l.Quantity
			if err := tx.SetStock(ctx, p.ID, after); err != nil {
				return err
			}
			if err := tx.AppendMovement(ctx, &inventory.Movement{
				ProductID:   p.ID,
				StoreID:     p.StoreID,
				Kind:        inventory.KindEntry,
				Delta:       l.Quantity,
				StockBefore: p.Stock,
				StockAfter:  after,
				Reason:      "Sale " + s.Folio + " cancelled",
				SaleID:      &s.ID,
				ActorID:     requestedBy,
			}); err != nil {
				return err
			}
			p.Stock = after
		}
		return tx.SetStatus(ctx, saleID, sales.StatusCancelled)
	})
	if err != nil {
		return nil, storageErr(err, "sale", saleID)
	}
	e.Recorder.SaleTransition(string(sales.StatusCancelled))
	return e.notifyUpdated(ctx, saleID)
}

func (e *Engine) notifyUpdated(ctx context.Context, saleID int64) (*sales.Sale, error) {
	sale, err := e.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, storageErr(err, "sale", saleID)
	}
	e.afterCommit(ctx, sale.StoreID, events.SaleUpdated(*sale))
	return sale, nil
}

func (e *Engine) Get(ctx context.Context, saleID int64) (*sales.Sale, error) {
	s, err := e.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, storageErr(err, "sale", saleID)
	}
	return s, nil
}

func (e *Engine) List(ctx context.Context, f sales.Filter) ([]sales.Sale, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.ValidationFields("invalid filter", map[string]string{"status": "oneof"})
	}
	if f.Channel != "" && !f.Channel.Valid() {
		return nil, apperr.ValidationFields("invalid filter", map[string]string{"channel": "oneof"})
	}
	out, err := e.Sales.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if out == nil {
		out = []sales.Sale{}
	}
	return out, nil
}

// afterCommit publishes ev, then refreshes statistics. It runs once the transaction
// is durable and never fails the caller.
func (e *Engine) afterCommit(ctx context.Context, storeID int64, ev events.Event, low ...products.Product) {
	e.publish(ev)
	e.refresh(ctx, storeID, low)
}

func (e *Engine) publish(ev events.Event) {
	if e.Publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.Log.Error("event publish panicked", "store_id", ev.StoreID, "event_type", ev.Type, "panic", r)
		}
	}()
	e.Publisher.Publish(ev)
}
