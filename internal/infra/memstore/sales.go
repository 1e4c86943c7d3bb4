package memstore

import (
	"context"
	"sort"

	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
)

func sortBy[T any](s []T, less func(a, b T) bool) {
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
}

// InTx holds the store lock for the whole of fn, so every row is effectively locked.
func (v Sales) InTx(ctx context.Context, fn func(ctx context.Context, tx sales.Tx) error) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := v.db.snapshot()
	if err := fn(ctx, &memTx{db: v.db}); err != nil {
		v.db.restore(snap)
		return err
	}
	return nil
}

type memTx struct{ db *DB }

func (t *memTx) LockProduct(_ context.Context, id int64) (*products.Product, error) {
	p, ok := t.db.products[id]
	if !ok {
		return nil, products.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) SetStock(_ context.Context, productID int64, stock int) error {
	p, ok := t.db.products[productID]
	if !ok {
		return products.ErrNotFound
	}
	if p.TrackInventory && stock < 0 {
		return products.ErrNegativeStock
	}
	p.Stock = stock
	p.UpdatedAt = t.db.now()
	t.db.products[productID] = p
	return nil
}

func (t *memTx) AppendMovement(_ context.Context, m *inventory.Movement) error {
	m.ID = t.db.nextID()
	m.CreatedAt = t.db.now()
	t.db.movements = append(t.db.movements, *m)
	return nil
}

func (t *memTx) CountSales(_ context.Context, storeID int64) (int64, error) {
	var n int64
	for _, s := range t.db.sales {
		if s.StoreID == storeID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) NextFolio(ctx context.Context, storeID int64) (int64, error) {
	last, ok := t.db.folios[storeID]
	if !ok {
		n, _ := t.CountSales(ctx, storeID)
		last = n
	}
	last++
	t.db.folios[storeID] = last
	return last, nil
}

func (t *memTx) InsertSale(_ context.Context, s *sales.Sale) error {
	s.ID = t.db.nextID()
	s.CreatedAt = t.db.now()
	s.UpdatedAt = s.CreatedAt
	row := *s
	row.Lines = nil
	t.db.sales[s.ID] = row
	return nil
}

func (t *memTx) InsertLine(_ context.Context, l *sales.Line) error {
	s, ok := t.db.sales[l.SaleID]
	if !ok {
		return sales.ErrNotFound
	}
	l.ID = t.db.nextID()
	s.Lines = append(append([]sales.Line(nil), s.Lines...), *l)
	t.db.sales[l.SaleID] = s
	return nil
}

func (t *memTx) LockSale(_ context.Context, id int64) (*sales.Sale, error) {
	s, ok := t.db.sales[id]
	if !ok {
		return nil, sales.ErrNotFound
	}
	s.Lines = append([]sales.Line(nil), s.Lines...)
	return &s, nil
}

func (t *memTx) SetStatus(_ context.Context, id int64, status sales.Status) error {
	s, ok := t.db.sales[id]
	if !ok {
		return sales.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = t.db.now()
	t.db.sales[id] = s
	return nil
}

// withRelations fills names the way the SQL joins do. Caller holds the lock.
func (db *DB) withRelations(s sales.Sale, lines bool) sales.Sale {
	s.StoreName = db.stores[s.StoreID].Name
	s.PaymentMethodName = db.methods[s.PaymentMethodID].Name
	s.StaffName = db.staff[s.CreatedBy].Name
	s.CustomerName = ""
	if s.CustomerID != nil {
		s.CustomerName = db.customers[*s.CustomerID].Name
	}
	if !lines {
		s.Lines = nil
		return s
	}
	out := make([]sales.Line, len(s.Lines))
	for i, l := range s.Lines {
		p := db.products[l.ProductID]
		l.ProductName, l.ProductSKU = p.Name, p.SKU
		out[i] = l
	}
	s.Lines = out
	return s
}

func (v Sales) GetByID(_ context.Context, id int64) (*sales.Sale, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	s, ok := v.db.sales[id]
	if !ok {
		return nil, sales.ErrNotFound
	}
	s = v.db.withRelations(s, true)
	return &s, nil
}

func (v Sales) List(_ context.Context, f sales.Filter) ([]sales.Sale, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()

	var out []sales.Sale
	for _, s := range v.db.sales {
		switch {
		case s.StoreID != f.StoreID,
			f.From != nil && s.CreatedAt.Before(*f.From),
			f.To != nil && !s.CreatedAt.Before(*f.To),
			f.Status != "" && s.Status != f.Status,
			f.Channel != "" && s.Channel != f.Channel,
			f.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *f.CustomerID):
			continue
		}
		out = append(out, v.db.withRelations(s, false))
	}
	sortBy(out, func(a, b sales.Sale) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
