// Package memstore is an in-process implementation of the repositories, used by the
// memory storage driver and by tests. Transactions are serialized behind one mutex and
// roll back by restoring a snapshot.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Spok95/tienda-pos/internal/domain/customers"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/payments"
	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/domain/staff"
	"github.com/Spok95/tienda-pos/internal/domain/stores"
)

type DB struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	stores    map[int64]stores.Store
	staff     map[int64]staff.Member
	methods   map[int64]payments.Method
	customers map[int64]customers.Customer
	products  map[int64]products.Product
	sales     map[int64]sales.Sale
	movements []inventory.Movement
	folios    map[int64]int64
}

func New() *DB {
	return &DB{
		now:       time.Now,
		stores:    make(map[int64]stores.Store),
		staff:     make(map[int64]staff.Member),
		methods:   make(map[int64]payments.Method),
		customers: make(map[int64]customers.Customer),
		products:  make(map[int64]products.Product),
		sales:     make(map[int64]sales.Sale),
		folios:    make(map[int64]int64),
	}
}

// SetClock replaces the timestamp source for rows written from now on.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	db.now = now
	db.mu.Unlock()
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

type snapshot struct {
	seq       int64
	products  map[int64]products.Product
	sales     map[int64]sales.Sale
	movements int
	folios    map[int64]int64
}

func (db *DB) snapshot() snapshot {
	return snapshot{
		seq:       db.seq,
		products:  maps.Clone(db.products),
		sales:     maps.Clone(db.sales),
		movements: len(db.movements),
		folios:    maps.Clone(db.folios),
	}
}

func (db *DB) restore(s snapshot) {
	db.seq = s.seq
	db.products = s.products
	db.sales = s.sales
	db.movements = db.movements[:s.movements]
	db.folios = s.folios
}

/* Seeding */

func (db *DB) AddStore(s stores.Store) stores.Store {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == 0 {
		s.ID = db.nextID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = db.now()
	}
	db.stores[s.ID] = s
	return s
}

func (db *DB) AddStaff(m staff.Member) staff.Member {
	db.mu.Lock()
	defer db.mu.Unlock()
	if m.ID == 0 {
		m.ID = db.nextID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = db.now()
		m.UpdatedAt = m.CreatedAt
	}
	db.staff[m.ID] = m
	return m
}

func (db *DB) AddPaymentMethod(m payments.Method) payments.Method {
	db.mu.Lock()
	defer db.mu.Unlock()
	if m.ID == 0 {
		m.ID = db.nextID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = db.now()
	}
	db.methods[m.ID] = m
	return m
}

func (db *DB) AddCustomer(c customers.Customer) customers.Customer {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.ID == 0 {
		c.ID = db.nextID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.now()
	}
	db.customers[c.ID] = c
	return c
}

func (db *DB) AddProduct(p products.Product) products.Product {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == 0 {
		p.ID = db.nextID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = db.now()
		p.UpdatedAt = p.CreatedAt
	}
	db.products[p.ID] = p
	return p
}

// AddSale stores an already-built sale, e.g. imported history.
func (db *DB) AddSale(s sales.Sale) sales.Sale {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == 0 {
		s.ID = db.nextID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = db.now()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	for i := range s.Lines {
		s.Lines[i].SaleID = s.ID
		if s.Lines[i].ID == 0 {
			s.Lines[i].ID = db.nextID()
		}
	}
	db.sales[s.ID] = s
	return s
}

// SetProductActive flips a product's active flag, as the catalog service would.
func (db *DB) SetProductActive(id int64, active bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.products[id]; ok {
		p.Active = active
		db.products[id] = p
	}
}

func (db *DB) SetStaffActive(id int64, active bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if m, ok := db.staff[id]; ok {
		m.Active = active
		db.staff[id] = m
	}
}

// SalesCount and MovementsCount expose table sizes for assertions.
func (db *DB) SalesCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.sales)
}

func (db *DB) MovementsCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.movements)
}

/* Views */

type (
	Stores    struct{ db *DB }
	Staff     struct{ db *DB }
	Payments  struct{ db *DB }
	Customers struct{ db *DB }
	Products  struct{ db *DB }
	Sales     struct{ db *DB }
	Movements struct{ db *DB }
	Stats     struct{ db *DB }
)

func (db *DB) Stores() Stores       { return Stores{db} }
func (db *DB) Staff() Staff         { return Staff{db} }
func (db *DB) Payments() Payments   { return Payments{db} }
func (db *DB) Customers() Customers { return Customers{db} }
func (db *DB) Products() Products   { return Products{db} }
func (db *DB) Sales() Sales         { return Sales{db} }
func (db *DB) Movements() Movements { return Movements{db} }
func (db *DB) Stats() Stats         { return Stats{db} }

func (v Stores) GetByID(_ context.Context, id int64) (*stores.Store, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	s, ok := v.db.stores[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	return &s, nil
}

func (v Staff) GetByID(_ context.Context, id int64) (*staff.Member, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	m, ok := v.db.staff[id]
	if !ok {
		return nil, staff.ErrNotFound
	}
	return &m, nil
}

func (v Payments) GetByID(_ context.Context, id int64) (*payments.Method, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	m, ok := v.db.methods[id]
	if !ok {
		return nil, payments.ErrNotFound
	}
	return &m, nil
}

func (v Payments) ListActive(_ context.Context) ([]payments.Method, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	var out []payments.Method
	for _, m := range v.db.methods {
		if m.Active {
			out = append(out, m)
		}
	}
	sortBy(out, func(a, b payments.Method) bool { return a.Name < b.Name })
	return out, nil
}

func (v Customers) GetByID(_ context.Context, id int64) (*customers.Customer, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	c, ok := v.db.customers[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	return &c, nil
}

func (v Customers) Create(_ context.Context, storeID int64, in customers.NewCustomer) (*customers.Customer, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	c := customers.Customer{
		ID:        v.db.nextID(),
		StoreID:   storeID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedAt: v.db.now(),
	}
	v.db.customers[c.ID] = c
	return &c, nil
}

func (v Customers) Summary(_ context.Context, id int64) (*customers.Summary, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	c, ok := v.db.customers[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	s := customers.Summary{Customer: c}
	for _, sale := range v.db.sales {
		if sale.CustomerID != nil && *sale.CustomerID == id && sale.Status == sales.StatusCompleted {
			s.PurchasesTotal = s.PurchasesTotal.Add(sale.Total)
			s.PurchasesCount++
		}
	}
	return &s, nil
}

func (v Products) GetByID(_ context.Context, id int64) (*products.Product, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	p, ok := v.db.products[id]
	if !ok {
		return nil, products.ErrNotFound
	}
	return &p, nil
}

func (v Products) ListByStore(_ context.Context, storeID int64, onlyActive bool) ([]products.Product, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	var out []products.Product
	for _, p := range v.db.products {
		if p.StoreID == storeID && (!onlyActive || p.Active) {
			out = append(out, p)
		}
	}
	sortBy(out, func(a, b products.Product) bool { return a.Name < b.Name })
	return out, nil
}

func (v Movements) ListByProduct(_ context.Context, productID int64, limit int) ([]inventory.Movement, error) {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	var out []inventory.Movement
	for i := len(v.db.movements) - 1; i >= 0; i-- {
		if m := v.db.movements[i]; m.ProductID == productID {
			out = append(out, m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
