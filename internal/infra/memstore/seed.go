package memstore

import (
	"github.com/shopspring/decimal"

	"github.com/Spok95/tienda-pos/internal/domain/payments"
	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/staff"
	"github.com/Spok95/tienda-pos/internal/domain/stores"
)

// Demo is what SeedDemo created.
type Demo struct {
	Store    stores.Store
	Cashier  staff.Member
	Methods  []payments.Method
	Products []products.Product
}

// SeedDemo fills db with one store, a cashier, the default payment methods and a few products.
func SeedDemo(db *DB) Demo {
	var d Demo
	d.Store = db.AddStore(stores.Store{AccountID: 1, Name: "Tienda Centro", Active: true})
	db.AddStaff(staff.Member{StoreID: d.Store.ID, Name: "Dueño", Email: "owner@example.com", Role: staff.RoleOwner, Active: true})
	d.Cashier = db.AddStaff(staff.Member{StoreID: d.Store.ID, Name: "Caja 1", Email: "caja1@example.com", Role: staff.RoleCashier, Active: true})

	for _, m := range []payments.Method{
		{Name: "Efectivo", Code: "cash", Active: true},
		{Name: "Tarjeta", Code: "card", Active: true},
		{Name: "Transferencia", Code: "transfer", Active: true},
	} {
		d.Methods = append(d.Methods, db.AddPaymentMethod(m))
	}

	for _, p := range []products.Product{
		{Name: "Café 500g", SKU: "CAF-500", Barcode: "7501000000011", Price: decimal.RequireFromString("89.90"),
			CostPrice: decimal.RequireFromString("55"), TrackInventory: true, Stock: 40, StockMin: 5, StockMax: 100},
		{Name: "Azúcar 1kg", SKU: "AZU-1K", Barcode: "7501000000028", Price: decimal.RequireFromString("32.50"),
			CostPrice: decimal.RequireFromString("21"), TrackInventory: true, Stock: 6, StockMin: 5, StockMax: 60},
		{Name: "Bolsa reutilizable", SKU: "BOL-01", Price: decimal.RequireFromString("15"),
			CostPrice: decimal.RequireFromString("6")},
	} {
		p.StoreID = d.Store.ID
		p.Active = true
		d.Products = append(d.Products, db.AddProduct(p))
	}
	return d
}
