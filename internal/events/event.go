// Package events fans out domain events to per-store subscribers and to external sinks.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/domain/stats"
)

type Type string

const (
	TypeSaleCreated       Type = "sale.created"
	TypeSaleUpdated       Type = "sale.updated"
	TypeStatisticsUpdated Type = "statistics.updated"
	TypeLowStock          Type = "product.low_stock"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSaleCreated, TypeSaleUpdated, TypeStatisticsUpdated, TypeLowStock:
		return true
	}
	return false
}

// Event carries exactly one payload, selected by Type.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	StoreID    int64             `json:"store_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Sale       *sales.Sale       `json:"sale,omitempty"`
	Statistics *stats.Snapshot   `json:"statistics,omitempty"`
	Product    *products.Product `json:"product,omitempty"`
}

func newEvent(t Type, storeID int64) Event {
	return Event{ID: uuid.New(), Type: t, StoreID: storeID, OccurredAt: time.Now().UTC()}
}

func SaleCreated(s sales.Sale) Event {
	e := newEvent(TypeSaleCreated, s.StoreID)
	e.Sale = &s
	return e
}

func SaleUpdated(s sales.Sale) Event {
	e := newEvent(TypeSaleUpdated, s.StoreID)
	e.Sale = &s
	return e
}

func StatisticsUpdated(snap stats.Snapshot) Event {
	e := newEvent(TypeStatisticsUpdated, snap.StoreID)
	e.Statistics = &snap
	return e
}

func LowStock(p products.Product) Event {
	e := newEvent(TypeLowStock, p.StoreID)
	e.Product = &p
	return e
}
