package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/events"
)

func TestAdjustKinds(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.product("A", 5, 1, true)
	ctx := context.Background()

	mv, err := f.eng.Adjust(ctx, f.store.ID, a.ID, f.cashier.ID, AdjustInput{Kind: inventory.KindEntry, Quantity: 4, Reason: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 4, mv.Delta)
	assert.Equal(t, 5, mv.StockBefore)
	assert.Equal(t, 9, mv.StockAfter)
	assert.Nil(t, mv.SaleID)

	mv, err = f.eng.Adjust(ctx, f.store.ID, a.ID, f.cashier.ID, AdjustInput{Kind: inventory.KindExit, Quantity: 2, Reason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, -2, mv.Delta)
	assert.Equal(t, 7, f.stock(t, a.ID))

	mv, err = f.eng.Adjust(ctx, f.store.ID, a.ID, f.cashier.ID, AdjustInput{Kind: inventory.KindAdjustment, Quantity: 3, Reason: "count"})
	require.NoError(t, err)
	assert.Equal(t, -4, mv.Delta)
	assert.Equal(t, 3, mv.StockAfter)
	assert.Equal(t, 3, f.stock(t, a.ID))

	hist, err := f.eng.History(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, inventory.KindAdjustment, hist[0].Kind)
	assert.Equal(t, inventory.KindEntry, hist[2].Kind)
}

func TestAdjustExitCannotGoNegative(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.product("A", 2, 0, true)

	_, err := f.eng.Adjust(context.Background(), f.store.ID, a.ID, f.cashier.ID, AdjustInput{Kind: inventory.KindExit, Quantity: 3})
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
	assert.Equal(t, 2, f.stock(t, a.ID))
	assert.Zero(t, f.db.MovementsCount())
}

func TestAdjustRejections(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.product("A", 2, 0, true)
	ctx := context.Background()

	_, err := f.eng.Adjust(ctx, f.store.ID, a.ID, f.cashier.ID, AdjustInput{Kind: "steal", Quantity: 1})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = f.eng.Adjust(ctx, f.store.ID, a.ID, f.cashier.ID, AdjustInput{Kind: inventory.KindEntry})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = f.eng.Adjust(ctx, f.store.ID+100, a.ID, f.cashier.ID, AdjustInput{Kind: inventory.KindEntry, Quantity: 1})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.eng.History(ctx, 9999, 0)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestAdjustPublishesLowStock(t *testing.T) {
	f := newFixture(t, Policy{})
	a := f.product("A", 10, 3, true)
	sub := f.hub.Subscribe(f.store.ID, events.TypeLowStock)
	defer sub.Close()

	_, err := f.eng.Adjust(context.Background(), f.store.ID, a.ID, f.cashier.ID, AdjustInput{Kind: inventory.KindAdjustment, Quantity: 3})
	require.NoError(t, err)

	got := drain(sub)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].Product.ID)
	assert.Equal(t, 3, got[0].Product.Stock)
}
