package cart

import (
	"context"
	"testing"

	"github.com/Micevski239/dysnomia-website-sub001/internal/domain"
	"github.com/Micevski239/dysnomia-website-sub001/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFacade(t *testing.T, table pricing.Table) (*Facade, *Store) {
	t.Helper()
	store := LoadStore(context.Background(), newMockStorage(), testKey, zap.NewNop())
	return NewFacade(store, table), store
}

func addInput(productID string, printType domain.PrintType, sizeID string, quantity int) AddInput {
	return AddInput{
		ProductID:    productID,
		ProductTitle: "Sunset " + productID,
		ProductSlug:  "sunset-" + productID,
		ImageURL:     "https://cdn.example.com/" + productID + ".jpg",
		PrintType:    printType,
		SizeID:       sizeID,
		Quantity:     quantity,
	}
}

func TestAddToCart_PricesAndLabels(t *testing.T) {
	f, _ := newTestFacade(t, pricing.Default())

	snap, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 2))
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)

	item := snap.Items[0]
	assert.Equal(t, int64(2640), item.UnitPrice)
	assert.Equal(t, "50 × 70 cm", item.SizeLabel)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "sunset-p1", item.ProductSlug)
}

func TestAddToCart_DefaultsToOne(t *testing.T) {
	f, _ := newTestFacade(t, pricing.Default())

	snap, err := f.AddToCart(addInput("p1", domain.PrintTypeRoll, "30x40", 0))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ItemCount)
}

func TestAddToCart_Rejects(t *testing.T) {
	f, store := newTestFacade(t, pricing.Default())

	_, err := f.AddToCart(addInput("p1", domain.PrintType("poster"), "50x70", 1))
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "1x1", 1))
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = f.AddToCart(addInput("", domain.PrintTypeCanvas, "50x70", 1))
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", -1))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.True(t, store.Snapshot().Empty())
}

func TestAddToCart_CapsRowQuantity(t *testing.T) {
	f, store := newTestFacade(t, pricing.Default())

	_, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", MaxQuantity+1))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 60))
	require.NoError(t, err)
	_, err = f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 40))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 60, store.Snapshot().ItemCount)

	snap, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 39))
	require.NoError(t, err)
	require.Equal(t, MaxQuantity, snap.Items[0].Quantity)

	snap = f.IncrementQuantity(snap.Items[0])
	assert.Equal(t, MaxQuantity, snap.Items[0].Quantity)

	snap = f.DecrementQuantity(snap.Items[0])
	assert.Equal(t, MaxQuantity-1, snap.Items[0].Quantity)
}

func TestAddToCart_UnpricedVariantRejected(t *testing.T) {
	table := pricing.Default()
	table.Set(domain.PrintTypeCanvas, "50x70", 0)
	f, _ := newTestFacade(t, table)

	_, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 1))
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestAddToCart_PriceSnapshotImmutable(t *testing.T) {
	table := pricing.Default()
	f, _ := newTestFacade(t, table)

	_, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 1))
	require.NoError(t, err)

	table.Set(domain.PrintTypeCanvas, "50x70", 9999)

	snap, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 1))
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(2640), snap.Items[0].UnitPrice)
	assert.Equal(t, 2, snap.Items[0].Quantity)
}

func TestIncrementDecrement(t *testing.T) {
	f, _ := newTestFacade(t, pricing.Default())

	snap, err := f.AddToCart(addInput("p1", domain.PrintTypeFramed, "70x100", 1))
	require.NoError(t, err)
	item := snap.Items[0]

	snap = f.IncrementQuantity(item)
	assert.Equal(t, 2, snap.Items[0].Quantity)

	snap = f.DecrementQuantity(item)
	assert.Equal(t, 1, snap.Items[0].Quantity)

	snap = f.DecrementQuantity(item)
	assert.Empty(t, snap.Items)
	assert.False(t, f.IsInCart("p1", domain.PrintTypeFramed, "70x100"))

	// stepping an item that is not in the cart changes nothing
	snap = f.IncrementQuantity(item)
	assert.Empty(t, snap.Items)
}

func TestDecrement_NeverLeavesZeroRows(t *testing.T) {
	f, _ := newTestFacade(t, pricing.Default())

	snap, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "30x40", 3))
	require.NoError(t, err)
	item := snap.Items[0]

	for i := 0; i < 5; i++ {
		snap = f.DecrementQuantity(item)
		for _, it := range snap.Items {
			assert.GreaterOrEqual(t, it.Quantity, 1)
		}
	}
	assert.Empty(t, snap.Items)
}

func TestRemoveAndIsInCart(t *testing.T) {
	f, _ := newTestFacade(t, pricing.Default())

	_, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "50x70", 1))
	require.NoError(t, err)
	snap, err := f.AddToCart(addInput("p1", domain.PrintTypeCanvas, "30x40", 1))
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)

	assert.True(t, f.IsInCart("p1", domain.PrintTypeCanvas, "50x70"))
	assert.False(t, f.IsInCart("p1", domain.PrintTypeRoll, "50x70"))

	snap = f.RemoveFromCart(snap.Items[0])
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "30x40", snap.Items[0].SizeID)
	assert.False(t, f.IsInCart("p1", domain.PrintTypeCanvas, "50x70"))
}

func TestEndToEndTotals(t *testing.T) {
	f, _ := newTestFacade(t, pricing.Default())

	_, err := f.AddToCart(addInput("c", domain.PrintTypeCanvas, "50x70", 2))
	require.NoError(t, err)
	snap, err := f.AddToCart(addInput("f", domain.PrintTypeFramed, "70x100", 1))
	require.NoError(t, err)

	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, int64(11430), snap.TotalPrice)
}
