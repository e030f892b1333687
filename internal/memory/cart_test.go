package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfinproject/shop-api/internal/cart"
	"github.com/tfinproject/shop-api/internal/catalog"
)

func newCartDB(t *testing.T) *DB {
	t.Helper()
	db := NewDB()
	db.SeedProducts(
		catalog.Product{ID: "p1", Name: "Headphones", Price: 99.99, Stock: 10, IsActive: true},
		catalog.Product{ID: "p2", Name: "Laptop", Price: 1299.99, Stock: 2, IsActive: true},
		catalog.Product{ID: "p3", Name: "Discontinued", Price: 5.00, Stock: 4, IsActive: false},
	)
	return db
}

func TestCartStore_GetLazyInit(t *testing.T) {
	db := newCartDB(t)
	s := db.Carts()

	c, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "u1", c.UserID)
	assert.Empty(t, c.Lines)

	again, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
}

func TestCartStore_AddItemMergesLines(t *testing.T) {
	db := newCartDB(t)
	s := db.Carts()

	require.NoError(t, s.AddItem(context.Background(), "u1", "p1", 2))
	require.NoError(t, s.AddItem(context.Background(), "u1", "p1", 3))

	c, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1, "one line per product, merged")
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestCartStore_AddItemValidation(t *testing.T) {
	db := newCartDB(t)
	s := db.Carts()
	ctx := context.Background()

	assert.ErrorIs(t, s.AddItem(ctx, "u1", "missing", 1), catalog.ErrNotFound)
	assert.ErrorIs(t, s.AddItem(ctx, "u1", "p3", 1), cart.ErrProductInactive)
	assert.ErrorIs(t, s.AddItem(ctx, "u1", "p2", 3), cart.ErrOutOfStock)

	// merged quantity exceeding stock is also rejected, cart unchanged
	require.NoError(t, s.AddItem(ctx, "u1", "p2", 2))
	assert.ErrorIs(t, s.AddItem(ctx, "u1", "p2", 1), cart.ErrOutOfStock)

	c, _ := s.Get(ctx, "u1")
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestCartStore_UpdateQuantity(t *testing.T) {
	db := newCartDB(t)
	s := db.Carts()
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, "u1", "p1", 2))

	assert.ErrorIs(t, s.UpdateQuantity(ctx, "u1", "p1", 0), cart.ErrInvalidQuantity)
	assert.ErrorIs(t, s.UpdateQuantity(ctx, "u1", "p1", 11), cart.ErrOutOfStock)
	assert.ErrorIs(t, s.UpdateQuantity(ctx, "u1", "p2", 1), cart.ErrItemNotFound)

	require.NoError(t, s.UpdateQuantity(ctx, "u1", "p1", 7))
	c, _ := s.Get(ctx, "u1")
	assert.Equal(t, 7, c.Lines[0].Quantity)
}

func TestCartStore_RemoveAndClear(t *testing.T) {
	db := newCartDB(t)
	s := db.Carts()
	ctx := context.Background()

	assert.ErrorIs(t, s.RemoveItem(ctx, "u1", "p1"), cart.ErrItemNotFound)

	require.NoError(t, s.AddItem(ctx, "u1", "p1", 1))
	require.NoError(t, s.AddItem(ctx, "u1", "p2", 1))
	require.NoError(t, s.RemoveItem(ctx, "u1", "p1"))

	c, _ := s.Get(ctx, "u1")
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p2", c.Lines[0].ProductID)

	require.NoError(t, s.Clear(ctx, "u1"))
	c, _ = s.Get(ctx, "u1")
	assert.Empty(t, c.Lines)
}

func TestCartStore_CartsArePerUser(t *testing.T) {
	db := newCartDB(t)
	s := db.Carts()
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, "u1", "p1", 1))
	require.NoError(t, s.AddItem(ctx, "u2", "p1", 4))

	c1, _ := s.Get(ctx, "u1")
	c2, _ := s.Get(ctx, "u2")
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, 1, c1.Lines[0].Quantity)
	assert.Equal(t, 4, c2.Lines[0].Quantity)
}
