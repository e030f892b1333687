package cart

import (
	"context"
	"errors"
	"time"
)

type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Lines     []Line    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

var (
	ErrItemNotFound    = errors.New("item not in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrOutOfStock      = errors.New("insufficient stock")
	ErrProductInactive = errors.New("product not available")
)

// Store owns the cart's read-check-write sequences: each mutating method is a
// single transaction over the cart line and the product row it validates
// against. Carts never reserve stock; the checks here are advisory and are
// repeated at order-creation time.
type Store interface {
	// Get lazily creates the user's cart on first access.
	Get(ctx context.Context, userID string) (*Cart, error)
	// AddItem merges the quantity into an existing line for the product, or
	// creates one. Fails with catalog.ErrNotFound, ErrProductInactive, or
	// ErrOutOfStock (merged quantity exceeds current stock).
	AddItem(ctx context.Context, userID, productID string, qty int) error
	// UpdateQuantity sets an existing line to qty. Fails with
	// ErrInvalidQuantity, ErrItemNotFound, or ErrOutOfStock.
	UpdateQuantity(ctx context.Context, userID, productID string, qty int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
