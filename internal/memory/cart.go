package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tfinproject/shop-api/internal/cart"
	"github.com/tfinproject/shop-api/internal/catalog"
)

type CartStore struct{ db *DB }

func (s *CartStore) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return cloneCart(s.getOrCreate(userID)), nil
}

// callers hold db.mu
func (s *CartStore) getOrCreate(userID string) *cart.Cart {
	if c, ok := s.db.carts[userID]; ok {
		return c
	}
	c := &cart.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.db.carts[userID] = c
	return c
}

func (s *CartStore) AddItem(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return cart.ErrInvalidQuantity
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	if !p.IsActive {
		return cart.ErrProductInactive
	}

	c := s.getOrCreate(userID)
	existing := 0
	idx := -1
	for i, l := range c.Lines {
		if l.ProductID == productID {
			existing, idx = l.Quantity, i
			break
		}
	}

	merged := existing + qty
	if p.Stock < merged {
		return cart.ErrOutOfStock
	}
	if idx >= 0 {
		c.Lines[idx].Quantity = merged
	} else {
		c.Lines = append(c.Lines, cart.Line{ProductID: productID, Quantity: merged})
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (s *CartStore) UpdateQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return cart.ErrInvalidQuantity
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	if p.Stock < qty {
		return cart.ErrOutOfStock
	}

	c := s.getOrCreate(userID)
	for i, l := range c.Lines {
		if l.ProductID == productID {
			c.Lines[i].Quantity = qty
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (s *CartStore) RemoveItem(ctx context.Context, userID, productID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.getOrCreate(userID)
	for i, l := range c.Lines {
		if l.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.getOrCreate(userID)
	c.Lines = nil
	c.UpdatedAt = time.Now()
	return nil
}
