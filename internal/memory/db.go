// Package memory holds in-memory implementations of the repository
// interfaces. One mutex guards the whole store, which gives every operation
// the same all-or-nothing semantics the SQL transactions provide.
package memory

import (
	"sync"

	"github.com/tfinproject/shop-api/internal/cart"
	"github.com/tfinproject/shop-api/internal/catalog"
	"github.com/tfinproject/shop-api/internal/orders"
)

var (
	_ catalog.Repository = (*Catalog)(nil)
	_ cart.Store         = (*CartStore)(nil)
	_ orders.Repository  = (*OrderRepo)(nil)
)

type DB struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
	carts    map[string]*cart.Cart // keyed by user id
	orders   map[string]*orders.Order
}

func NewDB() *DB {
	return &DB{
		products: make(map[string]*catalog.Product),
		carts:    make(map[string]*cart.Cart),
		orders:   make(map[string]*orders.Order),
	}
}

func (d *DB) SeedProducts(ps ...catalog.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range ps {
		p := ps[i]
		d.products[p.ID] = &p
	}
}

// Stock reads a product's current stock, for assertions and projections.
func (d *DB) Stock(productID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.products[productID]; ok {
		return p.Stock
	}
	return 0
}

func (d *DB) Catalog() *Catalog  { return &Catalog{db: d} }
func (d *DB) Carts() *CartStore  { return &CartStore{db: d} }
func (d *DB) Orders() *OrderRepo { return &OrderRepo{db: d} }

func cloneProduct(p *catalog.Product) *catalog.Product {
	c := *p
	return &c
}

func cloneCart(c *cart.Cart) *cart.Cart {
	out := *c
	out.Lines = append([]cart.Line(nil), c.Lines...)
	return &out
}

func cloneOrder(o *orders.Order) *orders.Order {
	out := *o
	out.Items = append([]orders.Line(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		out.PaidAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		out.CancelledAt = &t
	}
	return &out
}
