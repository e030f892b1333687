package memory

import (
	"context"
	"sort"

	"github.com/tfinproject/shop-api/internal/catalog"
)

type Catalog struct{ db *DB }

func (c *Catalog) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	p, ok := c.db.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (c *Catalog) List(ctx context.Context) ([]catalog.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	var out []catalog.Product
	for _, p := range c.db.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
