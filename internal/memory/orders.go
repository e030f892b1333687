package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tfinproject/shop-api/internal/catalog"
	"github.com/tfinproject/shop-api/internal/orders"
)

type OrderRepo struct{ db *DB }

func (r *OrderRepo) CreateFromCart(ctx context.Context, userID string, shipping orders.ShippingInfo) (*orders.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.carts[userID]
	if !ok || len(c.Lines) == 0 {
		return nil, orders.ErrEmptyCart
	}

	// validate everything before writing anything
	var lines []orders.Line
	total := 0.0
	for _, l := range c.Lines {
		p, ok := r.db.products[l.ProductID]
		if !ok {
			return nil, catalog.ErrNotFound
		}
		if p.Stock < l.Quantity {
			return nil, &orders.InsufficientStockError{ProductName: p.Name}
		}
		lines = append(lines, orders.Line{
			ID:          uuid.NewString(),
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			UnitPrice:   p.Price,
		})
		total += p.Price * float64(l.Quantity)
	}

	o := &orders.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           lines,
		TotalAmount:     orders.Round2(total),
		Status:          orders.StatusPending,
		ShippingAddress: shipping.Address,
		ShippingCity:    shipping.City,
		ShippingCountry: shipping.Country,
		ShippingZipCode: shipping.ZipCode,
		Notes:           shipping.Notes,
		CreatedAt:       time.Now(),
	}
	r.db.orders[o.ID] = o
	c.Lines = nil
	return cloneOrder(o), nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id string) (*orders.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []orders.Order
	for _, o := range r.db.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OrderRepo) FindByTransactionID(ctx context.Context, transactionID string) (*orders.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o := r.byTransaction(transactionID)
	if o == nil {
		return nil, orders.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

// callers hold db.mu
func (r *OrderRepo) byTransaction(transactionID string) *orders.Order {
	if transactionID == "" {
		return nil
	}
	for _, o := range r.db.orders {
		if o.PaymentTransactionID == transactionID {
			return o
		}
	}
	return nil
}

func (r *OrderRepo) MarkPaymentInitiated(ctx context.Context, orderID, transactionID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if o.Status != orders.StatusPending {
		return orders.ErrInvalidState
	}
	o.Status = orders.StatusPaymentInitiated
	o.PaymentTransactionID = transactionID
	return nil
}

func (r *OrderRepo) Settle(ctx context.Context, transactionID string) (*orders.Order, []orders.StockClamp, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	o := r.byTransaction(transactionID)
	if o == nil {
		return nil, nil, false, orders.ErrOrderNotFound
	}
	if o.Status != orders.StatusPaymentInitiated {
		return cloneOrder(o), nil, false, nil
	}

	now := time.Now()
	o.Status = orders.StatusPaid
	o.PaidAt = &now

	var clamps []orders.StockClamp
	for _, l := range o.Items {
		p, ok := r.db.products[l.ProductID]
		if !ok {
			continue
		}
		dec := l.Quantity
		if p.Stock < dec {
			clamps = append(clamps, orders.StockClamp{
				ProductID: p.ID, ProductName: p.Name,
				Requested: l.Quantity, Available: p.Stock,
			})
			dec = p.Stock
		}
		p.Stock -= dec
	}
	return cloneOrder(o), clamps, true, nil
}

func (r *OrderRepo) Reject(ctx context.Context, transactionID, reason string) (*orders.Order, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	o := r.byTransaction(transactionID)
	if o == nil {
		return nil, false, orders.ErrOrderNotFound
	}
	if o.Status != orders.StatusPaymentInitiated {
		return cloneOrder(o), false, nil
	}

	now := time.Now()
	o.Status = orders.StatusCancelled
	o.CancelledAt = &now
	o.Notes = reason
	return cloneOrder(o), true, nil
}
