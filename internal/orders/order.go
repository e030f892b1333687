package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Order is an immutable snapshot of a cart at creation time. Line prices are
// copied from the product and never recomputed, so the total survives later
// price changes.
type Order struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	Items                []Line     `json:"items"`
	TotalAmount          float64    `json:"totalAmount"`
	Status               Status     `json:"status"`
	ShippingAddress      string     `json:"shippingAddress"`
	ShippingCity         string     `json:"shippingCity"`
	ShippingCountry      string     `json:"shippingCountry"`
	ShippingZipCode      string     `json:"shippingZipCode"`
	Notes                string     `json:"notes,omitempty"`
	PaymentTransactionID string     `json:"paymentTransactionId,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	PaidAt               *time.Time `json:"paidAt,omitempty"`
	CancelledAt          *time.Time `json:"cancelledAt,omitempty"`
}

type Line struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"price"`
}

type ShippingInfo struct {
	Address string `json:"shippingAddress"`
	City    string `json:"shippingCity"`
	Country string `json:"shippingCountry"`
	ZipCode string `json:"shippingZipCode"`
	Notes   string `json:"notes"`
}

func (s ShippingInfo) Complete() bool {
	return s.Address != "" && s.City != "" && s.Country != "" && s.ZipCode != ""
}

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidShipping = errors.New("shipping information required")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNotOwner        = errors.New("order belongs to another user")
	ErrInvalidState    = errors.New("order is not in a valid state for this operation")
)

// InsufficientStockError aborts order creation; nothing is written when any
// single line fails the build-time stock check.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

// StockClamp records a settlement decrement that would have driven stock
// negative and was clamped to zero instead.
type StockClamp struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

// Repository owns the order lifecycle's transactional boundaries. Settle and
// Reject are compare-and-swap transitions: they apply only when the order is
// still PAYMENT_INITIATED and report applied=false otherwise, which is what
// makes duplicate or out-of-order webhook deliveries harmless.
type Repository interface {
	// CreateFromCart snapshots the user's cart into a PENDING order and
	// empties the cart, as one transaction. Stock is re-validated per line
	// but not decremented.
	CreateFromCart(ctx context.Context, userID string, shipping ShippingInfo) (*Order, error)
	FindByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Order, error)
	// MarkPaymentInitiated moves PENDING -> PAYMENT_INITIATED and records the
	// gateway transaction id, conditionally on the order still being PENDING.
	MarkPaymentInitiated(ctx context.Context, orderID, transactionID string) error
	// Settle moves PAYMENT_INITIATED -> PAID and decrements stock for every
	// line in the same transaction.
	Settle(ctx context.Context, transactionID string) (o *Order, clamps []StockClamp, applied bool, err error)
	// Reject moves PAYMENT_INITIATED -> CANCELLED recording the reason. No
	// stock changes: none were made before settlement.
	Reject(ctx context.Context, transactionID, reason string) (o *Order, applied bool, err error)
}

// Round2 rounds to two decimals, the precision of all monetary amounts.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
