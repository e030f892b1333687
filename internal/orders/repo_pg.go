package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Repository = (*Repo)(nil)

const orderCols = `id, user_id, status, total_amount, shipping_address, shipping_city,
	shipping_country, shipping_zip_code, notes, payment_transaction_id, created_at, paid_at, cancelled_at`

// CreateFromCart locks the cart's product rows, re-validates stock (lines may
// predate stock changes), snapshots prices, writes order+lines and empties
// the cart in one transaction. Stock is NOT decremented here; orders reserve
// nothing until payment settles.
func (r *Repo) CreateFromCart(ctx context.Context, userID string, shipping ShippingInfo) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var cartID string
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	// product_id order keeps lock acquisition deterministic across
	// concurrent checkouts
	rows, err := tx.Query(ctx, `
		SELECT cl.product_id, cl.quantity, p.name, p.price, p.stock
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.cart_id = $1
		ORDER BY cl.product_id
		FOR UPDATE`, cartID)
	if err != nil {
		return nil, err
	}

	var lines []Line
	total := 0.0
	for rows.Next() {
		var (
			l     Line
			stock int
		)
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.ProductName, &l.UnitPrice, &stock); err != nil {
			rows.Close()
			return nil, err
		}
		if stock < l.Quantity {
			rows.Close()
			return nil, &InsufficientStockError{ProductName: l.ProductName}
		}
		l.ID = uuid.NewString()
		lines = append(lines, l)
		total += l.UnitPrice * float64(l.Quantity)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := &Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           lines,
		TotalAmount:     Round2(total),
		Status:          StatusPending,
		ShippingAddress: shipping.Address,
		ShippingCity:    shipping.City,
		ShippingCountry: shipping.Country,
		ShippingZipCode: shipping.ZipCode,
		Notes:           shipping.Notes,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, total_amount, shipping_address, shipping_city,
			shipping_country, shipping_zip_code, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		o.ID, o.UserID, o.Status, o.TotalAmount, o.ShippingAddress, o.ShippingCity,
		o.ShippingCountry, o.ShippingZipCode, o.Notes).Scan(&o.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range lines {
		l := lines[i]
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(id, order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			l.ID, o.ID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice); err != nil {
			return nil, err
		}
	}

	// delete only the snapshotted lines; a line another request commits for a
	// different product between the snapshot and this statement stays in the cart
	ids := make([]string, len(lines))
	for i := range lines {
		ids[i] = lines[i].ProductID
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1 AND product_id = ANY($2::uuid[])`,
		cartID, ids); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Order, error) {
	return r.findOne(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id)
}

func (r *Repo) FindByTransactionID(ctx context.Context, transactionID string) (*Order, error) {
	return r.findOne(ctx, `SELECT `+orderCols+` FROM orders WHERE payment_transaction_id=$1`, transactionID)
}

func (r *Repo) findOne(ctx context.Context, query, arg string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.loadLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.loadLines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) MarkPaymentInitiated(ctx context.Context, orderID, transactionID string) error {
	// conditional update: concurrent initiations race for the PENDING row
	// and only one wins
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, payment_transaction_id=$2
		WHERE id=$1 AND status=$4`,
		orderID, transactionID, StatusPaymentInitiated, StatusPending)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrOrderNotFound
	}
	return ErrInvalidState
}

// Settle is the CONFIRMED webhook transition: a compare-and-swap on status
// plus the per-line stock decrement, one transaction. A decrement that would
// go negative is clamped to zero and reported, not rejected.
func (r *Repo) Settle(ctx context.Context, transactionID string) (*Order, []StockClamp, bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback(ctx)

	var orderID string
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, paid_at=now()
		WHERE payment_transaction_id=$1 AND status=$3
		RETURNING id`,
		transactionID, StatusPaid, StatusPaymentInitiated).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		// duplicate or stale delivery; report the order as it stands
		o, ferr := r.FindByTransactionID(ctx, transactionID)
		if ferr != nil {
			return nil, nil, false, ferr
		}
		return o, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}

	lines, err := loadLinesTx(ctx, tx, orderID)
	if err != nil {
		return nil, nil, false, err
	}

	var clamps []StockClamp
	for _, l := range lines {
		var available int
		if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, l.ProductID).Scan(&available); err != nil {
			return nil, nil, false, err
		}
		dec := l.Quantity
		if available < dec {
			clamps = append(clamps, StockClamp{
				ProductID: l.ProductID, ProductName: l.ProductName,
				Requested: l.Quantity, Available: available,
			})
			dec = available
		}
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id=$1`, l.ProductID, dec); err != nil {
			return nil, nil, false, err
		}
	}

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		return nil, nil, false, err
	}
	o.Items = lines

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, err
	}
	return o, clamps, true, nil
}

// Reject is the REFUSED webhook transition. No stock is touched: nothing was
// decremented before settlement.
func (r *Repo) Reject(ctx context.Context, transactionID, reason string) (*Order, bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, cancelled_at=now(), notes=$3
		WHERE payment_transaction_id=$1 AND status=$4`,
		transactionID, StatusCancelled, reason, StatusPaymentInitiated)
	if err != nil {
		return nil, false, err
	}
	o, err := r.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, false, err
	}
	return o, ct.RowsAffected() == 1, nil
}

func (r *Repo) loadLines(ctx context.Context, orderID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price
		FROM order_lines WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func loadLinesTx(ctx context.Context, tx pgx.Tx, orderID string) ([]Line, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price
		FROM order_lines WHERE order_id=$1
		ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func collectLines(rows pgx.Rows) ([]Line, error) {
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o    Order
		txID *string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.ShippingCity,
		&o.ShippingCountry, &o.ShippingZipCode, &o.Notes, &txID, &o.CreatedAt, &o.PaidAt, &o.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if txID != nil {
		o.PaymentTransactionID = *txID
	}
	return &o, nil
}
