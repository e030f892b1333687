package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tfinproject/shop-api/internal/catalog"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := r.find(ctx, r.DB, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// first access creates the cart; ON CONFLICT keeps it idempotent when
	// two requests race the lazy init
	id := uuid.NewString()
	if _, err := r.DB.Exec(ctx, `
		INSERT INTO carts(id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, id, userID); err != nil {
		return nil, err
	}
	return r.find(ctx, r.DB, userID)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repo) find(ctx context.Context, q querier, userID string) (*Cart, error) {
	var c Cart
	err := q.QueryRow(ctx, `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT product_id, quantity FROM cart_lines WHERE cart_id=$1`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, l)
	}
	return &c, rows.Err()
}

func (r *Repo) AddItem(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	c, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stock, active, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	if !active {
		return ErrProductInactive
	}

	var existing int
	err = tx.QueryRow(ctx, `SELECT quantity FROM cart_lines WHERE cart_id=$1 AND product_id=$2 FOR UPDATE`,
		c.ID, productID).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	merged := existing + qty
	if stock < merged {
		return ErrOutOfStock
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO cart_lines(cart_id, product_id, quantity) VALUES ($1,$2,$3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		c.ID, productID, merged); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) UpdateQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	c, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stock, _, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	if stock < qty {
		return ErrOutOfStock
	}

	ct, err := tx.Exec(ctx, `UPDATE cart_lines SET quantity=$3 WHERE cart_id=$1 AND product_id=$2`,
		c.ID, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return tx.Commit(ctx)
}

func (r *Repo) RemoveItem(ctx context.Context, userID, productID string) error {
	c, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1 AND product_id=$2`, c.ID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	c, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, c.ID)
	return err
}

func lockProduct(ctx context.Context, tx pgx.Tx, productID string) (stock int, active bool, err error) {
	err = tx.QueryRow(ctx, `SELECT stock, is_active FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&stock, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, catalog.ErrNotFound
	}
	return stock, active, err
}
