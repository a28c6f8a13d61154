// Package cart is the read-once input side of checkout: lock the cart
// row, hand its lines to the orchestrator, and empty it once the order
// commits. The cart row is always locked before any SKU row, which is
// half of the global lock ordering that keeps concurrent checkouts
// deadlock-free.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrEmptyCart = errors.New("cart: cart is empty")

type Line struct {
	SKUID string
	Qty   int
}

// LockAndLoad acquires the exclusive cart lock for the user and returns
// the cart lines ordered by SKU id (the deterministic order subsequent
// SKU locks are taken in). Returns ErrEmptyCart when the user has no cart
// or no items.
func LockAndLoad(ctx context.Context, tx pgx.Tx, userID string) (string, []Line, error) {
	var cartID string
	err := tx.QueryRow(ctx,
		`SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrEmptyCart
	}
	if err != nil {
		return "", nil, fmt.Errorf("lock cart: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT sku_id, qty FROM cart_items WHERE cart_id = $1 ORDER BY sku_id`, cartID)
	if err != nil {
		return "", nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.SKUID, &l.Qty); err != nil {
			return "", nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}
	if len(lines) == 0 {
		return "", nil, ErrEmptyCart
	}
	return cartID, lines, nil
}

// Clear empties the cart. Runs inside the checkout transaction so the
// cart survives untouched when anything else fails.
func Clear(ctx context.Context, tx pgx.Tx, cartID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
