// Package inventory owns per-SKU available stock. All stock mutations in
// the system funnel through Reserve and Release; both run inside the
// caller's transaction so the decrement or restore commits or rolls back
// together with the order change that caused it.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrInvalidQuantity = errors.New("inventory: quantity must be at least 1")

// InsufficientStockError reports which SKU could not cover the requested
// quantity so the client can correct the cart and resubmit.
type InsufficientStockError struct {
	SKUID     string
	SKUCode   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for sku %s: requested %d, available %d",
		e.SKUCode, e.Requested, e.Available)
}

// Reserve decrements available stock for one SKU. The conditional UPDATE
// takes the row lock and re-checks availability in a single statement, so
// two concurrent checkouts against the same SKU cannot both pass the
// check and overdraw (the caller usually holds a FOR UPDATE lock already;
// the predicate is the authoritative guard either way).
func Reserve(ctx context.Context, tx pgx.Tx, skuID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	ct, err := tx.Exec(ctx, `
		UPDATE skus SET qty_in_stock = qty_in_stock - $2, updated_at = now()
		WHERE id = $1 AND qty_in_stock >= $2`, skuID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var code string
		var available int
		if err := tx.QueryRow(ctx,
			`SELECT code, qty_in_stock FROM skus WHERE id = $1`, skuID).
			Scan(&code, &available); err != nil {
			return fmt.Errorf("reserve stock: sku %s: %w", skuID, err)
		}
		return &InsufficientStockError{SKUID: skuID, SKUCode: code, Requested: qty, Available: available}
	}
	return nil
}

// Release restores stock previously reserved for a cancelled or returned
// line. Safe for qty zero (no-op).
func Release(ctx context.Context, tx pgx.Tx, skuID string, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE skus SET qty_in_stock = qty_in_stock + $2, updated_at = now()
		WHERE id = $1`, skuID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}
