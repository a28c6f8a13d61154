package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/accounts"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/finance"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/inventory"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/status"
)

type CheckoutInput struct {
	UserID            string
	ShippingAddressID string // optional; explicit id must belong to the user
	PaymentMethodID   string // optional; same resolution as the address
}

// CheckoutRepo converts a customer's cart into an order in a single
// serialized unit of work. Lock order is cart row first, then SKU rows in
// sku-id order; every validation failure rolls the whole attempt back.
type CheckoutRepo struct{ DB *pgxpool.Pool }

func (r *CheckoutRepo) Checkout(ctx context.Context, in CheckoutInput) (*OrderView, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cartID, lines, err := cart.LockAndLoad(ctx, tx, in.UserID)
	if err != nil {
		return nil, err
	}

	addressID, err := accounts.ResolveShippingAddress(ctx, tx, in.UserID, in.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	paymentID, err := accounts.ResolvePaymentMethod(ctx, tx, in.UserID, in.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	// Lock SKU rows one by one in the deterministic order cart.LockAndLoad
	// returned them in, validating each line against the locked row.
	type lockedSKU struct {
		code       string
		priceCents int64
		stock      int
	}
	locked := make(map[string]lockedSKU, len(lines))
	var totalCents int64
	for _, l := range lines {
		if l.Qty < 1 {
			return nil, ErrInvalidQuantity
		}
		var (
			sku       lockedSKU
			published bool
		)
		err := tx.QueryRow(ctx, `
			SELECT s.code, s.price_cents, s.qty_in_stock, p.is_published
			FROM skus s
			JOIN products p ON p.id = s.product_id
			WHERE s.id = $1
			FOR UPDATE OF s`, l.SKUID).
			Scan(&sku.code, &sku.priceCents, &sku.stock, &published)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSKUNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("lock sku %s: %w", l.SKUID, err)
		}
		if !published {
			return nil, &ProductUnavailableError{SKUCode: sku.code}
		}
		if sku.stock < l.Qty {
			return nil, &inventory.InsufficientStockError{
				SKUID: l.SKUID, SKUCode: sku.code, Requested: l.Qty, Available: sku.stock,
			}
		}
		locked[l.SKUID] = sku
		totalCents += sku.priceCents * int64(l.Qty)
	}

	pendingID, err := ensureStatus(ctx, tx, string(status.Pending))
	if err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, address_id, payment_method_id, total_cents, status_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		orderID, in.UserID, addressID, paymentID, totalCents, pendingID); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, l := range lines {
		sku := locked[l.SKUID]
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(id, order_id, sku_id, qty, price_cents, status_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), orderID, l.SKUID, l.Qty, sku.priceCents, pendingID); err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
		if err := inventory.Reserve(ctx, tx, l.SKUID, l.Qty); err != nil {
			return nil, err
		}
	}

	if err := cart.Clear(ctx, tx, cartID); err != nil {
		return nil, err
	}

	if _, err := finance.Sync(ctx, tx, orderID, totalCents, status.Pending); err != nil {
		return nil, err
	}

	view, err := loadOrderView(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return view, nil
}
