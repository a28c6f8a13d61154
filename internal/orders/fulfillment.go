package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/finance"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/inventory"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/status"
)

// StatusChange describes what a fulfillment command actually changed, for
// event publication after commit.
type StatusChange struct {
	OrderID       string
	LineID        string // set for line-level commands
	OrderFrom     status.State
	OrderTo       status.State
	InvoiceIssued bool
	InvoiceNumber string
}

// FulfillmentRepo executes seller-facing status commands. Each command is
// one transaction: order row locked first, then line rows, then any SKU
// whose stock is touched, matching the checkout lock order.
type FulfillmentRepo struct{ DB *pgxpool.Pool }

type SetLineStatusInput struct {
	OrderID   string
	LineID    string
	SellerID  string
	NewStatus string
}

type SetOrderStatusInput struct {
	OrderID         string
	SellerID        string
	NewStatus       string
	ShippingCarrier *string
	TrackingNumber  *string
}

// releaseOnTransition decides whether a status change hands the line's
// reserved quantity back to inventory. Cancelling before anything shipped
// restores stock; so does a return after shipment. Same-state no-ops never
// qualify, which is what makes a repeated command release-safe.
func releaseOnTransition(from, to status.State, shippedAt, deliveredAt *time.Time) bool {
	switch to {
	case status.Cancelled:
		return (from == status.Pending || from == status.Processing) &&
			shippedAt == nil && deliveredAt == nil
	case status.Returned:
		return from == status.Shipped || from == status.Delivered || from == status.Completed
	}
	return false
}

// persistedLabel returns the label stored in the status reference table:
// the canonical one when normalization succeeds, the trimmed input
// otherwise (unknown labels stay visible as given).
func persistedLabel(raw string, s status.State) string {
	if s == status.Unknown {
		return strings.TrimSpace(raw)
	}
	return string(s)
}

type lockedLine struct {
	id          string
	skuID       string
	qty         int
	label       string
	shippedAt   *time.Time
	deliveredAt *time.Time
	sellerID    string
}

// SetLineStatus moves one seller-owned line through the lifecycle,
// releases stock when the transition calls for it, and recomputes the
// order-level status from the full set of line states.
func (r *FulfillmentRepo) SetLineStatus(ctx context.Context, in SetLineStatusInput) (*OrderView, *StatusChange, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderLabel, totalCents, err := lockOrder(ctx, tx, in.OrderID)
	if err != nil {
		return nil, nil, err
	}

	var l lockedLine
	err = tx.QueryRow(ctx, `
		SELECT l.id, l.sku_id, l.qty, st.label, l.shipped_at, l.delivered_at, p.seller_id
		FROM order_lines l
		JOIN statuses st ON st.id = l.status_id
		JOIN skus s ON s.id = l.sku_id
		JOIN products p ON p.id = s.product_id
		WHERE l.id = $1 AND l.order_id = $2
		FOR UPDATE OF l`, in.LineID, in.OrderID).
		Scan(&l.id, &l.skuID, &l.qty, &l.label, &l.shippedAt, &l.deliveredAt, &l.sellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrLineNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lock order line: %w", err)
	}
	if l.sellerID != in.SellerID {
		return nil, nil, ErrNotLineOwner
	}

	from := status.Normalize(l.label)
	to := status.Normalize(in.NewStatus)
	if !status.CanTransition(from, to) {
		return nil, nil, &InvalidTransitionError{From: from, To: to}
	}

	if releaseOnTransition(from, to, l.shippedAt, l.deliveredAt) {
		if err := inventory.Release(ctx, tx, l.skuID, l.qty); err != nil {
			return nil, nil, err
		}
	}

	if err := updateLineStatus(ctx, tx, l.id, in.NewStatus, to); err != nil {
		return nil, nil, err
	}

	agg, err := recomputeOrderStatus(ctx, tx, in.OrderID)
	if err != nil {
		return nil, nil, err
	}

	fin, err := finance.Sync(ctx, tx, in.OrderID, totalCents, agg)
	if err != nil {
		return nil, nil, err
	}

	view, err := loadOrderView(ctx, tx, in.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return view, &StatusChange{
		OrderID:       in.OrderID,
		LineID:        in.LineID,
		OrderFrom:     status.Normalize(orderLabel),
		OrderTo:       agg,
		InvoiceIssued: fin.InvoiceIssued,
		InvoiceNumber: fin.InvoiceNumber,
	}, nil
}

// SetOrderStatus applies one status to the whole order. Only meaningful
// for single-vendor orders: the acting seller must own every line, and
// line statuses are synchronized to the new order status as a side
// effect. Stock release is evaluated per line against that line's own
// state and timestamps, so a partially shipped order never over-restores.
func (r *FulfillmentRepo) SetOrderStatus(ctx context.Context, in SetOrderStatusInput) (*OrderView, *StatusChange, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderLabel, totalCents, err := lockOrder(ctx, tx, in.OrderID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT l.id, l.sku_id, l.qty, st.label, l.shipped_at, l.delivered_at, p.seller_id
		FROM order_lines l
		JOIN statuses st ON st.id = l.status_id
		JOIN skus s ON s.id = l.sku_id
		JOIN products p ON p.id = s.product_id
		WHERE l.order_id = $1
		ORDER BY l.sku_id
		FOR UPDATE OF l`, in.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock order lines: %w", err)
	}
	var lines []lockedLine
	for rows.Next() {
		var l lockedLine
		if err := rows.Scan(&l.id, &l.skuID, &l.qty, &l.label, &l.shippedAt, &l.deliveredAt, &l.sellerID); err != nil {
			rows.Close()
			return nil, nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	owned := 0
	for _, l := range lines {
		if l.sellerID == in.SellerID {
			owned++
		}
	}
	if owned == 0 {
		return nil, nil, ErrNotOrderSeller
	}
	if owned < len(lines) {
		return nil, nil, ErrMultiVendorOrder
	}

	from := status.Normalize(orderLabel)
	to := status.Normalize(in.NewStatus)
	if !status.CanTransition(from, to) {
		return nil, nil, &InvalidTransitionError{From: from, To: to}
	}

	for _, l := range lines {
		lineFrom := status.Normalize(l.label)
		if !releaseOnTransition(lineFrom, to, l.shippedAt, l.deliveredAt) {
			continue
		}
		if err := inventory.Release(ctx, tx, l.skuID, l.qty); err != nil {
			return nil, nil, err
		}
	}

	for _, l := range lines {
		if err := updateLineStatus(ctx, tx, l.id, in.NewStatus, to); err != nil {
			return nil, nil, err
		}
	}

	if err := updateOrderStatus(ctx, tx, in.OrderID, in.NewStatus, to, in.ShippingCarrier, in.TrackingNumber); err != nil {
		return nil, nil, err
	}

	fin, err := finance.Sync(ctx, tx, in.OrderID, totalCents, to)
	if err != nil {
		return nil, nil, err
	}

	view, err := loadOrderView(ctx, tx, in.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return view, &StatusChange{
		OrderID:       in.OrderID,
		OrderFrom:     from,
		OrderTo:       to,
		InvoiceIssued: fin.InvoiceIssued,
		InvoiceNumber: fin.InvoiceNumber,
	}, nil
}

// lockOrder takes the exclusive order-row lock and returns the current
// status label and total.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (string, int64, error) {
	var label string
	var totalCents int64
	err := tx.QueryRow(ctx, `
		SELECT st.label, o.total_cents
		FROM orders o
		JOIN statuses st ON st.id = o.status_id
		WHERE o.id = $1
		FOR UPDATE OF o`, orderID).Scan(&label, &totalCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrOrderNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("lock order: %w", err)
	}
	return label, totalCents, nil
}

// updateLineStatus persists the line's new status and stamps shipped_at /
// delivered_at the first time the line reaches those states. Timestamps
// are set-once; later transitions never clear them.
func updateLineStatus(ctx context.Context, tx pgx.Tx, lineID, rawLabel string, to status.State) error {
	statusID, err := ensureStatus(ctx, tx, persistedLabel(rawLabel, to))
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE order_lines SET
			status_id = $2,
			shipped_at = CASE WHEN $3 THEN COALESCE(shipped_at, now()) ELSE shipped_at END,
			delivered_at = CASE WHEN $4 THEN COALESCE(delivered_at, now()) ELSE delivered_at END
		WHERE id = $1`,
		lineID, statusID, to == status.Shipped, to == status.Delivered)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	return nil
}

// recomputeOrderStatus aggregates the current line states and persists the
// result on the order when it changed. Returns the aggregate state.
func recomputeOrderStatus(ctx context.Context, tx pgx.Tx, orderID string) (status.State, error) {
	rows, err := tx.Query(ctx, `
		SELECT st.label
		FROM order_lines l
		JOIN statuses st ON st.id = l.status_id
		WHERE l.order_id = $1`, orderID)
	if err != nil {
		return "", fmt.Errorf("load line statuses: %w", err)
	}
	var states []status.State
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			rows.Close()
			return "", err
		}
		states = append(states, status.Normalize(label))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	agg := status.Aggregate(states)
	return agg, updateOrderStatus(ctx, tx, orderID, string(agg), agg, nil, nil)
}

// updateOrderStatus persists the order's status, optional carrier and
// tracking fields, and set-once shipped/delivered timestamps.
func updateOrderStatus(ctx context.Context, tx pgx.Tx, orderID, rawLabel string, to status.State, carrier, tracking *string) error {
	statusID, err := ensureStatus(ctx, tx, persistedLabel(rawLabel, to))
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE orders SET
			status_id = $2,
			shipped_at = CASE WHEN $3 THEN COALESCE(shipped_at, now()) ELSE shipped_at END,
			delivered_at = CASE WHEN $4 THEN COALESCE(delivered_at, now()) ELSE delivered_at END,
			shipping_carrier = CASE WHEN $5::boolean THEN NULLIF(btrim($6::text), '') ELSE shipping_carrier END,
			tracking_number = CASE WHEN $7::boolean THEN NULLIF(btrim($8::text), '') ELSE tracking_number END
		WHERE id = $1`,
		orderID, statusID,
		to == status.Shipped, to == status.Delivered,
		carrier != nil, deref(carrier),
		tracking != nil, deref(tracking))
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
