package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// LineView is the wire shape of one order line. Prices are frozen minor
// units copied from the SKU at checkout, never a live reference.
type LineView struct {
	LineID         string     `json:"line_id"`
	SKUID          string     `json:"sku_id"`
	SKUCode        string     `json:"sku"`
	SellerID       string     `json:"seller_id"`
	Qty            int        `json:"qty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Status         string     `json:"status"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// OrderView is the wire shape of an order with its lines.
type OrderView struct {
	OrderID         string     `json:"order_id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	TotalCents      int64      `json:"order_total_cents"`
	ShippingCarrier *string    `json:"shipping_carrier,omitempty"`
	TrackingNumber  *string    `json:"tracking_number,omitempty"`
	ShippedAt       *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Lines           []LineView `json:"lines"`
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so views can be
// loaded inside a transaction (returning the result of a command) or
// outside one (plain reads).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadOrderView(ctx context.Context, q querier, orderID string) (*OrderView, error) {
	v := OrderView{OrderID: orderID}
	err := q.QueryRow(ctx, `
		SELECT o.user_id, st.label, o.total_cents, o.shipping_carrier, o.tracking_number,
		       o.shipped_at, o.delivered_at, o.created_at
		FROM orders o
		JOIN statuses st ON st.id = o.status_id
		WHERE o.id = $1`, orderID).
		Scan(&v.UserID, &v.Status, &v.TotalCents, &v.ShippingCarrier, &v.TrackingNumber,
			&v.ShippedAt, &v.DeliveredAt, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT l.id, l.sku_id, s.code, p.seller_id, l.qty, l.price_cents, st.label,
		       l.shipped_at, l.delivered_at
		FROM order_lines l
		JOIN statuses st ON st.id = l.status_id
		JOIN skus s ON s.id = l.sku_id
		JOIN products p ON p.id = s.product_id
		WHERE l.order_id = $1
		ORDER BY l.sku_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l LineView
		if err := rows.Scan(&l.LineID, &l.SKUID, &l.SKUCode, &l.SellerID, &l.Qty,
			&l.UnitPriceCents, &l.Status, &l.ShippedAt, &l.DeliveredAt); err != nil {
			return nil, err
		}
		v.Lines = append(v.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &v, nil
}
