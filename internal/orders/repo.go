package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo serves the read side: order views, customer/seller listings and
// the status reference table.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetOrderView(ctx context.Context, orderID string) (*OrderView, error) {
	return loadOrderView(ctx, r.DB, orderID)
}

// ListByUser returns the customer's orders, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]OrderView, error) {
	return r.listByIDs(ctx, `
		SELECT id FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListBySeller returns orders that contain at least one of the seller's
// SKUs, newest first.
func (r *Repo) ListBySeller(ctx context.Context, sellerID string) ([]OrderView, error) {
	return r.listByIDs(ctx, `
		SELECT o.id FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_lines l
			JOIN skus s ON s.id = l.sku_id
			JOIN products p ON p.id = s.product_id
			WHERE l.order_id = o.id AND p.seller_id = $1
		)
		ORDER BY o.created_at DESC`, sellerID)
}

func (r *Repo) listByIDs(ctx context.Context, query, arg string) ([]OrderView, error) {
	rows, err := r.DB.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	out := make([]OrderView, 0, len(ids))
	for _, id := range ids {
		v, err := loadOrderView(ctx, r.DB, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StatusRef is one row of the status reference table.
type StatusRef struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

func (r *Repo) ListStatuses(ctx context.Context) ([]StatusRef, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, label FROM statuses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	var out []StatusRef
	for rows.Next() {
		var s StatusRef
		if err := rows.Scan(&s.ID, &s.Label); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ensureStatus looks up or creates a status reference row and returns its
// id. Canonical labels are seeded by the schema; unrecognized labels get
// their own row (canonicalization happens at the boundary, the reference
// table stores whatever label the system was given).
func ensureStatus(ctx context.Context, tx pgx.Tx, label string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO statuses(label) VALUES ($1)
		ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label
		RETURNING id`, label).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure status %q: %w", label, err)
	}
	return id, nil
}
