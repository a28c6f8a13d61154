// Package finance mirrors order state into a payment transaction record
// and issues invoices. The original system did this reactively from a
// post-save hook; here checkout and fulfillment call Sync directly inside
// their own transaction so ordering and atomicity stay auditable.
package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/status"
)

const (
	PaymentPending   = "Pending"
	PaymentSuccess   = "Success"
	PaymentCancelled = "Cancelled"
	PaymentRefunded  = "Refunded"
)

// PaymentStatusFor derives the desired payment status from the order's
// canonical state. The mapping is deterministic and never settable by a
// client.
func PaymentStatusFor(s status.State) string {
	switch s {
	case status.Cancelled:
		return PaymentCancelled
	case status.Returned, status.Refunded:
		return PaymentRefunded
	case status.Delivered, status.Completed:
		return PaymentSuccess
	default:
		return PaymentPending
	}
}

type SyncResult struct {
	PaymentStatus string
	InvoiceIssued bool
	InvoiceNumber string
}

// Sync upserts the order's transaction record to the desired payment
// status and, the first time that status becomes Success, issues exactly
// one invoice. The UNIQUE(order_id) constraint on invoices backs up the
// existence check structurally.
func Sync(ctx context.Context, tx pgx.Tx, orderID string, amountCents int64, orderState status.State) (SyncResult, error) {
	desired := PaymentStatusFor(orderState)

	var statusID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO payment_statuses(label) VALUES ($1)
		ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label
		RETURNING id`, desired).Scan(&statusID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("ensure payment status: %w", err)
	}

	var txID string
	var currentStatusID int64
	err = tx.QueryRow(ctx,
		`SELECT id, payment_status_id FROM transactions WHERE order_id = $1`, orderID).
		Scan(&txID, &currentStatusID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `
			INSERT INTO transactions(id, order_id, amount_cents, payment_status_id)
			VALUES ($1, $2, $3, $4)`, uuid.NewString(), orderID, amountCents, statusID); err != nil {
			return SyncResult{}, fmt.Errorf("create transaction: %w", err)
		}
	case err != nil:
		return SyncResult{}, fmt.Errorf("load transaction: %w", err)
	case currentStatusID != statusID:
		if _, err := tx.Exec(ctx,
			`UPDATE transactions SET payment_status_id = $2 WHERE id = $1`, txID, statusID); err != nil {
			return SyncResult{}, fmt.Errorf("update transaction: %w", err)
		}
	}

	res := SyncResult{PaymentStatus: desired}
	if desired == PaymentSuccess {
		issued, number, err := issueInvoiceOnce(ctx, tx, orderID)
		if err != nil {
			return SyncResult{}, err
		}
		res.InvoiceIssued = issued
		res.InvoiceNumber = number
	}
	return res, nil
}

func issueInvoiceOnce(ctx context.Context, tx pgx.Tx, orderID string) (bool, string, error) {
	var existing string
	err := tx.QueryRow(ctx,
		`SELECT invoice_number FROM invoices WHERE order_id = $1`, orderID).Scan(&existing)
	if err == nil {
		return false, existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, "", fmt.Errorf("check invoice: %w", err)
	}

	number := invoiceNumber(orderID)
	if _, err := tx.Exec(ctx, `
		INSERT INTO invoices(id, order_id, invoice_number)
		VALUES ($1, $2, $3)`, uuid.NewString(), orderID, number); err != nil {
		return false, "", fmt.Errorf("create invoice: %w", err)
	}
	return true, number, nil
}

func invoiceNumber(orderID string) string {
	short := strings.ReplaceAll(orderID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	frag := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("INV-%s-%s", strings.ToUpper(short), frag)
}
