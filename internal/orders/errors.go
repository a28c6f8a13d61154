package orders

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/status"
)

var (
	ErrOrderNotFound = errors.New("orders: order not found")
	ErrLineNotFound  = errors.New("orders: order line not found")
	ErrSKUNotFound   = errors.New("orders: sku not found")

	// ErrNotLineOwner: the acting seller does not own the SKU behind the line.
	ErrNotLineOwner = errors.New("orders: seller does not own this order line")

	// ErrNotOrderSeller: the acting seller owns none of the order's lines.
	ErrNotOrderSeller = errors.New("orders: seller has no lines in this order")

	// ErrMultiVendorOrder: the seller owns some lines but not all of them;
	// whole-order updates are blocked on multi-vendor orders.
	ErrMultiVendorOrder = errors.New("orders: order contains other sellers' lines")

	ErrInvalidQuantity = errors.New("orders: line quantity must be at least 1")
)

// ProductUnavailableError rejects checkout of a SKU whose product is
// unpublished.
type ProductUnavailableError struct {
	SKUCode string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("orders: product for sku %s is not available", e.SKUCode)
}

// InvalidTransitionError reports a status-graph violation; the command is
// rejected before any mutation.
type InvalidTransitionError struct {
	From status.State
	To   status.State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("orders: transition %s -> %s is not allowed", e.From, e.To)
}
