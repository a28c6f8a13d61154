package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/accounts"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/inventory"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// writeDomainError maps the domain error taxonomy onto HTTP status codes.
// Every rejection left the database exactly as it was, so clients can
// correct the condition and resubmit.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		stockErr    *inventory.InsufficientStockError
		unavailable *orders.ProductUnavailableError
		invalid     *orders.InvalidTransitionError
	)
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"detail":    "insufficient stock",
			"sku":       stockErr.SKUCode,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.As(err, &unavailable):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalid):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, accounts.ErrNoAddress),
		errors.Is(err, accounts.ErrNoPaymentMethod),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidQuantity):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrNotLineOwner),
		errors.Is(err, orders.ErrNotOrderSeller),
		errors.Is(err, orders.ErrMultiVendorOrder):
		writeDetail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrLineNotFound),
		errors.Is(err, orders.ErrSKUNotFound),
		errors.Is(err, accounts.ErrAddressNotFound),
		errors.Is(err, accounts.ErrPaymentMethodNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
