package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-marketplace-fulfillment.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/redisx"
)

// CheckoutService converts a cart into an order (one atomic unit of work).
type CheckoutService interface {
	Checkout(ctx context.Context, in orders.CheckoutInput) (*orders.OrderView, error)
}

// FulfillmentService executes seller-facing status commands.
type FulfillmentService interface {
	SetOrderStatus(ctx context.Context, in orders.SetOrderStatusInput) (*orders.OrderView, *orders.StatusChange, error)
	SetLineStatus(ctx context.Context, in orders.SetLineStatusInput) (*orders.OrderView, *orders.StatusChange, error)
}

// OrderReader serves order views and reference data.
type OrderReader interface {
	GetOrderView(ctx context.Context, orderID string) (*orders.OrderView, error)
	ListByUser(ctx context.Context, userID string) ([]orders.OrderView, error)
	ListBySeller(ctx context.Context, sellerID string) ([]orders.OrderView, error)
	ListStatuses(ctx context.Context) ([]orders.StatusRef, error)
}

type OrdersHandler struct {
	Checkout    CheckoutService
	Fulfillment FulfillmentService
	Reader      OrderReader

	// Optional side channels; nil in tests.
	Redis           *redis.Client
	PlacedProducer  *kafkax.Producer
	StatusProducer  *kafkax.Producer
	InvoiceProducer *kafkax.Producer

	Service string
	Log     *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Patch("/orders/{id}/status", h.setOrderStatus)
	r.Patch("/orders/{id}/line-status", h.setLineStatus)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/order-statuses", h.listStatuses)
}

type checkoutReq struct {
	UserID            string `json:"user_id"`
	ShippingAddressID string `json:"shipping_address_id,omitempty"`
	PaymentMethodID   string `json:"payment_method_id,omitempty"`
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" {
		writeDetail(w, http.StatusBadRequest, "missing user_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Checkout.Checkout(ctx, orders.CheckoutInput{
		UserID:            req.UserID,
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethodID:   req.PaymentMethodID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.cacheView(ctx, view)
	h.publishPlaced(r, view)
	writeJSON(w, http.StatusCreated, view)
}

type setOrderStatusReq struct {
	SellerID        string  `json:"seller_id"`
	OrderStatus     string  `json:"order_status"`
	ShippingCarrier *string `json:"shipping_carrier,omitempty"`
	TrackingNumber  *string `json:"tracking_number,omitempty"`
}

func (h *OrdersHandler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req setOrderStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SellerID == "" || req.OrderStatus == "" {
		writeDetail(w, http.StatusBadRequest, "missing seller_id or order_status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, change, err := h.Fulfillment.SetOrderStatus(ctx, orders.SetOrderStatusInput{
		OrderID:         orderID,
		SellerID:        req.SellerID,
		NewStatus:       req.OrderStatus,
		ShippingCarrier: req.ShippingCarrier,
		TrackingNumber:  req.TrackingNumber,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.cacheView(ctx, view)
	h.publishStatusChange(r, change)
	writeJSON(w, http.StatusOK, view)
}

type setLineStatusReq struct {
	SellerID   string `json:"seller_id"`
	LineID     string `json:"line_id"`
	LineStatus string `json:"line_status"`
}

func (h *OrdersHandler) setLineStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req setLineStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SellerID == "" || req.LineID == "" || req.LineStatus == "" {
		writeDetail(w, http.StatusBadRequest, "missing seller_id, line_id or line_status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, change, err := h.Fulfillment.SetLineStatus(ctx, orders.SetLineStatusInput{
		OrderID:   orderID,
		LineID:    req.LineID,
		SellerID:  req.SellerID,
		NewStatus: req.LineStatus,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.cacheView(ctx, view)
	h.publishStatusChange(r, change)
	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Cache fast path; DB remains the source of truth.
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderView, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	view, err := h.Reader.GetOrderView(ctx, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.cacheView(ctx, view)
	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	userID := r.URL.Query().Get("user_id")
	sellerID := r.URL.Query().Get("seller_id")

	var (
		views []orders.OrderView
		err   error
	)
	switch {
	case userID != "":
		views, err = h.Reader.ListByUser(ctx, userID)
	case sellerID != "":
		views, err = h.Reader.ListBySeller(ctx, sellerID)
	default:
		writeDetail(w, http.StatusBadRequest, "missing user_id or seller_id")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if views == nil {
		views = []orders.OrderView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrdersHandler) listStatuses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	statuses, err := h.Reader.ListStatuses(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *OrdersHandler) cacheView(ctx context.Context, view *orders.OrderView) {
	if h.Redis == nil || view == nil {
		return
	}
	b, err := json.Marshal(view)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderView, view.OrderID)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderView).Err()
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, view.OrderID)
	_ = h.Redis.Set(ctx, statusKey, view.Status, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publishPlaced(r *http.Request, view *orders.OrderView) {
	if h.PlacedProducer == nil {
		return
	}
	lines := make([]orders.PlacedLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, orders.PlacedLine{
			LineID:         l.LineID,
			SKUID:          l.SKUID,
			SellerID:       l.SellerID,
			Qty:            l.Qty,
			UnitPriceCents: l.UnitPriceCents,
		})
	}
	h.publish(h.PlacedProducer, r, orders.EventOrderPlaced, view.OrderID,
		orders.OrderPlacedPayload{
			OrderID:    view.OrderID,
			UserID:     view.UserID,
			TotalCents: view.TotalCents,
			Lines:      lines,
		})
}

func (h *OrdersHandler) publishStatusChange(r *http.Request, change *orders.StatusChange) {
	if change == nil {
		return
	}
	if h.StatusProducer != nil && change.OrderFrom != change.OrderTo {
		h.publish(h.StatusProducer, r, orders.EventOrderStatusChanged, change.OrderID,
			orders.OrderStatusChangedPayload{
				OrderID: change.OrderID,
				From:    string(change.OrderFrom),
				To:      string(change.OrderTo),
				LineID:  change.LineID,
			})
	}
	if h.InvoiceProducer != nil && change.InvoiceIssued {
		h.publish(h.InvoiceProducer, r, orders.EventInvoiceIssued, change.OrderID,
			orders.InvoiceIssuedPayload{
				OrderID:       change.OrderID,
				InvoiceNumber: change.InvoiceNumber,
			})
	}
}

func (h *OrdersHandler) publish(p *kafkax.Producer, r *http.Request, eventType, orderID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
