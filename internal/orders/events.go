package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventInvoiceIssued      = "InvoiceIssued"
)

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status.changed"
	TopicInvoiceIssued      = "order.invoice.issued"
)

// Envelope wraps every published event. Versioned so consumers can evolve
// independently of the API.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type PlacedLine struct {
	LineID         string `json:"line_id"`
	SKUID          string `json:"sku_id"`
	SellerID       string `json:"seller_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type OrderPlacedPayload struct {
	OrderID    string       `json:"order_id"`
	UserID     string       `json:"user_id"`
	TotalCents int64        `json:"total_cents"`
	Lines      []PlacedLine `json:"lines"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	// LineID is set when a single line-level command triggered the change.
	LineID string `json:"line_id,omitempty"`
}

type InvoiceIssuedPayload struct {
	OrderID       string `json:"order_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// PartitionKey keeps all events of one order on one partition, in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
