package redisx

import "time"

const (
	// Cached order view JSON: order_view:{order_id}. Rewritten on every
	// fulfillment mutation, refreshed lazily on read.
	KeyOrderView = "order_view:%s"

	// Cached order status only: order_status:{order_id}. Kept warm by the
	// notifier consumer for cheap realtime tracking reads.
	KeyOrderStatus = "order_status:%s"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderView   = 5 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
