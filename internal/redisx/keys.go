package redisx

import "time"

const (
	// Cache of order status projections: order_status:{order_id} -> {"status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup for async deliveries: dedup:{consumer}:{id}
	// (id = event_id for stream consumers, transaction_id:outcome for the webhook).
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
