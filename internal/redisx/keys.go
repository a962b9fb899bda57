package redisx

import "time"

const (
	// Cached order detail JSON: order:{order_id} -> serialized order
	KeyOrderCache = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Low-stock alert marker so the watcher warns once per product per window.
	KeyLowStockAlert = "lowstock:%s"
)

var (
	TTLOrderCache    = 5 * time.Minute
	TTLDedup         = 48 * time.Hour
	TTLLowStockAlert = 1 * time.Hour
)
