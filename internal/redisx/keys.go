package redisx

import "time"

const (
	// Cache of an order's current status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Rate-limit window counter: ratelimit:{bucket}:{client_ip}
	KeyRateLimit = "ratelimit:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
)
