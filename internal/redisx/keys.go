package redisx

import "time"

const (
	// Cached order snapshot: order:{order_id} -> full order JSON
	KeyOrderSnapshot = "order:%s"

	// Session backing the identity check: session:{token} -> {"user_id","role","email"}
	KeySession = "session:%s"

	// Dedup event processing in the notifier: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLSession    = 24 * time.Hour
	TTLDedup      = 48 * time.Hour
)
