package models

import "time"

// SystemMetrics is a lightweight JSON view over the Prometheus counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	LiveConnections          int64     `json:"live_connections"`
	NotificationsDelivered   uint64    `json:"notifications_delivered"`
	DeliveryFailures         uint64    `json:"delivery_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
