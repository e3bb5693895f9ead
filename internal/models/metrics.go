package models

import "time"

// SystemMetrics is the aggregated snapshot served on the admin metrics
// endpoint, cheaper to consume than the Prometheus exposition format.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	RegistrationEvents       map[string]uint64 `json:"registration_events"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
