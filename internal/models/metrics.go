package models

import "time"

// SystemMetrics is a point-in-time summary of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ReportsAccepted          uint64    `json:"reports_accepted"`
	ReportsFolded            uint64    `json:"reports_folded"`
	ReportsRateLimited       uint64    `json:"reports_rate_limited"`
	Resolutions              uint64    `json:"resolutions"`
	AverageResolverPasses    float64   `json:"average_resolver_passes"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
