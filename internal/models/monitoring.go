package models

import "time"

// SystemMetrics is a point-in-time snapshot of process level counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	LoginsSucceeded          uint64    `json:"loginsSucceeded"`
	LoginsFailed             uint64    `json:"loginsFailed"`
	SessionsSwept            uint64    `json:"sessionsSwept"`
	FeedItemsIngested        uint64    `json:"feedItemsIngested"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MonitoringStats is returned by the admin monitoring endpoint.
type MonitoringStats struct {
	Articles       []ArticleStatusCount `json:"articles"`
	Sources        int                  `json:"sources"`
	ActiveSources  int                  `json:"activeSources"`
	ActiveSessions int                  `json:"activeSessions"`
	System         SystemMetrics        `json:"system"`
}
