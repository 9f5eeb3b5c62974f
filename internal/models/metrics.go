package models

import "time"

// SystemMetrics is a point-in-time digest of process counters for the JSON metrics endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	LoansCreated             uint64    `json:"loansCreated"`
	ReturnsRecorded          uint64    `json:"returnsRecorded"`
	ReturnsRejected          uint64    `json:"returnsRejected"`
	ImagesStored             uint64    `json:"imagesStored"`
	ImageUploadFailures      uint64    `json:"imageUploadFailures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
