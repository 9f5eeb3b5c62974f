package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/bulk-loan-api/internal/models"
)

// MetricsService owns the Prometheus registry and a few atomic counters for JSON snapshots.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	loansCreated    prometheus.Counter
	booksBorrowed   prometheus.Counter
	returnsTotal    *prometheus.CounterVec
	booksReturned   prometheus.Counter
	returnRejects   *prometheus.CounterVec
	imageUploads    *prometheus.CounterVec
	imageCleanups   *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	loanCount            uint64
	returnCount          uint64
	rejectCount          uint64
	imageCount           uint64
	imageFailureCount    uint64
}

// NewMetricsService registers HTTP, cache and loan collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		loansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loans_created_total",
			Help: "Loan records created",
		}),
		booksBorrowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loan_books_borrowed_total",
			Help: "Items placed on loan across all records",
		}),
		returnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_returns_total",
			Help: "Return events recorded by resulting record status",
		}, []string{"status"}),
		booksReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loan_books_returned_total",
			Help: "Items marked returned across all return events",
		}),
		returnRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_return_rejections_total",
			Help: "Return requests rejected before any mutation",
		}, []string{"reason"}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_image_uploads_total",
			Help: "Evidence image uploads by kind and outcome",
		}, []string{"kind", "outcome"}),
		imageCleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_image_cleanups_total",
			Help: "Orphaned image deletions by outcome",
		}, []string{"outcome"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheLookups,
		m.loansCreated, m.booksBorrowed, m.returnsTotal, m.booksReturned, m.returnRejects,
		m.imageUploads, m.imageCleanups, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordLoanCreated counts a new record and the items it put on loan.
func (m *MetricsService) RecordLoanCreated(books int) {
	if m == nil {
		return
	}
	m.loansCreated.Inc()
	m.booksBorrowed.Add(float64(books))
	atomic.AddUint64(&m.loanCount, 1)
}

// RecordReturn counts a committed return event.
func (m *MetricsService) RecordReturn(status models.LoanStatus, books int) {
	if m == nil {
		return
	}
	m.returnsTotal.WithLabelValues(string(status)).Inc()
	m.booksReturned.Add(float64(books))
	atomic.AddUint64(&m.returnCount, 1)
}

// RecordReturnRejected counts a return refused before mutation.
func (m *MetricsService) RecordReturnRejected(reason string) {
	if m == nil {
		return
	}
	m.returnRejects.WithLabelValues(reason).Inc()
	atomic.AddUint64(&m.rejectCount, 1)
}

// RecordImageUpload counts stored images, or one failed batch when ok is false.
func (m *MetricsService) RecordImageUpload(kind string, ok bool, count int) {
	if m == nil {
		return
	}
	if !ok {
		m.imageUploads.WithLabelValues(kind, "failed").Inc()
		atomic.AddUint64(&m.imageFailureCount, 1)
		return
	}
	m.imageUploads.WithLabelValues(kind, "stored").Add(float64(count))
	atomic.AddUint64(&m.imageCount, uint64(count))
}

// RecordImageCleanup counts orphan deletions.
func (m *MetricsService) RecordImageCleanup(ok bool) {
	if m == nil {
		return
	}
	outcome := "deleted"
	if !ok {
		outcome = "failed"
	}
	m.imageCleanups.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated counters for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio,
		LoansCreated:             atomic.LoadUint64(&m.loanCount),
		ReturnsRecorded:          atomic.LoadUint64(&m.returnCount),
		ReturnsRejected:          atomic.LoadUint64(&m.rejectCount),
		ImagesStored:             atomic.LoadUint64(&m.imageCount),
		ImageUploadFailures:      atomic.LoadUint64(&m.imageFailureCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
