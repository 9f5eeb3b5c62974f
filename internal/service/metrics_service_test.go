package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/bulk-loan-api/internal/models"
)

func TestMetricsServiceDomainCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordLoanCreated(12)
	m.RecordReturn(models.LoanStatusPartiallyReturned, 5)
	m.RecordReturnRejected("already_returned")
	m.RecordImageUpload("borrow", true, 2)
	m.RecordImageUpload("return", false, 0)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/loans", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.loansCreated))
	assert.Equal(t, float64(12), testutil.ToFloat64(m.booksBorrowed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.returnsTotal.WithLabelValues("partially_returned")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.booksReturned))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.imageUploads.WithLabelValues("borrow", "stored")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.LoansCreated)
	assert.Equal(t, uint64(1), snap.ReturnsRecorded)
	assert.Equal(t, uint64(1), snap.ReturnsRejected)
	assert.Equal(t, uint64(2), snap.ImagesStored)
	assert.Equal(t, uint64(1), snap.ImageUploadFailures)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 10.0, snap.AverageRequestDurationMs, 0.001)
}

func TestMetricsServiceHandlerServesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordLoanCreated(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loans_created_total 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordLoanCreated(1)
	m.RecordReturn(models.LoanStatusReturned, 1)
	m.RecordImageCleanup(true)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
