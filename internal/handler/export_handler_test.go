package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulk-loan-api/internal/models"
	"github.com/noah-isme/bulk-loan-api/internal/service"
)

type exportServiceStub struct {
	format service.ExportFormat
	filter models.LoanFilter
	calls  int
}

func (s *exportServiceStub) Export(_ context.Context, format service.ExportFormat, filter models.LoanFilter) (*service.ExportResult, error) {
	s.calls++
	s.format = format
	s.filter = filter
	return &service.ExportResult{Filename: "loans-20240301-100000.pdf", ContentType: "application/pdf", Body: []byte("%PDF")}, nil
}

func newExportRouter(stub *exportServiceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/loans/export", NewExportHandler(stub).Export)
	return r
}

func TestExportHandler(t *testing.T) {
	stub := &exportServiceStub{}

	w := httptest.NewRecorder()
	newExportRouter(stub).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/loans/export?format=pdf&status=active&organizationType=foundation", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatPDF, stub.format)
	assert.Equal(t, models.LoanStatusFilterActive, stub.filter.Status)
	assert.Equal(t, models.OrganizationFoundation, stub.filter.OrganizationType)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=loans-20240301-100000.pdf", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", w.Body.String())
}

func TestExportHandlerRejectsBadQuery(t *testing.T) {
	for _, query := range []string{"format=xlsx", "status=lost"} {
		stub := &exportServiceStub{}
		w := httptest.NewRecorder()
		newExportRouter(stub).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/loans/export?"+query, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.Zero(t, stub.calls, query)
	}
}
