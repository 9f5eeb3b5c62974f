package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulk-loan-api/internal/models"
)

type summaryServiceStub struct {
	summary *models.LoanSummary
	hit     bool
	err     error
}

func (s summaryServiceStub) Summary(context.Context) (*models.LoanSummary, bool, error) {
	return s.summary, s.hit, s.err
}

func TestSummaryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := summaryServiceStub{summary: &models.LoanSummary{TotalRecords: 3, OutstandingBooks: 12}, hit: true}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/loans/summary", nil)
	NewSummaryHandler(stub).Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"outstandingBooks":12`)
}

func TestSummaryHandlerError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/loans/summary", nil)
	NewSummaryHandler(summaryServiceStub{err: errors.New("db down")}).Summary(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
