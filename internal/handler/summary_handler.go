package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulk-loan-api/internal/middleware"
	"github.com/noah-isme/bulk-loan-api/internal/models"
	"github.com/noah-isme/bulk-loan-api/pkg/response"
)

type summaryService interface {
	Summary(ctx context.Context) (*models.LoanSummary, bool, error)
}

// SummaryHandler exposes dashboard statistics.
type SummaryHandler struct {
	service summaryService
}

// NewSummaryHandler builds a new handler.
func NewSummaryHandler(service summaryService) *SummaryHandler {
	return &SummaryHandler{service: service}
}

// Summary godoc
// @Summary Dashboard totals across all loans
// @Tags Loans
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /loans/summary [get]
func (h *SummaryHandler) Summary(c *gin.Context) {
	summary, hit, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
