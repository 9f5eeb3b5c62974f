package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulk-loan-api/internal/dto"
	"github.com/noah-isme/bulk-loan-api/internal/models"
	"github.com/noah-isme/bulk-loan-api/internal/service"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
	"github.com/noah-isme/bulk-loan-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, format service.ExportFormat, filter models.LoanFilter) (*service.ExportResult, error)
}

// ExportHandler streams loan registers as files.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export loan records as CSV or PDF
// @Tags Loans
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Status filter"
// @Param district query string false "District"
// @Param organizationType query string false "Organization type"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /loans/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	format, err := service.ParseExportFormat(query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := service.ExportFilter(query)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.Export(c.Request.Context(), format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	c.Data(http.StatusOK, res.ContentType, res.Body)
}
