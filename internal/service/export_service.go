package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bulk-loan-api/internal/dto"
	"github.com/noah-isme/bulk-loan-api/internal/inventory"
	"github.com/noah-isme/bulk-loan-api/internal/models"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
	"github.com/noah-isme/bulk-loan-api/pkg/export"
)

// ExportFormat names a supported export rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

const exportDateLayout = "2006-01-02"

var exportHeaders = []string{
	"ID", "Date", "Organization", "District", "Range", "Total", "Returned", "Outstanding", "Status", "Return Date", "Outstanding Numbers",
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered export ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders loan registers as CSV or PDF.
type ExportService struct {
	repo   loanLister
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService; nil renderers fall back to the defaults.
func NewExportService(repo loanLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{repo: repo, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseExportFormat validates a format name; empty means CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ExportFilter validates the filter part of an export query.
func ExportFilter(query dto.ExportQuery) (models.LoanFilter, error) {
	return buildFilter(query.Status, query.District, query.OrganizationType)
}

// Export renders every record matching filter.
func (s *ExportService) Export(ctx context.Context, format ExportFormat, filter models.LoanFilter) (*ExportResult, error) {
	records, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load loan records")
	}
	dataset := BuildLoanDataset(records)
	stamp := s.now().UTC().Format("20060102-150405")

	var (
		body        []byte
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	case ExportFormatPDF:
		body, err = s.pdf.Render(dataset, "Loan Register")
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("loan export rendered",
		zap.String("format", string(format)),
		zap.Int("records", len(records)),
		zap.Int("bytes", len(body)),
	)
	return &ExportResult{
		Filename:    fmt.Sprintf("loans-%s.%s", stamp, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// BuildLoanDataset flattens records into export rows.
func BuildLoanDataset(records []models.LoanRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for i := range records {
		rec := &records[i]
		outstanding := inventory.Outstanding(rec)
		returnDate := ""
		if rec.ReturnDate != nil {
			returnDate = rec.ReturnDate.UTC().Format(exportDateLayout)
		}
		rows = append(rows, map[string]string{
			"ID":                  rec.ID,
			"Date":                rec.Date.UTC().Format(exportDateLayout),
			"Organization":        string(rec.OrganizationType),
			"District":            rec.District,
			"Range":               fmt.Sprintf("%d-%d", rec.StartNumber, rec.EndNumber),
			"Total":               strconv.Itoa(len(rec.CalculatedBooks)),
			"Returned":            strconv.Itoa(len(rec.ReturnedBooks)),
			"Outstanding":         strconv.Itoa(len(outstanding)),
			"Status":              string(rec.Status),
			"Return Date":         returnDate,
			"Outstanding Numbers": strings.Join(outstanding, ","),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
