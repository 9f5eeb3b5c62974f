package dto

import (
	"time"

	"github.com/noah-isme/bulk-loan-api/internal/models"
)

// CreateLoanRequest declares a bulk borrow transaction.
type CreateLoanRequest struct {
	// Date is YYYY-MM-DD or RFC3339; empty means now.
	Date             string `json:"date" form:"date"`
	OrganizationType string `json:"organizationType" form:"organizationType" validate:"required,organization_type"`
	District         string `json:"district" form:"district" validate:"required"`
	StartNumber      *int   `json:"startNumber" form:"startNumber" validate:"required"`
	EndNumber        *int   `json:"endNumber" form:"endNumber" validate:"required"`
	MissingNumbers   string `json:"missingNumbers" form:"missingNumbers"`
	DuplicateNumbers string `json:"duplicateNumbers" form:"duplicateNumbers"`
}

// PreviewRequest asks for the derived inventory without persisting anything.
type PreviewRequest struct {
	StartNumber      *int   `json:"startNumber" validate:"required"`
	EndNumber        *int   `json:"endNumber" validate:"required"`
	MissingNumbers   string `json:"missingNumbers"`
	DuplicateNumbers string `json:"duplicateNumbers"`
}

// PreviewResponse is the derived inventory.
type PreviewResponse struct {
	Books []string `json:"books"`
	Total int      `json:"total"`
}

// RecordReturnRequest selects identifiers coming back in one return round.
type RecordReturnRequest struct {
	Books []string `json:"books"`
	Date  string   `json:"date"`
}

// LoanListQuery carries listing filters from the query string.
type LoanListQuery struct {
	Status           string `form:"status"`
	District         string `form:"district"`
	OrganizationType string `form:"organizationType"`
	Page             int    `form:"page"`
	PageSize         int    `form:"pageSize"`
}

// ExportQuery selects the export format and filters.
type ExportQuery struct {
	Format           string `form:"format"`
	Status           string `form:"status"`
	District         string `form:"district"`
	OrganizationType string `form:"organizationType"`
}

// ImageLink is a time limited download URL for one stored image.
type ImageLink struct {
	Ref       string    `json:"ref"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoanResponse is a loan record with its outstanding identifiers and image links.
type LoanResponse struct {
	models.LoanRecord
	OutstandingBooks []string               `json:"outstandingBooks"`
	OutstandingCount int                    `json:"outstandingCount"`
	BorrowImageLinks []ImageLink            `json:"borrowImageLinks"`
	ReturnImageLinks map[string][]ImageLink `json:"returnImageLinks"`
}

// ReturnResponse is the reconciled record plus the event just recorded.
type ReturnResponse struct {
	Loan  LoanResponse       `json:"loan"`
	Event models.ReturnEvent `json:"event"`
}
