package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulk-loan-api/internal/dto"
	"github.com/noah-isme/bulk-loan-api/internal/models"
	"github.com/noah-isme/bulk-loan-api/internal/service"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
	"github.com/noah-isme/bulk-loan-api/pkg/response"
)

type loanService interface {
	Preview(ctx context.Context, req dto.PreviewRequest) (*dto.PreviewResponse, error)
	Create(ctx context.Context, req dto.CreateLoanRequest, uploads []service.ImageUpload) (*dto.LoanResponse, error)
	Get(ctx context.Context, id string) (*dto.LoanResponse, error)
	List(ctx context.Context, query dto.LoanListQuery) ([]dto.LoanResponse, *models.Pagination, error)
	Delete(ctx context.Context, id string) error
	RecordReturn(ctx context.Context, id string, req dto.RecordReturnRequest, uploads []service.ImageUpload) (*dto.ReturnResponse, error)
	AttachBorrowImages(ctx context.Context, id string, uploads []service.ImageUpload) (*dto.LoanResponse, error)
	AttachReturnImages(ctx context.Context, id, eventID string, uploads []service.ImageUpload) (*dto.LoanResponse, error)
}

// LoanHandler exposes loan record endpoints.
type LoanHandler struct {
	service loanService
}

// NewLoanHandler builds a new handler.
func NewLoanHandler(service loanService) *LoanHandler {
	return &LoanHandler{service: service}
}

// Preview godoc
// @Summary Derive the identifiers a borrow declaration covers
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.PreviewRequest true "Range and exceptions"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /loans/preview [post]
func (h *LoanHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview payload"))
		return
	}
	res, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Create godoc
// @Summary Record a bulk borrow transaction
// @Description Accepts JSON, or multipart form fields plus optional images[] files.
// @Tags Loans
// @Accept json,mpfd
// @Produce json
// @Param payload body dto.CreateLoanRequest true "Loan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	var (
		req     dto.CreateLoanRequest
		uploads []service.ImageUpload
		err     error
	)
	if isMultipart(c) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
		if err = c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid loan form"))
			return
		}
		if uploads, err = formUploads(c, imagesField); err != nil {
			response.Error(c, err)
			return
		}
	} else if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid loan payload"))
		return
	}

	loan, err := h.service.Create(c.Request.Context(), req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, loan)
}

// List godoc
// @Summary List loan records, newest first
// @Tags Loans
// @Produce json
// @Param status query string false "borrowed, partially_returned, returned or active"
// @Param district query string false "District"
// @Param organizationType query string false "FOUNDATION or ASSOCIATION"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /loans [get]
func (h *LoanHandler) List(c *gin.Context) {
	var query dto.LoanListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a loan record with its outstanding identifiers
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	loan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// Delete godoc
// @Summary Delete a loan record
// @Tags Loans
// @Param id path string true "Loan ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /loans/{id} [delete]
func (h *LoanHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordReturn godoc
// @Summary Record a return round
// @Description JSON body, or multipart with books (repeated or comma separated), date and images[].
// @Tags Loans
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.RecordReturnRequest true "Returned identifiers"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /loans/{id}/returns [post]
func (h *LoanHandler) RecordReturn(c *gin.Context) {
	var (
		req     dto.RecordReturnRequest
		uploads []service.ImageUpload
		err     error
	)
	if isMultipart(c) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
		if uploads, err = formUploads(c, imagesField); err != nil {
			response.Error(c, err)
			return
		}
		req.Books = formIdentifiers(c, "books")
		req.Date = c.PostForm("date")
	} else if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid return payload"))
		return
	}

	res, err := h.service.RecordReturn(c.Request.Context(), c.Param("id"), req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// AttachBorrowImages godoc
// @Summary Append borrow evidence images
// @Tags Loans
// @Accept mpfd
// @Produce json
// @Param id path string true "Loan ID"
// @Param images formData file true "Images"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /loans/{id}/images [post]
func (h *LoanHandler) AttachBorrowImages(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
	uploads, err := formUploads(c, imagesField)
	if err != nil {
		response.Error(c, err)
		return
	}
	loan, err := h.service.AttachBorrowImages(c.Request.Context(), c.Param("id"), uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// AttachReturnImages godoc
// @Summary Append evidence images to one return event
// @Tags Loans
// @Accept mpfd
// @Produce json
// @Param id path string true "Loan ID"
// @Param eventId path string true "Return event ID"
// @Param images formData file true "Images"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /loans/{id}/returns/{eventId}/images [post]
func (h *LoanHandler) AttachReturnImages(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
	uploads, err := formUploads(c, imagesField)
	if err != nil {
		response.Error(c, err)
		return
	}
	loan, err := h.service.AttachReturnImages(c.Request.Context(), c.Param("id"), c.Param("eventId"), uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}
