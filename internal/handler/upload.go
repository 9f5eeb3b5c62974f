package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulk-loan-api/internal/inventory"
	"github.com/noah-isme/bulk-loan-api/internal/service"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
)

const (
	imagesField       = "images"
	maxMultipartBytes = 64 << 20
)

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formUploads adapts the multipart files under field into service uploads. A request without
// the field yields no uploads.
func formUploads(c *gin.Context, field string) ([]service.ImageUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload")
	}
	headers := form.File[field]
	uploads := make([]service.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, fileUpload(fh))
	}
	return uploads, nil
}

func fileUpload(fh *multipart.FileHeader) service.ImageUpload {
	return service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// formIdentifiers accepts repeated fields and comma separated values alike.
func formIdentifiers(c *gin.Context, field string) []string {
	var out []string
	for _, value := range c.PostFormArray(field) {
		out = append(out, inventory.ParseTokens(value)...)
	}
	return out
}
