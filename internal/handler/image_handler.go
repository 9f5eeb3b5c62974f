package handler

import (
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
	"github.com/noah-isme/bulk-loan-api/pkg/response"
)

type imageDownloader interface {
	OpenSigned(token string) (*os.File, string, error)
}

// ImageHandler serves evidence images behind signed links.
type ImageHandler struct {
	images imageDownloader
}

// NewImageHandler builds a new handler.
func NewImageHandler(images imageDownloader) *ImageHandler {
	return &ImageHandler{images: images}
}

// Download godoc
// @Summary Download an evidence image
// @Tags Images
// @Produce octet-stream
// @Param token query string true "Signed token from an image link"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /images/download [get]
func (h *ImageHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, ref, err := h.images.OpenSigned(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read image"))
		return
	}
	name := path.Base(ref)
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		c.Header("Content-Type", ct)
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	http.ServeContent(c.Writer, c.Request, name, stat.ModTime(), file)
}
