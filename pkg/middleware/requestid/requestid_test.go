package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, header string) (echoed, fromGin, fromCtx string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header().Get(HeaderKey), fromGin, fromCtx
}

func TestMiddlewareKeepsCallerID(t *testing.T) {
	echoed, fromGin, fromCtx := serve(t, "abc-123")
	assert.Equal(t, "abc-123", echoed)
	assert.Equal(t, "abc-123", fromGin)
	assert.Equal(t, "abc-123", fromCtx)
}

func TestMiddlewareReplacesMalformedID(t *testing.T) {
	for _, header := range []string{"", "has space", "line\nbreak", strings.Repeat("x", 200)} {
		echoed, fromGin, fromCtx := serve(t, header)
		_, err := uuid.Parse(echoed)
		assert.NoError(t, err, header)
		assert.Equal(t, echoed, fromGin)
		assert.Equal(t, echoed, fromCtx)
	}
}

func TestFromContextWithoutID(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
	assert.Equal(t, "x", FromContext(WithID(context.Background(), "x")))
}
