package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPolicyAllows(t *testing.T) {
	p := newPolicy([]string{"https://admin.example.org/", "https://*.loans.example.org"})

	assert.True(t, p.allows("https://admin.example.org"))
	assert.True(t, p.allows("https://north.loans.example.org"))
	assert.False(t, p.allows("http://north.loans.example.org"))
	assert.False(t, p.allows("https://loans.example.org"))
	assert.False(t, p.allows("https://evil.example.com"))

	assert.True(t, newPolicy(nil).allows("https://anything.test"))
	assert.True(t, newPolicy([]string{"*"}).allows("https://anything.test"))
}

func TestMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New([]string{"https://admin.example.org"}))
	r.POST("/loans", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/loans", nil)
	req.Header.Set("Origin", "https://admin.example.org")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodPost, "/loans", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
