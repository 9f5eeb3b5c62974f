package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaKey      = "response_meta"
	metaStartKey = "response_meta_start"
)

// Meta is the free-form "meta" object of the response envelope.
type Meta map[string]interface{}

// WithResponseMeta gives each request an empty Meta and remembers when it started.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartKey, time.Now())
		c.Set(metaKey, Meta{})
		c.Next()
	}
}

// SetMeta stores one meta entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta, ok := c.Value(metaKey).(Meta)
	if !ok {
		meta = Meta{}
		c.Set(metaKey, meta)
	}
	meta[key] = value
}

// SetCacheHit records whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, "cache_hit", hit)
}

// ExtractMeta returns the collected meta, stamped with processing_time_ms when the request
// went through WithResponseMeta. It returns nil when nothing was collected.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, ok := c.Value(metaKey).(Meta)
	if !ok {
		return nil
	}
	if start, ok := c.Value(metaStartKey).(time.Time); ok {
		meta["processing_time_ms"] = time.Since(start).Milliseconds()
	}
	return meta
}
