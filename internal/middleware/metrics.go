package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulk-loan-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every request on metricsSvc, labelled by route template. Requests that match
// no route share one label so scanners cannot inflate series cardinality. skip lists exact
// paths, such as probes and the scrape endpoint, that are not observed at all.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok || metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
