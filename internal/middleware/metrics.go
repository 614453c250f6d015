package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so requests for
// random paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// Metrics records one request observation per handled route. Scrapes of the
// metrics endpoint itself and health checks are skipped.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
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
