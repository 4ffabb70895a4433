package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder receives one observation per served request.
type HTTPRecorder interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

const unmatchedRoute = "unmatched"

// Metrics observes request latency by route template. Requests to skipped
// routes, typically probes and the scrape endpoint, are not recorded.
func Metrics(recorder HTTPRecorder, skipRoutes ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipRoutes))
	for _, route := range skipRoutes {
		skip[route] = struct{}{}
	}
	return func(c *gin.Context) {
		if recorder == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, ok := skip[route]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if route == "" {
			route = unmatchedRoute
		}
		recorder.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
