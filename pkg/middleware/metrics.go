package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ucouncil/portal/backend/go-services/pkg/metrics"
)

// RequestMetrics counts requests by method, route pattern and status.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/metrics" {
			return
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
