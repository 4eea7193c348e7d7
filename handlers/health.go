package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe checks one dependency; nil means healthy.
type Probe func(ctx context.Context) error

// RegisterHealth serves /health (liveness) and /ready. /ready runs every probe
// and answers 503 when any of them fails.
func RegisterHealth(r *gin.Engine, started time.Time, probes map[string]Probe) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	names := make([]string, 0, len(probes))
	for n := range probes {
		names = append(names, n)
	}
	sort.Strings(names)

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{}
		for _, n := range names {
			ok := probes[n](ctx) == nil
			deps[n] = ok
			ready = ready && ok
		}
		body := gin.H{"deps": deps, "uptime": time.Since(started).Round(time.Second).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})
}
