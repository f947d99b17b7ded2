package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no route so scanners cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// RequestObserver records HTTP request metrics. *service.MetricsService satisfies it.
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics observes request latency per route template. Websocket upgrades are
// skipped: their duration is the socket lifetime and is tracked by the hub gauge.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if observer == nil || isUpgrade(c) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		observer.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func isUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}
