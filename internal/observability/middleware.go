package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// unmatchedRoute labels requests no admin route answered, keeping label cardinality fixed
const unmatchedRoute = "unmatched"

// adminRoute returns the registered route pattern for c, or unmatchedRoute
func adminRoute(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

// AdminAccessLog logs one line per admin request. Scrapes of /metrics log at
// trace level; client and server errors log at warn and error.
func AdminAccessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := adminRoute(c)
		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		case route == "/metrics":
			event = logger.Trace()
		default:
			event = logger.Debug()
		}

		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("peer", c.ClientIP()).
			Msg("admin request")
	}
}

// AdminMetrics counts admin requests per route and status for server
func AdminMetrics(server string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		RecordHTTPRequest(server, c.Request.Method, adminRoute(c), c.Writer.Status())
	}
}
