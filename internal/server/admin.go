package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/WhileEndless/go-kenuts/internal/observability"
	"github.com/WhileEndless/go-kenuts/pkg/version"
)

// NewAdminRouter exposes /healthz and /metrics for the running server
func NewAdminRouter(s *Server, logger zerolog.Logger) *gin.Engine {
	observability.RegisterMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AdminAccessLog(logger))
	r.Use(observability.AdminMetrics(s.cfg.Name))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":             "ok",
			"server":             s.cfg.Name,
			"uptime":             s.Uptime().String(),
			"active_connections": s.ActiveConnections(),
			"index_bytes":        len(s.index.Body()),
			"version":            version.Version,
			"protocol":           version.Protocol,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
