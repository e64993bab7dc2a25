package server

import (
	"time"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the Gin router with the configured API handlers.
func NewRouter(cfg *config.Config, sessions *service.SessionStore, jobStore *config.JobStore, imports *ImportManager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	handler := newHandler(cfg, sessions, jobStore, imports, scan.NewImageDecoder())

	router.GET(HealthEndpoint, handler.health)
	router.GET(VersionEndpoint, handler.version)

	api := router.Group("", authMiddleware(cfg.APIToken))
	api.GET(JobsPath+"/:id", handler.getJobStatus)
	api.GET(LabelsPath+"/:unitNumber", handler.label)

	sessionRoutes := api.Group(SessionsPath)
	sessionRoutes.POST("", handler.createSession)
	sessionRoutes.GET("/:id", handler.getSession)
	sessionRoutes.DELETE("/:id", handler.deleteSession)
	sessionRoutes.POST("/:id/input", handler.input)
	sessionRoutes.POST("/:id/scan-image", handler.scanImage)
	sessionRoutes.POST("/:id/select", handler.selectProduct)
	sessionRoutes.POST("/:id/toggle", handler.toggle)
	sessionRoutes.POST("/:id/select-all", handler.selectAll)
	sessionRoutes.POST("/:id/remove-selected", handler.removeSelected)
	sessionRoutes.POST("/:id/inspect", handler.inspect)
	sessionRoutes.POST("/:id/filter", handler.filter)
	sessionRoutes.POST("/:id/remove-item", handler.removeItem)
	sessionRoutes.POST("/:id/submit", handler.submit)
	sessionRoutes.POST("/:id/cancel", handler.cancel)
	sessionRoutes.POST("/:id/confirmations/:token", handler.resolve)
	sessionRoutes.POST("/:id/imports", handler.importUnits)
	sessionRoutes.GET("/:id/manifest.pdf", handler.manifest)

	return router
}

// requestLogger writes one zap entry per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String(utils.FieldPath, c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("id", id))
		}
		switch {
		case c.Writer.Status() >= 500:
			utils.Logger.Error("Request handled", fields...)
		case c.Writer.Status() >= 400:
			utils.Logger.Warn("Request handled", fields...)
		default:
			utils.Logger.Debug("Request handled", fields...)
		}
	}
}
