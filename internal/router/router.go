// Package router wires the Gin engine.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/config"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/handler"
	"github.com/HungryDevMC/odoo-kwartaalaangifte-automation/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	exportH *handler.ExportHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	exports := v1.Group("/exports")
	exports.POST("", exportH.Create)
	exports.GET("", exportH.List)
	exports.GET("/:filename/download", exportH.Download)
	exports.DELETE("/:filename", exportH.Delete)

	runs := v1.Group("/runs")
	runs.GET("", exportH.ListRuns)
	runs.GET("/:id", exportH.GetRun)

	return r
}
