package api

import (
	"github.com/gin-gonic/gin"

	"blend-quality-service/internal/catalog"
	"blend-quality-service/internal/config"
	"blend-quality-service/internal/db"
	"blend-quality-service/internal/logging"
	"blend-quality-service/internal/metrics"
	"blend-quality-service/internal/pipeline"
)

func NewRouter(database *db.DB, cat catalog.Catalog, svc *pipeline.Service, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(database, cat, svc, logger, cfg)

	api := r.Group(cfg.API.BasePath)
	{
		// Specifications
		api.POST("/specifications", h.CreateSpecification)
		api.GET("/specifications", h.ListSpecifications)
		api.GET("/specifications/:plant/:line/:product", h.GetSpecification)
		api.DELETE("/specifications/:plant/:line/:product", h.DeleteSpecification)

		// Evaluated outputs
		api.GET("/compliance", h.GetComplianceResults)
		api.GET("/suggestions", h.GetSuggestions)

		// KPI rollups
		api.GET("/kpis/daily", h.GetDailyKPIs)
		api.GET("/kpis/weekly", h.GetWeeklyKPIs)

		// Filter dimensions
		api.GET("/dimensions", h.GetDimensions)

		// Live alerts
		api.GET("/ws/:plant", h.WebSocket)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
