package http

import (
	"github.com/anderwm/KiCost/config"
	"github.com/anderwm/KiCost/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router. A nil logger uses the
// process default.
func SetupRouter(cfg *config.Config, handler *Handler, logger *zerolog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = logging.Default()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/distributors", handler.ListDistributors)
		v1.POST("/catalog", handler.ConsolidateCatalog)
	}

	return router
}
