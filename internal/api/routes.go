package api

import (
	"github.com/gin-gonic/gin"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/api/handlers"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/middleware"
)

// Dependencies are the services the HTTP API is built from. Snapshot and
// the health checks may be nil when the optional backends are off.
type Dependencies struct {
	Registry  handlers.ToolRegistry
	Store     handlers.DatasetMemory
	Snapshot  handlers.SnapshotCache
	Checks    map[string]handlers.HealthChecker
	Logger    *logging.StandardLogger
	JWTSecret string
	Version   string
}

// SetupRoutes registers every endpoint on router. When JWTSecret is empty
// the API is open.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	if deps.Logger != nil {
		router.Use(middleware.RequestLogger(deps.Logger))
	}

	healthHandler := handlers.NewHealthHandler(deps.Version, deps.Checks)
	toolHandler := handlers.NewToolHandler(deps.Registry)
	cacheHandler := handlers.NewCacheHandler(deps.Store, deps.Snapshot)

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	v1 := router.Group("/api/v1")
	var requireAdmin gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if deps.JWTSecret != "" {
		auth := middleware.NewAuthMiddleware(deps.JWTSecret)
		v1.Use(auth.RequireAuth())
		requireAdmin = auth.RequireScope(middleware.ScopeAdmin)
	}
	{
		v1.GET("/datasets", toolHandler.ListDatasets)

		tools := v1.Group("/tools")
		{
			tools.GET("", toolHandler.ListTools)
			tools.POST("/:name", toolHandler.CallTool)
		}

		cache := v1.Group("/cache")
		{
			cache.GET("/stats", cacheHandler.GetCacheStats)
			cache.DELETE("", requireAdmin, cacheHandler.ClearCache)
			cache.DELETE("/:dataset", requireAdmin, cacheHandler.InvalidateDataset)
		}
	}
}
