// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgercell/ledgercell-go/internal/application/container"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/handlers"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(appContainer *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	balanceHandlers := handlers.NewBalanceHandlers(appContainer.BalanceService, appContainer.Logger)
	accountHandlers := handlers.NewAccountHandlers(appContainer.AccountService, appContainer.Logger)
	preloadHandlers := handlers.NewPreloadHandlers(appContainer.PreloadService, appContainer.Logger)
	filterHandlers := handlers.NewFilterHandlers(appContainer.FilterService, appContainer.Logger)
	cacheHandlers := handlers.NewCacheHandlers(appContainer.CacheService, appContainer.Logger)
	updateHandlers := handlers.NewUpdateHandlers(appContainer.Broadcaster, appContainer.Logger)
	healthHandlers := handlers.NewHealthHandlers(appContainer)

	// Public endpoints
	r.GET("/health", healthHandlers.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/api/v1/auth/token", healthHandlers.PostToken)

	// API routes with workspace middleware
	api := r.Group("/api/v1")
	api.Use(middleware.WorkspaceMiddleware(appContainer.WorkspaceManager))
	api.Use(middleware.AuthMiddleware())
	{
		api.POST("/balance", balanceHandlers.PostBalance)
		api.POST("/balance/batch", balanceHandlers.PostBalanceBatch)

		api.POST("/preload", preloadHandlers.PostPreload)

		api.GET("/accounts/search", accountHandlers.GetSearch)

		filters := api.Group("/filters")
		{
			filters.GET("", filterHandlers.GetFilters)
			filters.PUT("/book", filterHandlers.PutBook)
			filters.PUT("/subsidiary", filterHandlers.PutSubsidiary)
			filters.PUT("/:dimension", filterHandlers.PutDimension)
		}

		cache := api.Group("/cache")
		{
			cache.GET("/stats", cacheHandlers.GetStats)
			cache.POST("/invalidate", cacheHandlers.PostInvalidate)
		}

		api.GET("/updates", updateHandlers.GetUpdates)
	}

	return r
}
