package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/application/services"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/middleware"
)

// CacheHandlers handles cache administration endpoints.
type CacheHandlers struct {
	cacheService *services.CacheService
	logger       *logging.ChanneledLogger
}

// NewCacheHandlers creates cache handlers with dependency injection.
func NewCacheHandlers(cacheService *services.CacheService, logger *logging.ChanneledLogger) *CacheHandlers {
	return &CacheHandlers{cacheService: cacheService, logger: logger}
}

// GetStats handles GET /api/v1/cache/stats.
func (h *CacheHandlers) GetStats(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	stats, err := h.cacheService.Stats(c.Request.Context(), wsCtx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PostInvalidate handles POST /api/v1/cache/invalidate, dropping cached
// balances for the workspace's current filter combination.
func (h *CacheHandlers) PostInvalidate(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	if err := h.cacheService.InvalidateCurrent(c.Request.Context(), wsCtx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}
