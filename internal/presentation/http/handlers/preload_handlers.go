package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/application/services"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/middleware"
)

// PreloadHandlers handles proactive year-fetch endpoints.
type PreloadHandlers struct {
	preloadService *services.PreloadService
	logger         *logging.ChanneledLogger
}

// NewPreloadHandlers creates preload handlers with dependency injection.
func NewPreloadHandlers(preloadService *services.PreloadService, logger *logging.ChanneledLogger) *PreloadHandlers {
	return &PreloadHandlers{preloadService: preloadService, logger: logger}
}

type preloadRequest struct {
	Accounts []string `json:"accounts"`
	Year     int      `json:"year"`
	Period   string   `json:"period"`
}

// PostPreload handles POST /api/v1/preload. The host sends either a year or
// a period name; omitting accounts preloads the whole income-statement
// universe. The fetch runs in the background and the endpoint returns
// immediately.
func (h *PreloadHandlers) PostPreload(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	var req preloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch {
	case req.Year != 0:
		err = h.preloadService.PreloadYear(c.Request.Context(), wsCtx, req.Accounts, req.Year)
	case req.Period != "":
		err = h.preloadService.PreloadPeriod(c.Request.Context(), wsCtx, req.Accounts, req.Period)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "year or period is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "preloading"})
}
