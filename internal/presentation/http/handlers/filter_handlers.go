package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/application/services"
	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/middleware"
)

// FilterHandlers handles filter selection endpoints. Every change routes
// through the transition guard so stale in-flight work cannot land.
type FilterHandlers struct {
	filterService *services.FilterService
	logger        *logging.ChanneledLogger
}

// NewFilterHandlers creates filter handlers with dependency injection.
func NewFilterHandlers(filterService *services.FilterService, logger *logging.ChanneledLogger) *FilterHandlers {
	return &FilterHandlers{filterService: filterService, logger: logger}
}

type filterUpdateRequest struct {
	Value string `json:"value" binding:"required"`
}

// GetFilters handles GET /api/v1/filters.
func (h *FilterHandlers) GetFilters(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}
	c.JSON(http.StatusOK, h.filterService.State(wsCtx))
}

// PutBook handles PUT /api/v1/filters/book.
func (h *FilterHandlers) PutBook(c *gin.Context) {
	h.update(c, func(wsCtx *workspace.Context, value string) (services.FilterState, error) {
		return h.filterService.UpdateBook(wsCtx, value)
	})
}

// PutSubsidiary handles PUT /api/v1/filters/subsidiary.
func (h *FilterHandlers) PutSubsidiary(c *gin.Context) {
	h.update(c, func(wsCtx *workspace.Context, value string) (services.FilterState, error) {
		return h.filterService.UpdateSubsidiary(wsCtx, value)
	})
}

// PutDimension handles PUT /api/v1/filters/:dimension for department,
// location, and class.
func (h *FilterHandlers) PutDimension(c *gin.Context) {
	dim := ledger.Dimension(c.Param("dimension"))
	h.update(c, func(wsCtx *workspace.Context, value string) (services.FilterState, error) {
		return h.filterService.UpdateDimension(wsCtx, dim, value)
	})
}

func (h *FilterHandlers) update(c *gin.Context, apply func(*workspace.Context, string) (services.FilterState, error)) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	var req filterUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := apply(wsCtx, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, state)
}
