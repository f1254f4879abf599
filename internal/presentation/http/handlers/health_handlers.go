package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/application/container"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/security"
	"github.com/ledgercell/ledgercell-go/pkg/config"
)

// HealthHandlers exposes liveness and workspace token issuance.
type HealthHandlers struct {
	container *container.Container
	startedAt time.Time
}

// NewHealthHandlers creates health handlers.
func NewHealthHandlers(c *container.Container) *HealthHandlers {
	return &HealthHandlers{container: c, startedAt: time.Now()}
}

// GetHealth handles GET /health.
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(h.startedAt).String(),
		"workspaces": len(h.container.WorkspaceManager.ActiveWorkspaceIDs()),
	})
}

type tokenRequest struct {
	WorkspaceID string `json:"workspaceId" binding:"required"`
}

// PostToken handles POST /api/v1/auth/token, issuing a workspace-bound
// bearer token a host presents on subsequent requests.
func (h *HealthHandlers) PostToken(c *gin.Context) {
	if config.JWTSecret == "" {
		c.JSON(http.StatusOK, gin.H{"token": ""})
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := security.GenerateWorkspaceToken(req.WorkspaceID, config.JWTSecret, 30*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
