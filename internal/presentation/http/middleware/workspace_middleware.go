package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
)

const workspaceContextKey = "workspaceContext"

// WorkspaceMiddleware extracts the workspace ID and materializes a full
// workspace context for the request.
func WorkspaceMiddleware(workspaceManager *workspace.Manager) gin.HandlerFunc {
	logger := workspaceManager.GetLogger()

	return func(c *gin.Context) {
		start := time.Now()

		workspaceID := c.GetHeader(workspace.WorkspaceHeader)
		if workspaceID == "" {
			workspaceID = c.Query("workspaceId") // fallback for websocket connects
		}
		if workspaceID == "" {
			if logger != nil {
				logger.Workspace().Warn("Missing workspace identification",
					"path", c.Request.URL.Path)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Workspace-ID header or workspaceId query param is required"})
			c.Abort()
			return
		}

		wsCtx, err := workspaceManager.GetContextFromID(workspaceID)
		if err != nil {
			if logger != nil {
				logger.Workspace().Error("Workspace resolution failed",
					"error", err, "workspaceId", workspaceID)
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "workspace unavailable"})
			c.Abort()
			return
		}

		c.Set(workspaceContextKey, wsCtx)
		c.Next()

		if logger != nil {
			logger.Perf().Debug("Request handled",
				"workspaceId", workspaceID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"status", c.Writer.Status(),
				"duration", time.Since(start))
		}
	}
}

// GetWorkspaceContext retrieves the workspace context set by the middleware.
func GetWorkspaceContext(c *gin.Context) (*workspace.Context, bool) {
	value, exists := c.Get(workspaceContextKey)
	if !exists {
		return nil, false
	}
	wsCtx, ok := value.(*workspace.Context)
	return wsCtx, ok
}
