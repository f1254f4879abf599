package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ledgercell/ledgercell-go/internal/infrastructure/messaging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/middleware"
)

// UpdateHandlers upgrades hosts onto the resolution update stream.
type UpdateHandlers struct {
	broadcaster *messaging.UpdateBroadcaster
	upgrader    websocket.Upgrader
	logger      *logging.ChanneledLogger
}

// NewUpdateHandlers creates update stream handlers.
func NewUpdateHandlers(broadcaster *messaging.UpdateBroadcaster, logger *logging.ChanneledLogger) *UpdateHandlers {
	return &UpdateHandlers{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// GetUpdates handles GET /api/v1/updates, upgrading to a websocket that
// streams balances_resolved and cache_invalidated events for the workspace.
func (h *UpdateHandlers) GetUpdates(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Workspace().Error("Websocket upgrade failed",
				"workspaceId", wsCtx.WorkspaceID, "error", err.Error())
		}
		return
	}

	client := &messaging.UpdateClient{
		Conn:        conn,
		WorkspaceID: wsCtx.WorkspaceID,
		Send:        make(chan []byte, 64),
	}
	h.broadcaster.Register(client)

	go h.broadcaster.WritePump(client)
	go h.broadcaster.ReadPump(client)
}
