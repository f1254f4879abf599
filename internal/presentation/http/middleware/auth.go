package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/infrastructure/security"
	"github.com/ledgercell/ledgercell-go/pkg/config"
)

// AuthMiddleware validates the workspace bearer token and checks that it is
// bound to the workspace the request targets. Auth is disabled when no JWT
// secret is configured, which is the local development default.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.JWTSecret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" || tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		claims, err := security.ValidateJWT(tokenString, config.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		if wsCtx, ok := GetWorkspaceContext(c); ok {
			if bound := security.WorkspaceFromClaims(claims); bound != "" && bound != wsCtx.WorkspaceID {
				c.JSON(http.StatusForbidden, gin.H{"error": "Token not valid for this workspace"})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
