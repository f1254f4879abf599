package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/application/services"
	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/middleware"
)

// AccountHandlers handles chart-of-accounts endpoints.
type AccountHandlers struct {
	accountService *services.AccountService
	logger         *logging.ChanneledLogger
}

// NewAccountHandlers creates account handlers with dependency injection.
func NewAccountHandlers(accountService *services.AccountService, logger *logging.ChanneledLogger) *AccountHandlers {
	return &AccountHandlers{accountService: accountService, logger: logger}
}

// GetSearch handles GET /api/v1/accounts/search?pattern=... The pattern may
// be a category keyword (INCOME, ASSET), an exact account type, or an
// account-number pattern with * wildcards.
func (h *AccountHandlers) GetSearch(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	pattern := c.Query("pattern")
	accounts, err := h.accountService.Search(c.Request.Context(), wsCtx, pattern)
	if err != nil {
		var failure *ledger.Failure
		status := http.StatusBadGateway
		if errors.As(err, &failure) {
			switch failure.Kind {
			case ledger.FailQuery:
				status = http.StatusBadRequest
			case ledger.FailAuth:
				status = http.StatusUnauthorized
			case ledger.FailTransient:
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}
