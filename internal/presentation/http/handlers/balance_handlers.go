// Package handlers provides HTTP handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/application/services"
	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/presentation/http/middleware"
)

// BalanceHandlers handles balance resolution endpoints.
type BalanceHandlers struct {
	balanceService *services.BalanceService
	logger         *logging.ChanneledLogger
}

// NewBalanceHandlers creates balance handlers with dependency injection.
func NewBalanceHandlers(balanceService *services.BalanceService, logger *logging.ChanneledLogger) *BalanceHandlers {
	return &BalanceHandlers{balanceService: balanceService, logger: logger}
}

type balanceRequest struct {
	Account        string `json:"account" binding:"required"`
	AccountType    string `json:"accountType"`
	SpecialAccount string `json:"specialAccount"`
	Period         string `json:"period" binding:"required"`
}

type balanceBatchRequest struct {
	Cells []balanceRequest `json:"cells" binding:"required"`
}

type balanceBatchItem struct {
	services.BalanceResult
	Error string `json:"error,omitempty"`
}

// PostBalance handles POST /api/v1/balance for a single formula evaluation.
func (h *BalanceHandlers) PostBalance(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	var req balanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.balanceService.Resolve(c.Request.Context(), wsCtx, req.Account, req.AccountType, req.SpecialAccount, req.Period)
	if err != nil {
		h.writeFailure(c, wsCtx.WorkspaceID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PostBalanceBatch handles POST /api/v1/balance/batch. Cells resolve
// concurrently; the scheduling engine collapses them into shared remote
// calls behind the scenes.
func (h *BalanceHandlers) PostBalanceBatch(c *gin.Context) {
	wsCtx, exists := middleware.GetWorkspaceContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workspace context not found"})
		return
	}

	var req balanceBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Cells) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cells cannot be empty"})
		return
	}

	results := make([]balanceBatchItem, len(req.Cells))
	var wg sync.WaitGroup
	for i, cell := range req.Cells {
		wg.Add(1)
		go func(i int, cell balanceRequest) {
			defer wg.Done()
			result, err := h.balanceService.Resolve(c.Request.Context(), wsCtx, cell.Account, cell.AccountType, cell.SpecialAccount, cell.Period)
			if err != nil {
				results[i] = balanceBatchItem{
					BalanceResult: services.BalanceResult{Account: cell.Account, Period: cell.Period},
					Error:         err.Error(),
				}
				return
			}
			results[i] = balanceBatchItem{BalanceResult: result}
		}(i, cell)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// writeFailure maps the failure taxonomy onto HTTP status codes.
func (h *BalanceHandlers) writeFailure(c *gin.Context, workspaceID string, err error) {
	var failure *ledger.Failure
	if errors.As(err, &failure) {
		status := http.StatusBadGateway
		switch failure.Kind {
		case ledger.FailTransient:
			status = http.StatusServiceUnavailable
		case ledger.FailAuth:
			status = http.StatusUnauthorized
		case ledger.FailQuery:
			status = http.StatusUnprocessableEntity
		}
		if h.logger != nil {
			h.logger.Remote().Warn("Balance resolution failed",
				"workspaceId", workspaceID, "kind", string(failure.Kind), "error", err.Error())
		}
		c.JSON(status, gin.H{"error": err.Error(), "kind": string(failure.Kind), "retryable": failure.Retryable()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
