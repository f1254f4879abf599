// Package services provides application-level services that orchestrate
// between the HTTP layer, workspace state, and the scheduling engine.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
)

// BalanceResult is the application-level answer for one formula evaluation.
type BalanceResult struct {
	Account string        `json:"account"`
	Period  string        `json:"period"`
	Value   float64       `json:"value"`
	Status  ledger.Status `json:"status"`
}

// BalanceService orchestrates single-cell balance resolution.
type BalanceService struct{}

// NewBalanceService creates a new balance application service.
func NewBalanceService() *BalanceService {
	return &BalanceService{}
}

// Resolve answers one (account, period) formula for the workspace's current
// filters. The call blocks until the balance settles, the guard defers it,
// or the context ends. Display-sign conventions are applied here so the
// engine and cache always hold raw ledger values.
func (s *BalanceService) Resolve(ctx context.Context, wsCtx *workspace.Context, account, accountType, specialAccount, periodName string) (BalanceResult, error) {
	if account == "" {
		return BalanceResult{}, fmt.Errorf("account cannot be empty")
	}
	if accountType != "" && ledger.NonFinancialTypes[accountType] {
		return BalanceResult{}, ledger.NewFailure(ledger.FailQuery,
			fmt.Errorf("account type %q has no balance", accountType))
	}

	period, err := ledger.ParsePeriod(periodName)
	if err != nil {
		return BalanceResult{}, ledger.NewFailure(ledger.FailQuery, err)
	}

	outcome := wsCtx.Engine.Resolve(ctx, account, period, wsCtx.Filters())
	if outcome.Err != nil {
		if errors.Is(outcome.Err, ledger.ErrGuardBlocked) {
			return BalanceResult{
				Account: account,
				Period:  period.String(),
				Status:  ledger.StatusPending,
			}, nil
		}
		return BalanceResult{}, outcome.Err
	}

	value := outcome.Value * ledger.DisplaySign(accountType, specialAccount)

	return BalanceResult{
		Account: account,
		Period:  period.String(),
		Value:   value,
		Status:  outcome.Status,
	}, nil
}
