package services

import (
	"context"
	"fmt"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
)

// PreloadService triggers proactive year-wide fetches for income-statement
// accounts so that a report recalculation finds its balances already cached.
type PreloadService struct {
	accounts *AccountService
}

// NewPreloadService creates a new preload application service.
func NewPreloadService(accounts *AccountService) *PreloadService {
	return &PreloadService{accounts: accounts}
}

// PreloadYear range-fetches accounts for a reporting year under the
// workspace's current filters. An empty account list means the whole
// income-statement universe. Concurrent triggers for the same year and
// filter combination collapse into one remote call; the method returns
// once the fetch is underway.
func (s *PreloadService) PreloadYear(ctx context.Context, wsCtx *workspace.Context, accounts []string, year int) error {
	if year < 1900 || year > 9999 {
		return fmt.Errorf("invalid reporting year %d", year)
	}
	if len(accounts) == 0 {
		var err error
		if accounts, err = s.accounts.IncomeAccounts(ctx, wsCtx); err != nil {
			return err
		}
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts to preload")
	}

	seen := make(map[string]bool, len(accounts))
	distinct := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		distinct = append(distinct, a)
	}
	if len(distinct) == 0 {
		return fmt.Errorf("no accounts to preload")
	}

	wsCtx.Engine.PreloadYear(distinct, year, wsCtx.Filters())
	return nil
}

// PreloadPeriod preloads the reporting year containing a single period name,
// the shape a workbook host emits when a report sheet recalculates.
func (s *PreloadService) PreloadPeriod(ctx context.Context, wsCtx *workspace.Context, accounts []string, periodName string) error {
	period, err := ledger.ParsePeriod(periodName)
	if err != nil {
		return ledger.NewFailure(ledger.FailQuery, err)
	}
	return s.PreloadYear(ctx, wsCtx, accounts, period.Year)
}
