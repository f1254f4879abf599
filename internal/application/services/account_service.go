package services

import (
	"context"
	"fmt"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/remote"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/scheduling"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
)

// AccountService answers chart-of-accounts searches. A pattern with letters
// selects account types (exact type, category keyword like INCOME or ASSET,
// or a wildcard over types); anything else matches account numbers.
type AccountService struct {
	client  remote.Client
	limiter *scheduling.Limiter
}

// NewAccountService creates a new account application service.
func NewAccountService(client remote.Client, limiter *scheduling.Limiter) *AccountService {
	return &AccountService{client: client, limiter: limiter}
}

// Search resolves a raw host pattern against the workspace's filters.
// Metadata lookups run under the light concurrency budget.
func (s *AccountService) Search(ctx context.Context, wsCtx *workspace.Context, pattern string) ([]ledger.Account, error) {
	if pattern == "" {
		return nil, ledger.NewFailure(ledger.FailQuery, fmt.Errorf("search pattern cannot be empty"))
	}

	query := ledger.ParseAccountPattern(pattern)
	release, err := s.limiter.Acquire(ctx, scheduling.ClassLight)
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailTransient, err)
	}
	defer release()

	return s.client.SearchAccounts(ctx, query, wsCtx.Filters())
}

// IncomeAccounts lists the full income-statement account universe, the set a
// year preload covers when the caller does not enumerate accounts.
func (s *AccountService) IncomeAccounts(ctx context.Context, wsCtx *workspace.Context) ([]string, error) {
	release, err := s.limiter.Acquire(ctx, scheduling.ClassLight)
	if err != nil {
		return nil, ledger.NewFailure(ledger.FailTransient, err)
	}
	defer release()

	accounts, err := s.client.SearchAccounts(ctx,
		ledger.AccountQuery{Types: ledger.SearchCategories["INCOME"]}, wsCtx.Filters())
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(accounts))
	for _, a := range accounts {
		numbers = append(numbers, a.Number)
	}
	return numbers, nil
}
