// Package remote implements the client for the balance-resolution service.
// The collaborator computes balances for (account, period, filter)
// combinations; every call shape here reduces to the same underlying query
// with a different period-set argument, which is what guarantees that point,
// column, and full-range fetches return identical values for overlapping
// keys.
package remote

import (
	"context"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
)

// BalanceMatrix maps account → canonical period name → value. Pairs with no
// activity in the period are simply absent; absence means a legitimate zero,
// never an error.
type BalanceMatrix map[string]map[string]float64

// Value looks up one (account, period) pair. ok is false when the pair is
// absent, which callers must treat as zero activity.
func (m BalanceMatrix) Value(account string, period ledger.Period) (float64, bool) {
	byPeriod, ok := m[account]
	if !ok {
		return 0, false
	}
	v, ok := byPeriod[period.String()]
	return v, ok
}

// Set records one pair, allocating the inner map on first use.
func (m BalanceMatrix) Set(account string, period ledger.Period, value float64) {
	byPeriod, ok := m[account]
	if !ok {
		byPeriod = make(map[string]float64)
		m[account] = byPeriod
	}
	byPeriod[period.String()] = value
}

// Client is the surface the scheduling engine consumes. Errors are always
// classified (*ledger.Failure); a whole-call failure covers every requested
// pair.
type Client interface {
	// LookupBalance resolves a single (account, period) pair.
	LookupBalance(ctx context.Context, account string, period ledger.Period, filters ledger.FilterSet) (float64, error)

	// LookupPeriods resolves the cross product of accounts and periods.
	LookupPeriods(ctx context.Context, accounts []string, periods []ledger.Period, filters ledger.FilterSet) (BalanceMatrix, error)

	// LookupYear resolves all twelve periods of a reporting year for the
	// accounts.
	LookupYear(ctx context.Context, accounts []string, year int, filters ledger.FilterSet) (BalanceMatrix, error)

	// SearchAccounts lists active chart-of-accounts entries matching a
	// parsed pattern, ordered by account number.
	SearchAccounts(ctx context.Context, query ledger.AccountQuery, filters ledger.FilterSet) ([]ledger.Account, error)
}
