// Package interfaces defines cache contracts consumed by services and the
// scheduling engine
package interfaces

import (
	"context"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/types"
)

// BalanceCache is the single source of truth for "is this value already
// known". Lookups are by exact key only.
type BalanceCache interface {
	// GetBalance consults the in-memory mirror, then the durable store.
	GetBalance(ctx context.Context, workspaceID string, key ledger.BalanceKey) (float64, bool)

	// SetBalance commits one successfully resolved value.
	SetBalance(ctx context.Context, workspaceID string, key ledger.BalanceKey, value float64) error

	// SetBalances commits a batch of values from one remote response.
	SetBalances(ctx context.Context, workspaceID string, entries map[ledger.BalanceKey]float64) error

	// InvalidateFingerprint drops everything cached under one filter state.
	InvalidateFingerprint(ctx context.Context, workspaceID string, fp ledger.Fingerprint) error

	// Stats reports cache observability counters.
	Stats(ctx context.Context, workspaceID string) (types.CacheStats, error)
}
