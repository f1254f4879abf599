package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/persistence/kvstore"
)

func balanceKey(account string, month int, fp ledger.Fingerprint) ledger.BalanceKey {
	return ledger.BalanceKey{
		Account:     account,
		Period:      ledger.Period{Month: time.Month(month), Year: 2025},
		Fingerprint: fp,
	}
}

func TestManagerWriteThroughAndReadBack(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := NewManager(store, 1, nil)
	m.InitializeWorkspace("ws-1")
	ctx := context.Background()

	fp := ledger.ComputeFingerprint(ledger.FilterSet{Subsidiary: "Parent Co"})
	key := balanceKey("4000", 1, fp)

	_, found := m.GetBalance(ctx, "ws-1", key)
	assert.False(t, found)

	require.NoError(t, m.SetBalance(ctx, "ws-1", key, 512.75))

	value, found := m.GetBalance(ctx, "ws-1", key)
	assert.True(t, found)
	assert.Equal(t, 512.75, value)

	// The durable layer saw the same write.
	durableValue, ok, err := store.Get(ctx, key.CacheKey(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 512.75, durableValue)
}

func TestManagerHydratesMirrorFromDurable(t *testing.T) {
	store := kvstore.NewMemoryStore()
	ctx := context.Background()

	fp := ledger.ComputeFingerprint(ledger.FilterSet{})
	key := balanceKey("4000", 3, fp)
	require.NoError(t, store.Set(ctx, key.CacheKey(1), 99.0))

	// A fresh manager starts with an empty mirror, as after a restart.
	m := NewManager(store, 1, nil)
	m.InitializeWorkspace("ws-1")

	value, found := m.GetBalance(ctx, "ws-1", key)
	assert.True(t, found)
	assert.Equal(t, 99.0, value)

	stats, err := m.Stats(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MemoryKeys)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestManagerSetBalancesBatch(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := NewManager(store, 1, nil)
	m.InitializeWorkspace("ws-1")
	ctx := context.Background()

	fp := ledger.ComputeFingerprint(ledger.FilterSet{Department: "Sales"})
	entries := map[ledger.BalanceKey]float64{
		balanceKey("4000", 1, fp): 10,
		balanceKey("4000", 2, fp): 0,
		balanceKey("5000", 1, fp): 33.3,
	}
	require.NoError(t, m.SetBalances(ctx, "ws-1", entries))

	for key, want := range entries {
		got, found := m.GetBalance(ctx, "ws-1", key)
		assert.True(t, found)
		assert.Equal(t, want, got)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestManagerInvalidateFingerprintIsScoped(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := NewManager(store, 1, nil)
	m.InitializeWorkspace("ws-1")
	ctx := context.Background()

	salesFP := ledger.ComputeFingerprint(ledger.FilterSet{Department: "Sales"})
	opsFP := ledger.ComputeFingerprint(ledger.FilterSet{Department: "Ops"})

	require.NoError(t, m.SetBalance(ctx, "ws-1", balanceKey("4000", 1, salesFP), 1))
	require.NoError(t, m.SetBalance(ctx, "ws-1", balanceKey("4000", 2, salesFP), 2))
	require.NoError(t, m.SetBalance(ctx, "ws-1", balanceKey("4000", 1, opsFP), 3))

	require.NoError(t, m.InvalidateFingerprint(ctx, "ws-1", salesFP))

	_, found := m.GetBalance(ctx, "ws-1", balanceKey("4000", 1, salesFP))
	assert.False(t, found)
	_, found = m.GetBalance(ctx, "ws-1", balanceKey("4000", 2, salesFP))
	assert.False(t, found)

	// The other filter state keeps its entries.
	value, found := m.GetBalance(ctx, "ws-1", balanceKey("4000", 1, opsFP))
	assert.True(t, found)
	assert.Equal(t, 3.0, value)
}

func TestManagerNewEpochClearsOlderEntries(t *testing.T) {
	store := kvstore.NewMemoryStore()
	ctx := context.Background()

	fp := ledger.ComputeFingerprint(ledger.FilterSet{})
	key := balanceKey("4000", 1, fp)
	require.NoError(t, store.Set(ctx, key.CacheKey(1), 7))

	m := NewManager(store, 2, nil)
	m.InitializeWorkspace("ws-1")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Old-epoch values never surface under the new epoch's keys.
	_, found := m.GetBalance(ctx, "ws-1", key)
	assert.False(t, found)
}

func TestManagerStatsCounters(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := NewManager(store, 1, nil)
	m.InitializeWorkspace("ws-1")
	ctx := context.Background()

	fp := ledger.ComputeFingerprint(ledger.FilterSet{})
	key := balanceKey("4000", 6, fp)

	m.GetBalance(ctx, "ws-1", key)
	require.NoError(t, m.SetBalance(ctx, "ws-1", key, 5))
	m.GetBalance(ctx, "ws-1", key)
	m.GetBalance(ctx, "ws-1", key)

	stats, err := m.Stats(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "ws-1", stats.WorkspaceID)
	assert.Equal(t, 1, stats.CurrentEpoch)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.MemoryKeys)
	assert.Equal(t, int64(1), stats.DurableKeys)
}
