// Package manager provides centralized cache operations with workspace
// isolation by combining the in-memory mirror with the durable store.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/interfaces"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/stores"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/types"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/metrics"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/persistence/kvstore"
)

// Interface assertion to ensure Manager implements the cache contract.
var _ interfaces.BalanceCache = (*Manager)(nil)

// Manager fronts the balance cache: an in-memory mirror for the current
// session backed by a durable key→value store that survives restarts.
type Manager struct {
	Mu           sync.RWMutex
	LastAccessed map[string]time.Time

	balanceStore *stores.BalanceStore
	durable      kvstore.Store
	epoch        int
	logger       *logging.ChanneledLogger
}

// NewManager creates the cache manager for the given epoch. On construction
// it drops any durable entries from older epochs so an upgrade starts clean.
func NewManager(durable kvstore.Store, epoch int, logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", slog.Int("epoch", epoch))
	}

	m := &Manager{
		LastAccessed: make(map[string]time.Time),
		balanceStore: stores.NewBalanceStore(logger),
		durable:      durable,
		epoch:        epoch,
		logger:       logger,
	}

	for old := 1; old < epoch; old++ {
		if err := durable.DeletePrefix(context.Background(), ledger.EpochPrefix(old)); err != nil && logger != nil {
			logger.Cache().Warn("Failed to clear stale epoch",
				slog.Int("epoch", old), slog.String("error", err.Error()))
		}
	}
	return m
}

// InitializeWorkspace prepares in-memory structures for a workspace.
func (m *Manager) InitializeWorkspace(workspaceID string) {
	m.balanceStore.InitializeWorkspace(workspaceID)
	m.touch(workspaceID)
}

// Epoch returns the active cache epoch.
func (m *Manager) Epoch() int { return m.epoch }

// GetBalance consults the in-memory mirror first, then the durable store,
// hydrating the mirror on a durable hit.
func (m *Manager) GetBalance(ctx context.Context, workspaceID string, key ledger.BalanceKey) (float64, bool) {
	m.touch(workspaceID)
	cacheKey := key.CacheKey(m.epoch)

	if value, ok := m.balanceStore.Get(workspaceID, cacheKey); ok {
		m.balanceStore.RecordHit(workspaceID)
		metrics.RecordCacheLookup("hit")
		return value, true
	}

	value, ok, err := m.durable.Get(ctx, cacheKey)
	if err != nil {
		if m.logger != nil {
			m.logger.Cache().Warn("Durable cache read failed",
				slog.String("key", cacheKey), slog.String("error", err.Error()))
		}
		m.balanceStore.RecordMiss(workspaceID)
		metrics.RecordCacheLookup("miss")
		return 0, false
	}
	if ok {
		m.balanceStore.Set(workspaceID, cacheKey, value)
		m.balanceStore.RecordHit(workspaceID)
		metrics.RecordCacheLookup("hit")
		return value, true
	}

	m.balanceStore.RecordMiss(workspaceID)
	metrics.RecordCacheLookup("miss")
	return 0, false
}

// SetBalance commits one value to both layers.
func (m *Manager) SetBalance(ctx context.Context, workspaceID string, key ledger.BalanceKey, value float64) error {
	cacheKey := key.CacheKey(m.epoch)
	m.balanceStore.Set(workspaceID, cacheKey, value)
	if err := m.durable.Set(ctx, cacheKey, value); err != nil {
		return fmt.Errorf("durable cache write: %w", err)
	}
	return nil
}

// SetBalances commits a batch from one remote response. The durable write is
// a single round trip.
func (m *Manager) SetBalances(ctx context.Context, workspaceID string, entries map[ledger.BalanceKey]float64) error {
	if len(entries) == 0 {
		return nil
	}
	flat := make(map[string]float64, len(entries))
	for key, value := range entries {
		flat[key.CacheKey(m.epoch)] = value
	}
	m.balanceStore.SetMany(workspaceID, flat)
	if err := m.durable.SetBatch(ctx, flat); err != nil {
		return fmt.Errorf("durable cache batch write: %w", err)
	}
	return nil
}

// InvalidateFingerprint drops everything cached under one filter state in
// both layers.
func (m *Manager) InvalidateFingerprint(ctx context.Context, workspaceID string, fp ledger.Fingerprint) error {
	prefix := ledger.FingerprintPrefix(m.epoch, fp)
	removed := m.balanceStore.DeletePrefix(workspaceID, prefix)
	if m.logger != nil {
		m.logger.Cache().Info("Invalidated fingerprint scope",
			slog.String("fingerprint", string(fp)), slog.Int("memoryRemoved", removed))
	}
	if err := m.durable.DeletePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("durable cache invalidation: %w", err)
	}
	return nil
}

// Stats reports cache counters for one workspace.
func (m *Manager) Stats(ctx context.Context, workspaceID string) (types.CacheStats, error) {
	stats := types.CacheStats{WorkspaceID: workspaceID, CurrentEpoch: m.epoch}

	if cache, exists := m.balanceStore.GetWorkspaceCache(workspaceID); exists {
		cache.Mu.RLock()
		stats.MemoryKeys = len(cache.Balances)
		stats.Hits = cache.Hits
		stats.Misses = cache.Misses
		stats.LastUpdated = cache.LastUpdated
		cache.Mu.RUnlock()
	}

	durableKeys, err := m.durable.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("durable cache count: %w", err)
	}
	stats.DurableKeys = durableKeys
	return stats, nil
}

// GetAllWorkspaceIDs lists workspaces with initialized caches.
func (m *Manager) GetAllWorkspaceIDs() []string {
	return m.balanceStore.GetAllWorkspaceIDs()
}

func (m *Manager) touch(workspaceID string) {
	m.Mu.Lock()
	m.LastAccessed[workspaceID] = time.Now().UTC()
	m.Mu.Unlock()
}
