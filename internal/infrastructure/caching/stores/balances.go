// Package stores provides concrete cache store implementations
package stores

import (
	"strings"
	"sync"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/types"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
)

// BalanceStore implements in-memory balance caching with workspace isolation
type BalanceStore struct {
	workspaceCaches map[string]*types.WorkspaceBalanceCache
	mu              sync.RWMutex
	logger          *logging.ChanneledLogger
}

// NewBalanceStore creates a new balance cache store
func NewBalanceStore(logger *logging.ChanneledLogger) *BalanceStore {
	return &BalanceStore{
		workspaceCaches: make(map[string]*types.WorkspaceBalanceCache),
		logger:          logger,
	}
}

// InitializeWorkspace creates cache structures for a workspace
func (bs *BalanceStore) InitializeWorkspace(workspaceID string) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.workspaceCaches[workspaceID] == nil {
		bs.workspaceCaches[workspaceID] = &types.WorkspaceBalanceCache{
			Balances:    make(map[string]*types.CacheEntry),
			LastUpdated: time.Now().UTC(),
		}
	}
}

// GetWorkspaceCache safely retrieves a workspace's balance cache
func (bs *BalanceStore) GetWorkspaceCache(workspaceID string) (*types.WorkspaceBalanceCache, bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	cache, exists := bs.workspaceCaches[workspaceID]
	return cache, exists
}

// GetAllWorkspaceIDs returns all workspace IDs present in the store
func (bs *BalanceStore) GetAllWorkspaceIDs() []string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	ids := make([]string, 0, len(bs.workspaceCaches))
	for id := range bs.workspaceCaches {
		ids = append(ids, id)
	}
	return ids
}

// Get retrieves one cached balance by exact key
func (bs *BalanceStore) Get(workspaceID, key string) (float64, bool) {
	cache, exists := bs.GetWorkspaceCache(workspaceID)
	if !exists {
		return 0, false
	}

	cache.Mu.RLock()
	entry, ok := cache.Balances[key]
	cache.Mu.RUnlock()

	if !ok {
		return 0, false
	}
	return entry.Value, true
}

// Set stores one balance
func (bs *BalanceStore) Set(workspaceID, key string, value float64) {
	cache, exists := bs.GetWorkspaceCache(workspaceID)
	if !exists {
		bs.InitializeWorkspace(workspaceID)
		cache, _ = bs.GetWorkspaceCache(workspaceID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Balances[key] = &types.CacheEntry{
		Key:       key,
		Value:     value,
		WrittenAt: time.Now().UTC(),
	}
	cache.LastUpdated = time.Now().UTC()
}

// SetMany stores a batch of balances under one lock acquisition
func (bs *BalanceStore) SetMany(workspaceID string, entries map[string]float64) {
	if len(entries) == 0 {
		return
	}
	cache, exists := bs.GetWorkspaceCache(workspaceID)
	if !exists {
		bs.InitializeWorkspace(workspaceID)
		cache, _ = bs.GetWorkspaceCache(workspaceID)
	}

	now := time.Now().UTC()
	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	for key, value := range entries {
		cache.Balances[key] = &types.CacheEntry{Key: key, Value: value, WrittenAt: now}
	}
	cache.LastUpdated = now
}

// DeletePrefix removes every cached balance whose key starts with prefix
func (bs *BalanceStore) DeletePrefix(workspaceID, prefix string) int {
	cache, exists := bs.GetWorkspaceCache(workspaceID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	removed := 0
	for key := range cache.Balances {
		if strings.HasPrefix(key, prefix) {
			delete(cache.Balances, key)
			removed++
		}
	}
	if removed > 0 {
		cache.LastUpdated = time.Now().UTC()
	}
	return removed
}

// RecordHit and RecordMiss maintain session counters
func (bs *BalanceStore) RecordHit(workspaceID string) {
	if cache, exists := bs.GetWorkspaceCache(workspaceID); exists {
		cache.Mu.Lock()
		cache.Hits++
		cache.Mu.Unlock()
	}
}

func (bs *BalanceStore) RecordMiss(workspaceID string) {
	if cache, exists := bs.GetWorkspaceCache(workspaceID); exists {
		cache.Mu.Lock()
		cache.Misses++
		cache.Mu.Unlock()
	}
}
