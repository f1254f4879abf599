// Package types defines cache data structures shared by stores and manager
package types

import (
	"sync"
	"time"
)

// CacheEntry is one cached balance. An entry is only ever written after a
// successful remote response for its exact key.
type CacheEntry struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	WrittenAt time.Time `json:"writtenAt"`
}

// WorkspaceBalanceCache is the in-memory mirror of the durable cache for one
// workspace session.
type WorkspaceBalanceCache struct {
	Mu          sync.RWMutex
	Balances    map[string]*CacheEntry
	LastUpdated time.Time

	// Session counters
	Hits   int64
	Misses int64
}

// CacheStats is a point-in-time snapshot for observability endpoints.
type CacheStats struct {
	WorkspaceID  string    `json:"workspaceId"`
	MemoryKeys   int       `json:"memoryKeys"`
	DurableKeys  int64     `json:"durableKeys"`
	Hits         int64     `json:"hits"`
	Misses       int64     `json:"misses"`
	LastUpdated  time.Time `json:"lastUpdated"`
	CurrentEpoch int       `json:"currentEpoch"`
}
