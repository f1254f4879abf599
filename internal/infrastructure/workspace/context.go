// Package workspace manages per-workbook state, isolating connected hosts
// from each other. Every connected workbook gets one workspace holding its
// filter state, transition guard, and scheduling engine.
package workspace

import (
	"sync"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/manager"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/scheduling"
)

// Context holds workspace-specific request context.
type Context struct {
	WorkspaceID  string
	Engine       *scheduling.Engine
	CacheManager *manager.Manager
	Logger       *logging.ChanneledLogger
	CreatedAt    time.Time

	mu         sync.RWMutex
	filters    ledger.FilterSet
	lastActive time.Time
}

// GetWorkspaceID returns the workspace ID for this context.
func (ctx *Context) GetWorkspaceID() string {
	return ctx.WorkspaceID
}

// Filters returns the workspace's current filter selection.
func (ctx *Context) Filters() ledger.FilterSet {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.filters
}

// SetFilters replaces the workspace's filter selection.
func (ctx *Context) SetFilters(fs ledger.FilterSet) {
	ctx.mu.Lock()
	ctx.filters = fs
	ctx.mu.Unlock()
}

// Guard returns the workspace's transition guard.
func (ctx *Context) Guard() *scheduling.Guard {
	return ctx.Engine.Guard()
}

// Touch records activity for idle eviction.
func (ctx *Context) Touch() {
	ctx.mu.Lock()
	ctx.lastActive = time.Now()
	ctx.mu.Unlock()
}

// LastActive reports the most recent activity time.
func (ctx *Context) LastActive() time.Time {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.lastActive
}

// IdleFor reports how long the workspace has been inactive.
func (ctx *Context) IdleFor() time.Duration {
	return time.Since(ctx.LastActive())
}
