package workspace

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/manager"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/remote"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/scheduling"
	"github.com/ledgercell/ledgercell-go/pkg/config"
)

// WorkspaceHeader carries the workspace ID on every API request.
const WorkspaceHeader = "X-Workspace-ID"

var workspaceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// Manager coordinates workspace detection and context creation. The cache
// manager, concurrency limiter, and remote client are shared across all
// workspaces; engines and guards are per-workspace.
type Manager struct {
	cacheManager   *manager.Manager
	limiter        *scheduling.Limiter
	client         remote.Client
	notifier       scheduling.Notifier
	contexts       map[string]*Context
	contextMutexes sync.Map // per-workspace mutexes for fine-grained locking
	globalMutex    sync.RWMutex
	logger         *logging.ChanneledLogger
}

// NewManager creates and initializes a workspace manager.
func NewManager(cacheManager *manager.Manager, limiter *scheduling.Limiter, client remote.Client, notifier scheduling.Notifier, logger *logging.ChanneledLogger) *Manager {
	return &Manager{
		cacheManager: cacheManager,
		limiter:      limiter,
		client:       client,
		notifier:     notifier,
		contexts:     make(map[string]*Context),
		logger:       logger,
	}
}

// GetContext creates or retrieves the workspace context for a request.
func (m *Manager) GetContext(c *gin.Context) (*Context, error) {
	workspaceID := c.GetHeader(WorkspaceHeader)
	if workspaceID == "" {
		return nil, fmt.Errorf("missing %s header", WorkspaceHeader)
	}
	return m.GetContextFromID(workspaceID)
}

// GetContextFromID creates or retrieves a workspace context by ID.
func (m *Manager) GetContextFromID(workspaceID string) (*Context, error) {
	if !workspaceIDPattern.MatchString(workspaceID) {
		return nil, fmt.Errorf("invalid workspace id %q", workspaceID)
	}

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[workspaceID]; exists {
		m.globalMutex.RUnlock()
		ctx.Touch()
		return ctx, nil
	}
	m.globalMutex.RUnlock()

	wsMutexInterface, _ := m.contextMutexes.LoadOrStore(workspaceID, &sync.Mutex{})
	wsMutex := wsMutexInterface.(*sync.Mutex)

	wsMutex.Lock()
	defer wsMutex.Unlock()

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[workspaceID]; exists {
		m.globalMutex.RUnlock()
		ctx.Touch()
		return ctx, nil
	}
	m.globalMutex.RUnlock()

	return m.createContext(workspaceID)
}

// createContext builds a fresh workspace context.
func (m *Manager) createContext(workspaceID string) (*Context, error) {
	m.globalMutex.RLock()
	count := len(m.contexts)
	m.globalMutex.RUnlock()
	if count >= config.MaxWorkspaces {
		if evicted := m.evictIdlest(); !evicted {
			return nil, fmt.Errorf("workspace limit reached (%d)", config.MaxWorkspaces)
		}
	}

	guard := scheduling.NewGuard(config.GuardStaleness, m.logger)
	engineCfg := scheduling.Config{
		DebounceWindow:  config.DebounceWindow,
		DebounceCeiling: config.DebounceCeiling,
		Plan: scheduling.PlanConfig{
			ColumnWidth:    config.ColumnBatchWidth,
			ColumnMin:      config.ColumnBatchMin,
			RangeThreshold: config.RangeThreshold,
		},
		RemoteTimeout: config.RemoteTimeout,
	}
	engine := scheduling.NewEngine(workspaceID, engineCfg, guard, m.limiter, m.client, m.cacheManager, m.notifier, m.logger)

	m.cacheManager.InitializeWorkspace(workspaceID)

	ctx := &Context{
		WorkspaceID:  workspaceID,
		Engine:       engine,
		CacheManager: m.cacheManager,
		Logger:       m.logger,
		CreatedAt:    time.Now(),
	}
	ctx.Touch()

	m.globalMutex.Lock()
	m.contexts[workspaceID] = ctx
	m.globalMutex.Unlock()

	if m.logger != nil {
		m.logger.Workspace().Info("Workspace context created",
			slog.String("workspaceId", workspaceID))
	}
	return ctx, nil
}

// evictIdlest drops the longest-idle workspace that has exceeded the idle
// timeout. Returns false when every workspace is still active.
func (m *Manager) evictIdlest() bool {
	m.globalMutex.Lock()
	defer m.globalMutex.Unlock()

	var victim *Context
	for _, ctx := range m.contexts {
		if ctx.IdleFor() < config.WorkspaceTimeout {
			continue
		}
		if victim == nil || ctx.LastActive().Before(victim.LastActive()) {
			victim = ctx
		}
	}
	if victim == nil {
		return false
	}

	delete(m.contexts, victim.WorkspaceID)
	if m.logger != nil {
		m.logger.Workspace().Info("Workspace evicted after inactivity",
			slog.String("workspaceId", victim.WorkspaceID),
			slog.Duration("idle", victim.IdleFor()))
	}
	return true
}

// ActiveWorkspaceIDs lists currently materialized workspaces.
func (m *Manager) ActiveWorkspaceIDs() []string {
	m.globalMutex.RLock()
	defer m.globalMutex.RUnlock()
	ids := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		ids = append(ids, id)
	}
	return ids
}

// GetCacheManager returns the shared cache manager.
func (m *Manager) GetCacheManager() *manager.Manager {
	return m.cacheManager
}

// GetLogger returns the logger for middleware access.
func (m *Manager) GetLogger() *logging.ChanneledLogger {
	return m.logger
}

// Close drops all workspace contexts.
func (m *Manager) Close() error {
	m.globalMutex.Lock()
	defer m.globalMutex.Unlock()
	m.contexts = make(map[string]*Context)
	return nil
}
