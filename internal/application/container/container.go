// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"
	"log/slog"

	"github.com/ledgercell/ledgercell-go/internal/application/services"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/manager"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/messaging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/persistence/kvstore"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/remote"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/scheduling"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
	"github.com/ledgercell/ledgercell-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies.
type Container struct {
	// Application services (stateless singletons)
	BalanceService *services.BalanceService
	AccountService *services.AccountService
	PreloadService *services.PreloadService
	FilterService  *services.FilterService
	CacheService   *services.CacheService

	// Infrastructure dependencies
	WorkspaceManager *workspace.Manager
	CacheManager     *manager.Manager
	Broadcaster      *messaging.UpdateBroadcaster
	Limiter          *scheduling.Limiter
	RemoteClient     remote.Client
	Store            kvstore.Store
	Logger           *logging.ChanneledLogger
}

// NewContainer creates and wires all singleton services from configuration.
func NewContainer() (*Container, error) {
	logConfig := logging.DefaultLoggerConfig()
	logConfig.LogDirectory = config.LogDirectory
	if config.LogVerbose {
		logConfig.DefaultLevel = slog.LevelDebug
	}
	logger, err := logging.NewChanneledLogger(logConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize channeled logging: %w", err)
	}

	store, err := kvstore.Build(kvstore.Options{
		Backend:     config.CacheBackend,
		SQLitePath:  config.CacheSQLitePath,
		LibsqlURL:   config.CacheLibsqlURL,
		LibsqlToken: config.CacheLibsqlToken,
		RedisAddr:   config.CacheRedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open durable cache store: %w", err)
	}

	cacheManager := manager.NewManager(store, config.CacheEpoch, logger)
	limiter := scheduling.NewLimiter(config.HeavyConcurrency, config.LightConcurrency)
	client := remote.NewHTTPClient(config.RemoteBaseURL, config.RemoteAuthToken, config.RemoteTimeout, logger)
	broadcaster := messaging.NewUpdateBroadcaster(logger)
	workspaceManager := workspace.NewManager(cacheManager, limiter, client, broadcaster, logger)

	accountService := services.NewAccountService(client, limiter)

	return &Container{
		BalanceService: services.NewBalanceService(),
		AccountService: accountService,
		PreloadService: services.NewPreloadService(accountService),
		FilterService:  services.NewFilterService(broadcaster),
		CacheService:   services.NewCacheService(broadcaster),

		WorkspaceManager: workspaceManager,
		CacheManager:     cacheManager,
		Broadcaster:      broadcaster,
		Limiter:          limiter,
		RemoteClient:     client,
		Store:            store,
		Logger:           logger,
	}, nil
}

// Close releases infrastructure resources.
func (c *Container) Close() error {
	if err := c.WorkspaceManager.Close(); err != nil {
		return err
	}
	return c.Store.Close()
}
