package services

import (
	"context"
	"fmt"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/types"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/messaging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
)

// CacheService exposes cache administration: stats for diagnostics and
// explicit invalidation for when the remote ledger itself has changed.
type CacheService struct {
	broadcaster messaging.Broadcaster
}

// NewCacheService creates a new cache application service.
func NewCacheService(broadcaster messaging.Broadcaster) *CacheService {
	return &CacheService{broadcaster: broadcaster}
}

// Stats reports hit rates and entry counts for a workspace.
func (s *CacheService) Stats(ctx context.Context, wsCtx *workspace.Context) (types.CacheStats, error) {
	return wsCtx.CacheManager.Stats(ctx, wsCtx.WorkspaceID)
}

// InvalidateCurrent drops every cached balance for the workspace's current
// filter combination. Used when the underlying ledger data changed and the
// host asks for fresh numbers.
func (s *CacheService) InvalidateCurrent(ctx context.Context, wsCtx *workspace.Context) error {
	fp := ledger.ComputeFingerprint(wsCtx.Filters())
	if err := wsCtx.Engine.InvalidateFingerprint(ctx, fp); err != nil {
		return fmt.Errorf("invalidate fingerprint: %w", err)
	}
	if s.broadcaster != nil {
		s.broadcaster.NotifyInvalidated(wsCtx.WorkspaceID, "manual invalidation")
	}
	return nil
}
