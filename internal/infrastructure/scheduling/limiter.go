package scheduling

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/metrics"
)

// CallClass partitions remote calls for concurrency budgeting.
type CallClass int

const (
	ClassLight CallClass = iota // point lookups, row batches, metadata
	ClassHeavy                  // column batches and full-range queries
)

// Limiter bounds simultaneous outbound remote calls with separate budgets for
// heavy and light classes, protecting the transport and the data source no
// matter how many formulas the host evaluates. One Limiter is shared by all
// workspaces.
type Limiter struct {
	heavy *semaphore.Weighted
	light *semaphore.Weighted
}

// NewLimiter creates a limiter with the given class ceilings.
func NewLimiter(heavyCeiling, lightCeiling int) *Limiter {
	if heavyCeiling <= 0 {
		heavyCeiling = 4
	}
	if lightCeiling <= 0 {
		lightCeiling = 16
	}
	return &Limiter{
		heavy: semaphore.NewWeighted(int64(heavyCeiling)),
		light: semaphore.NewWeighted(int64(lightCeiling)),
	}
}

// Acquire blocks until a slot for the class frees, or the context ends. The
// returned release function is safe to call exactly once and must run on
// every path, including failures, so one failed call can never starve the
// budget.
func (l *Limiter) Acquire(ctx context.Context, class CallClass) (release func(), err error) {
	switch class {
	case ClassHeavy:
		if err := l.heavy.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquiring heavy slot: %w", err)
		}
		metrics.HeavyAcquired()
		return func() {
			l.heavy.Release(1)
			metrics.HeavyReleased()
		}, nil
	default:
		if err := l.light.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquiring light slot: %w", err)
		}
		metrics.LightAcquired()
		return func() {
			l.light.Release(1)
			metrics.LightReleased()
		}, nil
	}
}
