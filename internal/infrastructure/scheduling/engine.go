package scheduling

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/interfaces"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/metrics"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/remote"
)

// Notifier pushes resolved keys to the host so it can re-render cells as
// partial batch results land.
type Notifier interface {
	NotifyResolved(workspaceID string, keys []ledger.BalanceKey)
}

// Config carries the engine's scheduling tunables.
type Config struct {
	DebounceWindow  time.Duration
	DebounceCeiling int
	Plan            PlanConfig
	RemoteTimeout   time.Duration
}

// Engine ties the scheduling pipeline together for one workspace: guard
// check, cache lookup, debounced queueing, grid detection, strategy planning,
// bounded dispatch, and result fan-out. The concurrency limiter is shared
// across workspaces; everything else is per-workspace state.
type Engine struct {
	workspaceID string
	cfg         Config
	queue       *Queue
	guard       *Guard
	limiter     *Limiter
	client      remote.Client
	cache       interfaces.BalanceCache
	preload     *PreloadCoordinator
	notifier    Notifier
	logger      *logging.ChanneledLogger
}

// NewEngine creates the engine for a workspace.
func NewEngine(workspaceID string, cfg Config, guard *Guard, limiter *Limiter, client remote.Client, cache interfaces.BalanceCache, notifier Notifier, logger *logging.ChanneledLogger) *Engine {
	e := &Engine{
		workspaceID: workspaceID,
		cfg:         cfg,
		guard:       guard,
		limiter:     limiter,
		client:      client,
		cache:       cache,
		preload:     NewPreloadCoordinator(),
		notifier:    notifier,
		logger:      logger,
	}
	e.queue = NewQueue(cfg.DebounceWindow, cfg.DebounceCeiling, e.flush, logger)
	return e
}

// Guard exposes the engine's transition guard for the filter endpoints.
func (e *Engine) Guard() *Guard { return e.guard }

// Resolve is the single entry point the host formula layer calls per cell.
// It blocks cooperatively until the balance resolves, the guard blocks it,
// or the context ends.
func (e *Engine) Resolve(ctx context.Context, account string, period ledger.Period, filters ledger.FilterSet) Outcome {
	fp := ledger.ComputeFingerprint(filters)

	// Guard first: never read or write cache for a combination mid-change.
	if e.guard.Check(fp) {
		metrics.RecordGuardBlocked()
		metrics.RecordCacheLookup("blocked")
		return Outcome{Status: ledger.StatusPending, Err: ledger.ErrGuardBlocked}
	}

	key := ledger.BalanceKey{Account: account, Period: period, Fingerprint: fp}
	if value, ok := e.cache.GetBalance(ctx, e.workspaceID, key); ok {
		return valueOutcome(value)
	}

	req := NewRequest(key, filters)
	e.queue.Enqueue(req)

	select {
	case outcome := <-req.Done():
		return outcome
	case <-ctx.Done():
		return Outcome{Err: ledger.NewFailure(ledger.FailTransient, ctx.Err())}
	}
}

// PreloadYear proactively range-fetches a reporting year for a set of
// accounts, unless the combination is already cached or in flight. Exactly
// one remote call results from any number of concurrent triggers.
func (e *Engine) PreloadYear(accounts []string, year int, filters ledger.FilterSet) {
	fp := ledger.ComputeFingerprint(filters)
	if e.guard.Check(fp) {
		return
	}
	_, isNew := e.preload.Begin(year, fp)
	if !isNew {
		return
	}
	if e.logger != nil {
		e.logger.Scheduler().Info("Preloading reporting year",
			slog.Int("year", year), slog.Int("accounts", len(accounts)))
	}

	go func() {
		release, err := e.limiter.Acquire(context.Background(), ClassHeavy)
		if err != nil {
			e.preload.Finish(year, fp, false)
			return
		}
		defer release()

		call := &PlannedCall{
			Strategy:    StrategyRange,
			Fingerprint: fp,
			Filters:     filters,
			Accounts:    accounts,
			Year:        year,
		}
		metrics.RecordBatch(string(StrategyRange), 0)
		ok := e.execute(context.Background(), call)
		e.preload.Finish(year, fp, ok)
	}()
}

// flush runs when the debounce timer fires or the ceiling is hit. It settles
// anything that resolved while queued, parks keys covered by an in-flight
// year fetch, and plans remote calls for the rest.
func (e *Engine) flush(batch []*pending) {
	var plannable []*pending
	for _, p := range batch {
		// The guard may have started a transition while the key sat queued.
		if e.guard.Check(p.Key.Fingerprint) {
			metrics.RecordGuardBlocked()
			e.resolveBlocked([]*pending{p})
			continue
		}
		// A preload or an earlier batch may have cached the key meanwhile.
		if value, ok := e.cache.GetBalance(context.Background(), e.workspaceID, p.Key); ok {
			for _, taken := range e.queue.Take(p.CacheKey) {
				taken.ResolveAll(valueOutcome(value))
			}
			continue
		}
		// A year fetch in flight for this (year, fingerprint) will cover the
		// key; join it instead of planning duplicate work.
		if op, inflight := e.preload.InflightFor(p.Key.Period.Year, p.Key.Fingerprint); inflight {
			go e.joinPreload(op, p)
			continue
		}
		plannable = append(plannable, p)
	}

	if len(plannable) == 0 {
		return
	}

	partitions := DetectGrids(plannable)
	calls := Plan(partitions, e.cfg.Plan)
	if e.logger != nil {
		e.logger.Scheduler().Debug("Planned remote calls",
			slog.Int("pendingKeys", len(plannable)),
			slog.Int("partitions", len(partitions)),
			slog.Int("calls", len(calls)))
	}

	for _, call := range calls {
		go e.dispatch(call)
	}
}

// joinPreload waits for an overlapping year fetch and then settles one key
// from cache, falling back to a direct light fetch when the preload did not
// cover it.
func (e *Engine) joinPreload(op *preloadOp, p *pending) {
	ctx := context.Background()
	op.Wait(ctx)

	if e.guard.Check(p.Key.Fingerprint) {
		e.resolveBlocked([]*pending{p})
		return
	}
	if value, ok := e.cache.GetBalance(ctx, e.workspaceID, p.Key); ok {
		for _, taken := range e.queue.Take(p.CacheKey) {
			taken.ResolveAll(valueOutcome(value))
		}
		return
	}

	release, err := e.limiter.Acquire(ctx, ClassLight)
	if err != nil {
		e.reject([]*pending{p}, ledger.NewFailure(ledger.FailTransient, err))
		return
	}
	defer release()

	e.execute(ctx, &PlannedCall{
		Strategy:    StrategyPoint,
		Fingerprint: p.Key.Fingerprint,
		Filters:     p.Filters,
		Accounts:    []string{p.Key.Account},
		Periods:     []ledger.Period{p.Key.Period},
		Members:     []*pending{p},
	})
}

// InvalidateFingerprint drops cached state for a filter combination.
func (e *Engine) InvalidateFingerprint(ctx context.Context, fp ledger.Fingerprint) error {
	return e.cache.InvalidateFingerprint(ctx, e.workspaceID, fp)
}

// Depth reports queue depth for observability.
func (e *Engine) Depth() (queued, inflight int) {
	return e.queue.Depth()
}
