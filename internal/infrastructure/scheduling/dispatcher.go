package scheduling

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/metrics"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/remote"
)

// dispatch issues one planned remote call under its concurrency budget and
// fans the response out to every waiting evaluation.
func (e *Engine) dispatch(call *PlannedCall) {
	ctx := context.Background()

	// A full-range call doubles as the preload for its (year, fingerprint):
	// register it before taking a slot, so concurrent discoveries of the
	// same year join this operation instead of issuing their own. Joiners
	// must never hold a slot while waiting: the owner may still be queued
	// for that very slot.
	if call.Strategy == StrategyRange {
		op, isNew := e.preload.Begin(call.Year, call.Fingerprint)
		if !isNew {
			op.Wait(ctx)
			e.settleFromCacheOrFetch(ctx, call)
			return
		}
	}

	class := ClassLight
	if call.Heavy() {
		class = ClassHeavy
	}
	release, err := e.limiter.Acquire(ctx, class)
	if err != nil {
		if call.Strategy == StrategyRange {
			e.preload.Finish(call.Year, call.Fingerprint, false)
		}
		e.reject(call.Members, ledger.NewFailure(ledger.FailTransient, err))
		return
	}
	defer release()

	metrics.RecordBatch(string(call.Strategy), len(call.Members))
	ok := e.execute(ctx, call)
	if call.Strategy == StrategyRange {
		e.preload.Finish(call.Year, call.Fingerprint, ok)
	}
}

// execute performs the remote call for a planned batch and delivers the
// result. It reports whether the response was committed to cache.
func (e *Engine) execute(ctx context.Context, call *PlannedCall) bool {
	start := time.Now()
	matrix, err := e.lookup(ctx, call)
	elapsed := time.Since(start)

	metrics.ObserveRemoteDuration(string(call.Strategy), elapsed.Seconds())
	if e.logger != nil {
		e.logger.LogRemoteCall(string(call.Strategy), len(call.Accounts), len(call.Periods), elapsed, err)
	}

	if err != nil {
		if kind := ledger.FailureKindOf(err); kind != "" {
			metrics.RecordRemoteFailure(string(kind))
		}
		e.reject(call.Members, err)
		return false
	}

	return e.deliver(ctx, call, matrix)
}

// lookup issues the strategy's call shape. All shapes reduce to the same
// underlying collaborator query; only the period-set differs.
func (e *Engine) lookup(ctx context.Context, call *PlannedCall) (remote.BalanceMatrix, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	defer cancel()

	if call.Strategy == StrategyRange {
		return e.client.LookupYear(ctx, call.Accounts, call.Year, call.Filters)
	}
	return e.client.LookupPeriods(ctx, call.Accounts, call.Periods, call.Filters)
}

// deliver commits a successful response and resolves the waiters. The guard
// is consulted once more at resolution time: if the fingerprint went stale
// between dispatch and response, the response is discarded for cache-write
// purposes and waiters receive the neutral pending signal, never the stale
// value.
func (e *Engine) deliver(ctx context.Context, call *PlannedCall, matrix remote.BalanceMatrix) bool {
	if e.guard.Check(call.Fingerprint) {
		metrics.RecordGuardBlocked()
		if e.logger != nil {
			e.logger.Scheduler().Warn("Discarding response: fingerprint went stale in flight",
				slog.String("strategy", string(call.Strategy)))
		}
		e.resolveBlocked(call.Members)
		return false
	}

	covered := e.coveredPeriods(call)
	entries := make(map[ledger.BalanceKey]float64, len(call.Accounts)*len(covered))
	for _, account := range call.Accounts {
		for _, period := range covered {
			key := ledger.BalanceKey{Account: account, Period: period, Fingerprint: call.Fingerprint}
			value, ok := matrix.Value(account, period)
			if !ok {
				// Absent pair: the collaborator computed the period and found
				// no activity. Zero is the data answer and is cacheable.
				value = 0
			}
			entries[key] = value
		}
	}

	if err := e.cache.SetBalances(ctx, e.workspaceID, entries); err != nil && e.logger != nil {
		e.logger.Cache().Warn("Cache commit failed; values still resolve",
			slog.String("error", err.Error()))
	}

	keys := make([]string, 0, len(call.Members))
	for _, m := range call.Members {
		keys = append(keys, m.CacheKey)
	}
	for _, p := range e.queue.Take(keys...) {
		value := entries[p.Key]
		p.ResolveAll(valueOutcome(value))
	}

	if e.notifier != nil {
		resolved := make([]ledger.BalanceKey, 0, len(entries))
		for key := range entries {
			resolved = append(resolved, key)
		}
		e.notifier.NotifyResolved(e.workspaceID, resolved)
	}
	return true
}

// settleFromCacheOrFetch resolves members after an overlapping year fetch
// completed: cache hits resolve immediately and any residue is fetched as a
// period batch under its own slot.
func (e *Engine) settleFromCacheOrFetch(ctx context.Context, call *PlannedCall) {
	var residue []*pending
	for _, m := range call.Members {
		if value, ok := e.cache.GetBalance(ctx, e.workspaceID, m.Key); ok {
			for _, p := range e.queue.Take(m.CacheKey) {
				p.ResolveAll(valueOutcome(value))
			}
			continue
		}
		residue = append(residue, m)
	}
	if len(residue) == 0 {
		return
	}

	grids := DetectGrids(residue)
	for _, gp := range grids {
		e.dispatch(&PlannedCall{
			Strategy:    StrategyColumn,
			Fingerprint: gp.Fingerprint,
			Filters:     gp.Filters,
			Accounts:    gp.Accounts,
			Periods:     gp.Periods,
			Members:     gp.Members,
		})
	}
}

// reject fails every waiter with the classified error and releases the keys.
func (e *Engine) reject(members []*pending, err error) {
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, m.CacheKey)
	}
	for _, p := range e.queue.Take(keys...) {
		p.ResolveAll(Outcome{Err: err})
	}
}

// resolveBlocked resolves waiters with the guard's neutral pending signal.
func (e *Engine) resolveBlocked(members []*pending) {
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, m.CacheKey)
	}
	for _, p := range e.queue.Take(keys...) {
		p.ResolveAll(Outcome{Status: ledger.StatusPending, Err: ledger.ErrGuardBlocked})
	}
}

// coveredPeriods lists every period the call's response legitimately
// answers: the whole reporting year for a range call, the requested run
// otherwise.
func (e *Engine) coveredPeriods(call *PlannedCall) []ledger.Period {
	if call.Strategy == StrategyRange {
		return ledger.Period{Month: 1, Year: call.Year}.ReportingYear()
	}
	return call.Periods
}

// valueOutcome classifies a resolved value for the host: zero renders as the
// distinguished no-activity state, never as an error and never vice versa.
func valueOutcome(value float64) Outcome {
	status := ledger.StatusOK
	if value == 0 {
		status = ledger.StatusNoActivity
	}
	return Outcome{Value: value, Status: status}
}
