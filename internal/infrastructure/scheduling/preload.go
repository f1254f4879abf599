package scheduling

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
)

// PreloadCoordinator tracks full-range fetches per (reporting year,
// fingerprint) so that the first touch of any new period triggers exactly one
// bulk fetch, however many evaluations discover it simultaneously. State is a
// pending-set plus a completed-set, never a global counter, so new ranges
// appearing later in a session still preload.
type PreloadCoordinator struct {
	mu        sync.Mutex
	inflight  map[string]*preloadOp
	completed map[string]bool
}

type preloadOp struct {
	done chan struct{}
}

// NewPreloadCoordinator creates an empty coordinator.
func NewPreloadCoordinator() *PreloadCoordinator {
	return &PreloadCoordinator{
		inflight:  make(map[string]*preloadOp),
		completed: make(map[string]bool),
	}
}

func preloadKey(year int, fp ledger.Fingerprint) string {
	return fmt.Sprintf("%d|%s", year, fp.Digest())
}

// Begin registers intent to range-fetch a year under a fingerprint. When the
// combination is new, isNew is true and the caller owns the fetch; otherwise
// the returned op belongs to whoever got there first. Already-completed
// combinations return isNew=false with a closed op.
func (pc *PreloadCoordinator) Begin(year int, fp ledger.Fingerprint) (op *preloadOp, isNew bool) {
	key := preloadKey(year, fp)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if existing, ok := pc.inflight[key]; ok {
		return existing, false
	}
	if pc.completed[key] {
		closed := &preloadOp{done: make(chan struct{})}
		close(closed.done)
		return closed, false
	}
	op = &preloadOp{done: make(chan struct{})}
	pc.inflight[key] = op
	return op, true
}

// Finish resolves an in-flight operation. Only a successful fetch marks the
// combination completed; a failure clears the pending mark so a later touch
// may retry.
func (pc *PreloadCoordinator) Finish(year int, fp ledger.Fingerprint, ok bool) {
	key := preloadKey(year, fp)

	pc.mu.Lock()
	op, present := pc.inflight[key]
	if present {
		delete(pc.inflight, key)
	}
	if ok {
		pc.completed[key] = true
	}
	pc.mu.Unlock()

	if present {
		close(op.done)
	}
}

// InflightFor returns the pending operation for a combination, if any.
func (pc *PreloadCoordinator) InflightFor(year int, fp ledger.Fingerprint) (*preloadOp, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	op, ok := pc.inflight[preloadKey(year, fp)]
	return op, ok
}

// Completed reports whether a combination has already been range-fetched.
func (pc *PreloadCoordinator) Completed(year int, fp ledger.Fingerprint) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.completed[preloadKey(year, fp)]
}

// Wait blocks until the operation resolves or the context ends.
func (op *preloadOp) Wait(ctx context.Context) error {
	select {
	case <-op.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
