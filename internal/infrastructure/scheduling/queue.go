package scheduling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
)

// pending collects every request waiting on one cache key. At most one remote
// operation is ever in flight per key; later arrivals join the waiter list
// instead of issuing new work.
type pending struct {
	Key      ledger.BalanceKey
	CacheKey string
	Filters  ledger.FilterSet
	Waiters  []*Request
}

// ResolveAll fans one outcome out to every waiter on the key.
func (p *pending) ResolveAll(o Outcome) {
	for _, w := range p.Waiters {
		w.Resolve(o)
	}
}

// dedupKey is the in-process identity of a balance key. It is distinct from
// the durable cache key: no epoch, full fingerprint.
func dedupKey(k ledger.BalanceKey) string {
	return string(k.Fingerprint) + "\x00" + k.Account + "\x00" + k.Period.String()
}

// Queue accumulates cache-miss requests across a burst of near-simultaneous
// evaluations and defers dispatch until arrivals quiet down or a ceiling is
// hit. It also owns the per-key dedup state for both queued and in-flight
// keys.
type Queue struct {
	mu       sync.Mutex
	window   time.Duration
	ceiling  int
	queued   map[string]*pending
	inflight map[string]*pending
	order    []string // queued keys in arrival order, for stable flushes
	timer    *time.Timer
	flush    func([]*pending)
	logger   *logging.ChanneledLogger
}

// NewQueue creates a queue that calls flush with a snapshot of the queued
// keys whenever the debounce window elapses without new arrivals, or
// immediately once ceiling keys have accumulated.
func NewQueue(window time.Duration, ceiling int, flush func([]*pending), logger *logging.ChanneledLogger) *Queue {
	return &Queue{
		window:   window,
		ceiling:  ceiling,
		queued:   make(map[string]*pending),
		inflight: make(map[string]*pending),
		flush:    flush,
		logger:   logger,
	}
}

// Enqueue registers a cache-miss request. Requests for a key already queued
// or already in flight join the existing operation; only a genuinely new key
// re-arms the debounce timer.
func (q *Queue) Enqueue(req *Request) {
	q.mu.Lock()

	cacheKey := dedupKey(req.Key)

	if p, ok := q.inflight[cacheKey]; ok {
		p.Waiters = append(p.Waiters, req)
		q.mu.Unlock()
		return
	}
	if p, ok := q.queued[cacheKey]; ok {
		p.Waiters = append(p.Waiters, req)
		q.mu.Unlock()
		return
	}

	q.queued[cacheKey] = &pending{
		Key:      req.Key,
		CacheKey: cacheKey,
		Filters:  req.Filters,
		Waiters:  []*Request{req},
	}
	q.order = append(q.order, cacheKey)

	if len(q.queued) >= q.ceiling {
		batch := q.drainLocked()
		q.mu.Unlock()
		if q.logger != nil {
			q.logger.Scheduler().Debug("Debounce ceiling hit", slog.Int("keys", len(batch)))
		}
		q.flush(batch)
		return
	}

	if q.timer == nil {
		q.timer = time.AfterFunc(q.window, q.fire)
	} else {
		q.timer.Reset(q.window)
	}
	q.mu.Unlock()
}

// fire runs on timer expiry and dispatches whatever accumulated.
func (q *Queue) fire() {
	q.mu.Lock()
	batch := q.drainLocked()
	q.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if q.logger != nil {
		q.logger.Scheduler().Debug("Debounce window elapsed", slog.Int("keys", len(batch)))
	}
	q.flush(batch)
}

// drainLocked moves every queued key to the in-flight set and returns the
// snapshot in arrival order. Caller holds q.mu.
func (q *Queue) drainLocked() []*pending {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	batch := make([]*pending, 0, len(q.queued))
	for _, key := range q.order {
		if p, ok := q.queued[key]; ok {
			batch = append(batch, p)
			q.inflight[key] = p
			delete(q.queued, key)
		}
	}
	q.order = q.order[:0]
	return batch
}

// Take removes in-flight keys once their operation resolved and returns the
// final pending entries. Waiters join a pending only while its key is still
// in the in-flight set, so the returned waiter lists are stable and nobody
// who joined the operation can be missed. Future misses for the same keys
// issue fresh work.
func (q *Queue) Take(keys ...string) []*pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*pending, 0, len(keys))
	for _, key := range keys {
		if p, ok := q.inflight[key]; ok {
			out = append(out, p)
			delete(q.inflight, key)
		}
	}
	return out
}

// Depth reports the queued and in-flight key counts.
func (q *Queue) Depth() (queued, inflight int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queued), len(q.inflight)
}
