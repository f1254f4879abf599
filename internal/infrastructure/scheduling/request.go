// Package scheduling implements the request-scheduling and cache-coherence
// engine: it collects formula-cell cache misses across a burst, classifies
// them into grid shapes, batches remote calls under a concurrency budget, and
// fans results back out to every waiting evaluation.
package scheduling

import (
	"sync/atomic"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/oklog/ulid/v2"
)

// Outcome is the terminal result of one formula request. Exactly one of the
// three shapes applies: a value (Status ok or noactivity), a guard block
// (Status pending), or an error.
type Outcome struct {
	Value  float64
	Status ledger.Status
	Err    error
}

// Request is one formula evaluation waiting on a balance. It carries its own
// resolution channel and is satisfied exactly once.
type Request struct {
	ID          string
	Key         ledger.BalanceKey
	Filters     ledger.FilterSet
	RequestedAt time.Time

	done      chan Outcome
	satisfied atomic.Bool
}

// NewRequest creates a request for one (account, period, fingerprint) triple.
func NewRequest(key ledger.BalanceKey, filters ledger.FilterSet) *Request {
	return &Request{
		ID:          ulid.Make().String(),
		Key:         key,
		Filters:     filters,
		RequestedAt: time.Now().UTC(),
		done:        make(chan Outcome, 1),
	}
}

// Resolve delivers the outcome to the waiting evaluation. Later calls are
// ignored, so a request can never observe two results.
func (r *Request) Resolve(o Outcome) {
	if r.satisfied.CompareAndSwap(false, true) {
		r.done <- o
	}
}

// Done exposes the resolution channel for the caller to wait on.
func (r *Request) Done() <-chan Outcome { return r.done }
