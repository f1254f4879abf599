package scheduling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
)

// TransitionRecord tracks one filter dimension mid-change: the old value is
// known stale and the new value is not yet confirmed. While the record is
// active, any evaluation whose fingerprint still carries the old value is
// short-circuited.
type TransitionRecord struct {
	Dimension ledger.Dimension
	OldValue  string
	NewValue  string // empty until the compatible replacement is confirmed
	CreatedAt time.Time
}

// Guard is the transition guard state machine. It is consulted as the very
// first step of every formula evaluation, before any cache read, and again by
// the dispatcher before any cache write. One Guard exists per workspace.
type Guard struct {
	mu        sync.Mutex
	records   map[ledger.Dimension]*TransitionRecord
	staleness time.Duration
	logger    *logging.ChanneledLogger
}

// NewGuard creates a guard whose records expire after the staleness window.
// Expiry is a safety net: a dropped confirmation must not block evaluation
// forever.
func NewGuard(staleness time.Duration, logger *logging.ChanneledLogger) *Guard {
	return &Guard{
		records:   make(map[ledger.Dimension]*TransitionRecord),
		staleness: staleness,
		logger:    logger,
	}
}

// Begin records that a dimension's current value is now stale. Selecting a
// new accounting book, for example, invalidates the subsidiary selection
// until a compatible one is confirmed.
func (g *Guard) Begin(dimension ledger.Dimension, oldValue string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.records[dimension] = &TransitionRecord{
		Dimension: dimension,
		OldValue:  oldValue,
		CreatedAt: time.Now().UTC(),
	}
	if g.logger != nil {
		g.logger.Guard().Info("Transition started",
			slog.String("dimension", string(dimension)),
			slog.String("oldValue", oldValue))
	}
}

// Confirm fills in the replacement value. The record stays active until an
// evaluation is observed using a fingerprint that reflects the new value;
// that evaluation clears it.
func (g *Guard) Confirm(dimension ledger.Dimension, newValue string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[dimension]
	if !ok {
		return
	}
	rec.NewValue = newValue
	if g.logger != nil {
		g.logger.Guard().Info("Transition confirmed",
			slog.String("dimension", string(dimension)),
			slog.String("newValue", newValue))
	}
}

// Check reports whether an evaluation using the given fingerprint must be
// blocked. A fingerprint matching a record's confirmed new value clears the
// record (transition complete); clearing is idempotent across concurrent
// observers. Expired records are discarded without retroactively validating
// anything already blocked.
func (g *Guard) Check(fp ledger.Fingerprint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	blocked := false
	for dim, rec := range g.records {
		if g.staleness > 0 && now.Sub(rec.CreatedAt) > g.staleness {
			delete(g.records, dim)
			if g.logger != nil {
				g.logger.Guard().Warn("Transition record expired without confirmation",
					slog.String("dimension", string(dim)),
					slog.String("oldValue", rec.OldValue))
			}
			continue
		}
		if rec.NewValue != "" && fp.Encodes(dim, rec.NewValue) {
			delete(g.records, dim)
			if g.logger != nil {
				g.logger.Guard().Info("Transition complete",
					slog.String("dimension", string(dim)),
					slog.String("newValue", rec.NewValue))
			}
			continue
		}
		if fp.Encodes(dim, rec.OldValue) {
			blocked = true
		}
	}
	return blocked
}

// Active returns a snapshot of the in-flight transition records.
func (g *Guard) Active() []TransitionRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]TransitionRecord, 0, len(g.records))
	for _, rec := range g.records {
		out = append(out, *rec)
	}
	return out
}
