// Package kvstore provides the durable key→value store backing the balance
// cache across process restarts. Keys are opaque strings; no partial-key
// lookups exist, which forces a cache hit to be an exact, previously-answered
// combination.
package kvstore

import "context"

// Store is the durable backend contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (value float64, ok bool, err error)

	// Set writes one key. Writes are idempotent upserts.
	Set(ctx context.Context, key string, value float64) error

	// SetBatch writes many keys in one round trip.
	SetBatch(ctx context.Context, entries map[string]float64) error

	// DeletePrefix removes every key with the given prefix. Used for epoch
	// rollover and fingerprint-scoped invalidation.
	DeletePrefix(ctx context.Context, prefix string) error

	// Count reports the number of stored keys.
	Count(ctx context.Context) (int64, error)

	// Close releases the backend.
	Close() error
}
