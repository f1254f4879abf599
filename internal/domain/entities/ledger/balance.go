package ledger

import (
	"errors"
	"fmt"
)

// BalanceKey identifies one resolvable cell value: one account, one period,
// one fingerprint. It is the unit of caching, dedup, and dispatch.
type BalanceKey struct {
	Account     string
	Period      Period
	Fingerprint Fingerprint
}

// CacheKey builds the opaque durable-cache key for a balance. The epoch
// prefix allows clean invalidation across incompatible versions, and the
// fingerprint digest sits ahead of account and period so invalidation scoped
// to one filter state is a single prefix delete. Lookups are always by exact
// key; no partial-key reads exist.
func (k BalanceKey) CacheKey(epoch int) string {
	return fmt.Sprintf("bal:v%d:%s:%s:%s", epoch, k.Fingerprint.Digest(), k.Account, k.Period)
}

// FingerprintPrefix is the cache-key prefix covering every balance cached
// under the fingerprint in the given epoch.
func FingerprintPrefix(epoch int, fp Fingerprint) string {
	return fmt.Sprintf("bal:v%d:%s:", epoch, fp.Digest())
}

// EpochPrefix is the cache-key prefix covering everything in one epoch.
func EpochPrefix(epoch int) string {
	return fmt.Sprintf("bal:v%d:", epoch)
}

// Status classifies a resolved balance for the host.
type Status string

const (
	StatusOK         Status = "ok"
	StatusNoActivity Status = "noactivity"
	StatusPending    Status = "pending"
)

// FailureKind partitions everything that is not a value. Zero is always a
// data answer (NoActivity), never a stand-in for one of these.
type FailureKind string

const (
	FailTransient FailureKind = "transient" // timeout, rate limit, transport
	FailAuth      FailureKind = "auth"
	FailQuery     FailureKind = "query" // malformed or unsupported combination
)

// Failure is a non-value outcome from the remote collaborator. Failures are
// never written to the cache, so a later retry is free to succeed.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s failure", f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

// Retryable reports whether the host may usefully retry the same request.
func (f *Failure) Retryable() bool { return f.Kind == FailTransient }

// NewFailure wraps an underlying error with its taxonomy kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// ErrGuardBlocked signals that a formula evaluation was short-circuited
// because its filter combination is mid-transition. It is a neutral pending
// state, not an error condition: the host renders "not yet available" and
// re-evaluates once the transition completes.
var ErrGuardBlocked = errors.New("filter transition in progress")

// FailureKindOf extracts the taxonomy kind from an error chain, or "" when
// the error is not a classified remote failure.
func FailureKindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
