// Package ledger defines the core financial entities: accounts, periods,
// filter dimensions, and balance outcomes.
package ledger

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// FilterSet holds one concrete value per variable filter dimension.
// Empty string means "dimension not constrained".
type FilterSet struct {
	Subsidiary string `json:"subsidiary"`
	Department string `json:"department"`
	Location   string `json:"location"`
	Class      string `json:"class"`
	Book       string `json:"book"`
}

// Dimension names the independent filter selectors.
type Dimension string

const (
	DimSubsidiary Dimension = "subsidiary"
	DimDepartment Dimension = "department"
	DimLocation   Dimension = "location"
	DimClass      Dimension = "class"
	DimBook       Dimension = "book"
)

// Value returns the filter value for a dimension.
func (f FilterSet) Value(d Dimension) string {
	switch d {
	case DimSubsidiary:
		return f.Subsidiary
	case DimDepartment:
		return f.Department
	case DimLocation:
		return f.Location
	case DimClass:
		return f.Class
	case DimBook:
		return f.Book
	}
	return ""
}

// Fingerprint is the canonical string encoding of a FilterSet. Two requests
// are batchable only when their fingerprints are identical. A fingerprint is
// never mutated; a filter change produces a new one.
type Fingerprint string

// NormalizeSubsidiary strips the consolidated-view suffix so that a
// subsidiary selected from a consolidated report matches its plain identity.
func NormalizeSubsidiary(name string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), "(Consolidated)"))
}

// ComputeFingerprint canonicalizes a FilterSet. Field order is fixed, values
// are trimmed, and the subsidiary is normalized, so logically equal filter
// states always yield the same string.
func ComputeFingerprint(f FilterSet) Fingerprint {
	parts := []string{
		"sub=" + NormalizeSubsidiary(f.Subsidiary),
		"dept=" + strings.TrimSpace(f.Department),
		"loc=" + strings.TrimSpace(f.Location),
		"class=" + strings.TrimSpace(f.Class),
		"book=" + strings.TrimSpace(f.Book),
	}
	return Fingerprint(strings.Join(parts, "|"))
}

// Digest returns a short stable hex digest of the fingerprint, used inside
// cache keys where the full canonical string would be unwieldy.
func (fp Fingerprint) Digest() string {
	sum := blake2b.Sum256([]byte(fp))
	return hex.EncodeToString(sum[:12])
}

// Encodes reports whether this fingerprint carries the given value for the
// given dimension. Used by the transition guard to match a fingerprint
// against a TransitionRecord's old or new value.
func (fp Fingerprint) Encodes(d Dimension, value string) bool {
	needle := dimensionTag(d) + "=" + strings.TrimSpace(value)
	if d == DimSubsidiary {
		needle = "sub=" + NormalizeSubsidiary(value)
	}
	for _, part := range strings.Split(string(fp), "|") {
		if part == needle {
			return true
		}
	}
	return false
}

func dimensionTag(d Dimension) string {
	switch d {
	case DimSubsidiary:
		return "sub"
	case DimDepartment:
		return "dept"
	case DimLocation:
		return "loc"
	case DimClass:
		return "class"
	case DimBook:
		return "book"
	}
	return string(d)
}
