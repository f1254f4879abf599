package scheduling

import (
	"sort"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
)

// Shape classifies one fingerprint partition of the queue snapshot.
type Shape string

const (
	ShapePoint Shape = "point" // single account or single period, too small to batch
	ShapeRow   Shape = "row"   // ≥2 accounts, exactly one period
	ShapeGrid  Shape = "grid"  // ≥2 accounts and ≥2 periods
)

// GridPartition is the subset of a queue snapshot sharing one filter
// fingerprint. Mismatched fingerprints are a hard boundary: partitions are
// never merged, however similar their members look.
type GridPartition struct {
	Fingerprint ledger.Fingerprint
	Filters     ledger.FilterSet
	Accounts    []string
	Periods     []ledger.Period
	Members     []*pending
}

// Shape classifies the partition for strategy selection.
func (gp *GridPartition) Shape() Shape {
	switch {
	case len(gp.Accounts) >= 2 && len(gp.Periods) >= 2:
		return ShapeGrid
	case len(gp.Accounts) >= 2 && len(gp.Periods) == 1:
		return ShapeRow
	default:
		return ShapePoint
	}
}

// DetectGrids partitions a queue snapshot by fingerprint and computes each
// partition's distinct account and period axes, sorted for deterministic
// downstream planning.
func DetectGrids(snapshot []*pending) []*GridPartition {
	byFP := make(map[ledger.Fingerprint]*GridPartition)
	var order []ledger.Fingerprint

	for _, p := range snapshot {
		fp := p.Key.Fingerprint
		gp, ok := byFP[fp]
		if !ok {
			gp = &GridPartition{Fingerprint: fp, Filters: p.Filters}
			byFP[fp] = gp
			order = append(order, fp)
		}
		gp.Members = append(gp.Members, p)
	}

	out := make([]*GridPartition, 0, len(order))
	for _, fp := range order {
		gp := byFP[fp]
		gp.Accounts = distinctAccounts(gp.Members)
		gp.Periods = distinctPeriods(gp.Members)
		out = append(out, gp)
	}
	return out
}

func distinctAccounts(members []*pending) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range members {
		if !seen[m.Key.Account] {
			seen[m.Key.Account] = true
			out = append(out, m.Key.Account)
		}
	}
	sort.Strings(out)
	return out
}

func distinctPeriods(members []*pending) []ledger.Period {
	seen := make(map[ledger.Period]bool)
	var out []ledger.Period
	for _, m := range members {
		if !seen[m.Key.Period] {
			seen[m.Key.Period] = true
			out = append(out, m.Key.Period)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
