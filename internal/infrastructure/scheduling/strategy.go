package scheduling

import (
	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
)

// Strategy names the remote-call shape chosen for a group of pending keys.
// Every strategy issues the same underlying query to the collaborator, only
// the period-set argument differs, so values are identical across paths.
type Strategy string

const (
	StrategyPoint  Strategy = "point"  // one period, few accounts
	StrategyRow    Strategy = "row"    // one period, many accounts
	StrategyColumn Strategy = "column" // a small fixed-width run of periods
	StrategyRange  Strategy = "range"  // a full reporting year
)

// PlannedCall is one remote call the dispatcher will issue, together with the
// pending keys it covers.
type PlannedCall struct {
	Strategy    Strategy
	Fingerprint ledger.Fingerprint
	Filters     ledger.FilterSet
	Accounts    []string
	Periods     []ledger.Period // for StrategyRange: the requested periods; the call covers the whole Year
	Year        int             // set for StrategyRange
	Members     []*pending
}

// Heavy reports whether the call consumes a heavy concurrency slot.
// Range and column calls aggregate many cells; point and row lookups are
// light.
func (pc *PlannedCall) Heavy() bool {
	return pc.Strategy == StrategyRange || pc.Strategy == StrategyColumn
}

// PlanConfig carries the strategy thresholds. The range threshold is a tuning
// judgment, not load-bearing for correctness: any split produces identical
// values.
type PlanConfig struct {
	ColumnWidth    int // periods per column batch
	ColumnMin      int // minimum single-year period count to column-batch
	RangeThreshold int // single-year period count at which one full-range call wins
}

// Plan chooses the cheapest correct remote-call shapes for a set of detected
// partitions. A row partition is one call as it stands; everything else is
// grouped per reporting year first and each year planned independently.
func Plan(partitions []*GridPartition, cfg PlanConfig) []*PlannedCall {
	var calls []*PlannedCall
	for _, gp := range partitions {
		if gp.Shape() == ShapeRow {
			calls = append(calls, &PlannedCall{
				Strategy:    StrategyRow,
				Fingerprint: gp.Fingerprint,
				Filters:     gp.Filters,
				Accounts:    gp.Accounts,
				Periods:     gp.Periods,
				Members:     gp.Members,
			})
			continue
		}
		for _, yearGroup := range splitByYear(gp) {
			calls = append(calls, planYear(yearGroup, cfg)...)
		}
	}
	return calls
}

// yearGroup is one partition restricted to a single reporting year.
type yearGroup struct {
	fingerprint ledger.Fingerprint
	filters     ledger.FilterSet
	year        int
	accounts    []string
	periods     []ledger.Period
	members     []*pending
}

func splitByYear(gp *GridPartition) []*yearGroup {
	byYear := make(map[int]*yearGroup)
	var order []int
	for _, m := range gp.Members {
		y := m.Key.Period.Year
		yg, ok := byYear[y]
		if !ok {
			yg = &yearGroup{fingerprint: gp.Fingerprint, filters: gp.Filters, year: y}
			byYear[y] = yg
			order = append(order, y)
		}
		yg.members = append(yg.members, m)
	}
	out := make([]*yearGroup, 0, len(order))
	for _, y := range order {
		yg := byYear[y]
		yg.accounts = distinctAccounts(yg.members)
		yg.periods = distinctPeriods(yg.members)
		out = append(out, yg)
	}
	return out
}

// planYear applies the ordered policy within one reporting year:
//   - p ≤ 2: per-period fetches, deduplicated across accounts
//   - ColumnMin ≤ p < RangeThreshold: column batches of ColumnWidth periods,
//     so partial results stream back and populate the cache incrementally
//   - p ≥ RangeThreshold: one full-range call for the year
func planYear(yg *yearGroup, cfg PlanConfig) []*PlannedCall {
	p := len(yg.periods)

	if p >= cfg.RangeThreshold {
		return []*PlannedCall{{
			Strategy:    StrategyRange,
			Fingerprint: yg.fingerprint,
			Filters:     yg.filters,
			Accounts:    yg.accounts,
			Periods:     yg.periods,
			Year:        yg.year,
			Members:     yg.members,
		}}
	}

	if p >= cfg.ColumnMin {
		width := cfg.ColumnWidth
		if width <= 0 {
			width = 3
		}
		var calls []*PlannedCall
		for start := 0; start < p; start += width {
			end := start + width
			if end > p {
				end = p
			}
			run := yg.periods[start:end]
			calls = append(calls, &PlannedCall{
				Strategy:    StrategyColumn,
				Fingerprint: yg.fingerprint,
				Filters:     yg.filters,
				Accounts:    yg.accounts,
				Periods:     run,
				Members:     membersForPeriods(yg.members, run),
			})
		}
		return calls
	}

	// Too few periods for a bulk win: fetch each period independently, all
	// accounts for the period in one call.
	var calls []*PlannedCall
	for _, period := range yg.periods {
		run := []ledger.Period{period}
		members := membersForPeriods(yg.members, run)
		strategy := StrategyPoint
		if len(members) >= 2 {
			strategy = StrategyRow
		}
		calls = append(calls, &PlannedCall{
			Strategy:    strategy,
			Fingerprint: yg.fingerprint,
			Filters:     yg.filters,
			Accounts:    distinctAccounts(members),
			Periods:     run,
			Members:     members,
		})
	}
	return calls
}

func membersForPeriods(members []*pending, periods []ledger.Period) []*pending {
	want := make(map[ledger.Period]bool, len(periods))
	for _, p := range periods {
		want[p] = true
	}
	var out []*pending
	for _, m := range members {
		if want[m.Key.Period] {
			out = append(out, m)
		}
	}
	return out
}
