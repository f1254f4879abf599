package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Period is one accounting period, named "Jan 2025" style. The reporting
// year groups periods for bulk-fetch decisions.
type Period struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// ParsePeriod parses a "Mon YYYY" period name as produced by the ledger
// service (e.g. "Jan 2025"). Full month names are accepted too.
func ParsePeriod(name string) (Period, error) {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) != 2 {
		return Period{}, fmt.Errorf("invalid period name %q", name)
	}
	mon := fields[0]
	if len(mon) > 3 {
		mon = mon[:3]
	}
	t, err := time.Parse("Jan 2006", mon+" "+fields[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period name %q: %w", name, err)
	}
	return Period{Month: t.Month(), Year: t.Year()}, nil
}

// String renders the canonical period name.
func (p Period) String() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month).String()[:3], p.Year)
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// Before orders periods chronologically.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// ReportingYear returns the twelve periods of the period's year, January
// through December. Reporting years follow the calendar year.
func (p Period) ReportingYear() []Period {
	year := make([]Period, 0, 12)
	for m := time.January; m <= time.December; m++ {
		year = append(year, Period{Month: m, Year: p.Year})
	}
	return year
}
