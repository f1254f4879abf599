package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("Jan 2025")
	require.NoError(t, err)
	assert.Equal(t, time.January, p.Month)
	assert.Equal(t, 2025, p.Year)

	p, err = ParsePeriod("  December 2024 ")
	require.NoError(t, err)
	assert.Equal(t, time.December, p.Month)
	assert.Equal(t, 2024, p.Year)

	for _, bad := range []string{"", "2025", "Jan", "Foo 2025", "Jan 2025 extra"} {
		_, err := ParsePeriod(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "Jan 2025", Period{Month: time.January, Year: 2025}.String())
	assert.Equal(t, "Sep 2024", Period{Month: time.September, Year: 2024}.String())
}

func TestPeriodRoundTrip(t *testing.T) {
	p, err := ParsePeriod("Mar 2023")
	require.NoError(t, err)
	back, err := ParsePeriod(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestPeriodBefore(t *testing.T) {
	jan25 := Period{Month: time.January, Year: 2025}
	feb25 := Period{Month: time.February, Year: 2025}
	dec24 := Period{Month: time.December, Year: 2024}

	assert.True(t, jan25.Before(feb25))
	assert.True(t, dec24.Before(jan25))
	assert.False(t, feb25.Before(jan25))
	assert.False(t, jan25.Before(jan25))
}

func TestReportingYear(t *testing.T) {
	year := Period{Month: time.July, Year: 2025}.ReportingYear()
	require.Len(t, year, 12)
	assert.Equal(t, Period{Month: time.January, Year: 2025}, year[0])
	assert.Equal(t, Period{Month: time.December, Year: 2025}, year[11])
	for _, p := range year {
		assert.Equal(t, 2025, p.Year)
	}
}

func TestCacheKeyLayout(t *testing.T) {
	fp := ComputeFingerprint(FilterSet{Book: "Primary"})
	key := BalanceKey{
		Account:     "4000",
		Period:      Period{Month: time.January, Year: 2025},
		Fingerprint: fp,
	}

	cacheKey := key.CacheKey(2)
	assert.Equal(t, "bal:v2:"+fp.Digest()+":4000:Jan 2025", cacheKey)

	assert.True(t, len(FingerprintPrefix(2, fp)) < len(cacheKey))
	assert.Contains(t, cacheKey, FingerprintPrefix(2, fp))
	assert.Contains(t, cacheKey, EpochPrefix(2))
}

func TestFailureTaxonomy(t *testing.T) {
	transient := NewFailure(FailTransient, assert.AnError)
	assert.True(t, transient.Retryable())
	assert.Equal(t, FailTransient, FailureKindOf(transient))

	auth := NewFailure(FailAuth, assert.AnError)
	assert.False(t, auth.Retryable())
	assert.Equal(t, FailAuth, FailureKindOf(auth))

	assert.Equal(t, FailureKind(""), FailureKindOf(assert.AnError))
}
