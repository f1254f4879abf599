package scheduling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/caching/manager"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/persistence/kvstore"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/remote"
)

// fakeClient answers from a fixed matrix and records every call.
type fakeClient struct {
	mu      sync.Mutex
	data    remote.BalanceMatrix
	calls   []fakeCall
	failErr error
	delay   time.Duration
}

type fakeCall struct {
	accounts []string
	periods  []ledger.Period
	year     int
	isYear   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(remote.BalanceMatrix)}
}

func (f *fakeClient) set(account, periodName string, value float64) {
	p, err := ledger.ParsePeriod(periodName)
	if err != nil {
		panic(err)
	}
	f.data.Set(account, p, value)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) LookupBalance(ctx context.Context, account string, period ledger.Period, filters ledger.FilterSet) (float64, error) {
	m, err := f.LookupPeriods(ctx, []string{account}, []ledger.Period{period}, filters)
	if err != nil {
		return 0, err
	}
	v, _ := m.Value(account, period)
	return v, nil
}

func (f *fakeClient) LookupPeriods(ctx context.Context, accounts []string, periods []ledger.Period, filters ledger.FilterSet) (remote.BalanceMatrix, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{accounts: accounts, periods: periods})
	failErr := f.failErr
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failErr != nil {
		return nil, failErr
	}

	out := make(remote.BalanceMatrix)
	for _, a := range accounts {
		for _, p := range periods {
			if v, ok := f.data.Value(a, p); ok {
				out.Set(a, p, v)
			}
		}
	}
	return out, nil
}

func (f *fakeClient) LookupYear(ctx context.Context, accounts []string, year int, filters ledger.FilterSet) (remote.BalanceMatrix, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{accounts: accounts, year: year, isYear: true})
	failErr := f.failErr
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failErr != nil {
		return nil, failErr
	}

	out := make(remote.BalanceMatrix)
	for _, a := range accounts {
		for _, p := range (ledger.Period{Month: 1, Year: year}).ReportingYear() {
			if v, ok := f.data.Value(a, p); ok {
				out.Set(a, p, v)
			}
		}
	}
	return out, nil
}

func (f *fakeClient) SearchAccounts(ctx context.Context, query ledger.AccountQuery, filters ledger.FilterSet) ([]ledger.Account, error) {
	return nil, nil
}

type countingNotifier struct{ notified int64 }

func (n *countingNotifier) NotifyResolved(workspaceID string, keys []ledger.BalanceKey) {
	atomic.AddInt64(&n.notified, int64(len(keys)))
}

func newTestEngine(t *testing.T, client remote.Client) (*Engine, *manager.Manager) {
	t.Helper()
	cacheManager := manager.NewManager(kvstore.NewMemoryStore(), 1, nil)
	cacheManager.InitializeWorkspace("ws-test")

	cfg := Config{
		DebounceWindow:  10 * time.Millisecond,
		DebounceCeiling: 500,
		Plan:            PlanConfig{ColumnWidth: 3, ColumnMin: 3, RangeThreshold: 12},
		RemoteTimeout:   5 * time.Second,
	}
	guard := NewGuard(30*time.Second, nil)
	limiter := NewLimiter(4, 16)
	engine := NewEngine("ws-test", cfg, guard, limiter, client, cacheManager, &countingNotifier{}, nil)
	return engine, cacheManager
}

var testFilters = ledger.FilterSet{Subsidiary: "Acme US", Book: "Primary"}

func mustPeriod(t *testing.T, name string) ledger.Period {
	t.Helper()
	p, err := ledger.ParsePeriod(name)
	require.NoError(t, err)
	return p
}

func TestEngineColdSingleCell(t *testing.T) {
	client := newFakeClient()
	client.set("4000", "Jan 2025", 1234.56)
	engine, _ := newTestEngine(t, client)

	outcome := engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
	require.NoError(t, outcome.Err)
	assert.Equal(t, 1234.56, outcome.Value)
	assert.Equal(t, ledger.StatusOK, outcome.Status)
	assert.Equal(t, 1, client.callCount())

	// Second evaluation is a pure cache hit: no second remote call.
	outcome = engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
	require.NoError(t, outcome.Err)
	assert.Equal(t, 1234.56, outcome.Value)
	assert.Equal(t, 1, client.callCount())
}

func TestEngineDedupManyToOne(t *testing.T) {
	client := newFakeClient()
	client.set("4000", "Jan 2025", 99)
	engine, _ := newTestEngine(t, client)

	// A burst of identical evaluations produces exactly one remote call.
	const n = 40
	var wg sync.WaitGroup
	outcomes := make([]Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
		}(i)
	}
	wg.Wait()

	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, 99.0, o.Value)
	}
	assert.Equal(t, 1, client.callCount())
}

func TestEngineGridBatchesAndCaches(t *testing.T) {
	client := newFakeClient()
	accounts := []string{"4000", "4100", "4200"}
	periods := []string{"Jan 2025", "Feb 2025", "Mar 2025", "Apr 2025"}
	for _, a := range accounts {
		for _, p := range periods {
			client.set(a, p, 10)
		}
	}
	engine, _ := newTestEngine(t, client)

	var wg sync.WaitGroup
	for _, a := range accounts {
		for _, p := range periods {
			wg.Add(1)
			go func(a, p string) {
				defer wg.Done()
				o := engine.Resolve(context.Background(), a, mustPeriod(t, p), testFilters)
				assert.NoError(t, o.Err)
				assert.Equal(t, 10.0, o.Value)
			}(a, p)
		}
	}
	wg.Wait()

	// 4 periods -> column batches of width 3: two calls, not twelve.
	assert.Equal(t, 2, client.callCount())
}

func TestEngineAbsentPairIsNoActivityZero(t *testing.T) {
	client := newFakeClient()
	client.set("4000", "Jan 2025", 50)
	// 4100 has no activity anywhere.
	engine, _ := newTestEngine(t, client)

	var wg sync.WaitGroup
	var active, inactive Outcome
	wg.Add(2)
	go func() {
		defer wg.Done()
		active = engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
	}()
	go func() {
		defer wg.Done()
		inactive = engine.Resolve(context.Background(), "4100", mustPeriod(t, "Jan 2025"), testFilters)
	}()
	wg.Wait()

	require.NoError(t, active.Err)
	require.NoError(t, inactive.Err)
	assert.Equal(t, 50.0, active.Value)
	assert.Equal(t, 0.0, inactive.Value)
	assert.Equal(t, ledger.StatusNoActivity, inactive.Status)

	// The zero was cached as data: re-asking does not re-fetch.
	before := client.callCount()
	again := engine.Resolve(context.Background(), "4100", mustPeriod(t, "Jan 2025"), testFilters)
	require.NoError(t, again.Err)
	assert.Equal(t, ledger.StatusNoActivity, again.Status)
	assert.Equal(t, before, client.callCount())
}

func TestEngineFailureNeverCached(t *testing.T) {
	client := newFakeClient()
	client.set("4000", "Jan 2025", 75)
	client.failErr = ledger.NewFailure(ledger.FailTransient, errors.New("rate limited"))
	engine, _ := newTestEngine(t, client)

	outcome := engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
	require.Error(t, outcome.Err)
	assert.Equal(t, ledger.FailTransient, ledger.FailureKindOf(outcome.Err))

	// The failure healed; the retry issues a fresh call and succeeds.
	client.mu.Lock()
	client.failErr = nil
	client.mu.Unlock()

	outcome = engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
	require.NoError(t, outcome.Err)
	assert.Equal(t, 75.0, outcome.Value)
	assert.Equal(t, 2, client.callCount())
}

func TestEngineGuardBlocksEvaluation(t *testing.T) {
	client := newFakeClient()
	engine, _ := newTestEngine(t, client)

	engine.Guard().Begin(ledger.DimBook, "Primary")

	outcome := engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
	assert.ErrorIs(t, outcome.Err, ledger.ErrGuardBlocked)
	assert.Equal(t, ledger.StatusPending, outcome.Status)
	assert.Equal(t, 0, client.callCount(), "a blocked evaluation must not reach the remote")
}

func TestEngineNoPollutionUnderTransition(t *testing.T) {
	client := newFakeClient()
	client.set("4000", "Jan 2025", 500)
	client.delay = 50 * time.Millisecond
	engine, cacheManager := newTestEngine(t, client)

	// Evaluation departs under the old filters; the book changes while the
	// remote call is in flight.
	done := make(chan Outcome, 1)
	go func() {
		done <- engine.Resolve(context.Background(), "4000", mustPeriod(t, "Jan 2025"), testFilters)
	}()

	time.Sleep(25 * time.Millisecond)
	engine.Guard().Begin(ledger.DimBook, "Primary")

	var outcome Outcome
	select {
	case outcome = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("evaluation never settled")
	}

	assert.ErrorIs(t, outcome.Err, ledger.ErrGuardBlocked,
		"in-flight work against a stale combination resolves to the neutral pending state")

	// Nothing landed in the cache under the stale fingerprint.
	key := ledger.BalanceKey{
		Account:     "4000",
		Period:      mustPeriod(t, "Jan 2025"),
		Fingerprint: ledger.ComputeFingerprint(testFilters),
	}
	_, ok := cacheManager.GetBalance(context.Background(), "ws-test", key)
	assert.False(t, ok, "stale response must never be written to the cache")
}

func TestEnginePreloadYearSingleFlight(t *testing.T) {
	client := newFakeClient()
	for _, p := range (ledger.Period{Month: 1, Year: 2025}).ReportingYear() {
		client.data.Set("4000", p, 7)
	}
	engine, _ := newTestEngine(t, client)

	for i := 0; i < 5; i++ {
		engine.PreloadYear([]string{"4000"}, 2025, testFilters)
	}

	// Wait for the background fetch to finish.
	deadline := time.Now().Add(2 * time.Second)
	for client.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, client.callCount(), "concurrent preload triggers collapse into one year fetch")

	// Every period of the year settles from cache afterwards.
	outcome := engine.Resolve(context.Background(), "4000", mustPeriod(t, "Sep 2025"), testFilters)
	require.NoError(t, outcome.Err)
	assert.Equal(t, 7.0, outcome.Value)
	assert.Equal(t, 1, client.callCount())
}

func TestEngineEquivalenceAcrossStrategies(t *testing.T) {
	// The same key resolved via a point lookup and via a year fetch must
	// produce the same value.
	pointClient := newFakeClient()
	pointClient.set("4000", "Jun 2025", 321)
	pointEngine, _ := newTestEngine(t, pointClient)
	pointOutcome := pointEngine.Resolve(context.Background(), "4000", mustPeriod(t, "Jun 2025"), testFilters)
	require.NoError(t, pointOutcome.Err)

	rangeClient := newFakeClient()
	rangeClient.set("4000", "Jun 2025", 321)
	rangeEngine, _ := newTestEngine(t, rangeClient)
	rangeEngine.PreloadYear([]string{"4000"}, 2025, testFilters)
	deadline := time.Now().Add(2 * time.Second)
	for rangeClient.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	rangeOutcome := rangeEngine.Resolve(context.Background(), "4000", mustPeriod(t, "Jun 2025"), testFilters)
	require.NoError(t, rangeOutcome.Err)

	assert.Equal(t, pointOutcome.Value, rangeOutcome.Value)
}

func TestEngineRangeDispatchAndPreloadShareOneHeavySlot(t *testing.T) {
	client := newFakeClient()
	year := ledger.Period{Month: 1, Year: 2025}.ReportingYear()
	for _, p := range year {
		client.set("4000", p.String(), 10)
	}

	cacheManager := manager.NewManager(kvstore.NewMemoryStore(), 1, nil)
	cacheManager.InitializeWorkspace("ws-test")
	cfg := Config{
		DebounceWindow:  10 * time.Millisecond,
		DebounceCeiling: 500,
		Plan:            PlanConfig{ColumnWidth: 3, ColumnMin: 3, RangeThreshold: 12},
		RemoteTimeout:   5 * time.Second,
	}
	limiter := NewLimiter(1, 16)
	engine := NewEngine("ws-test", cfg, NewGuard(30*time.Second, nil), limiter, client, cacheManager, &countingNotifier{}, nil)

	// Occupy the only heavy slot so the planned range call queues behind it.
	release, err := limiter.Acquire(context.Background(), ClassHeavy)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, p := range year {
		wg.Add(1)
		go func(p ledger.Period) {
			defer wg.Done()
			outcome := engine.Resolve(context.Background(), "4000", p, testFilters)
			assert.NoError(t, outcome.Err)
			assert.Equal(t, 10.0, outcome.Value)
		}(p)
	}

	// Let the flush plan the range call, then trigger a preload for the same
	// (year, fingerprint) while the slot is still taken.
	time.Sleep(30 * time.Millisecond)
	engine.PreloadYear([]string{"4000"}, 2025, testFilters)
	time.Sleep(10 * time.Millisecond)

	release()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resolution wedged behind the heavy budget")
	}
	assert.GreaterOrEqual(t, client.callCount(), 1)
}

// gatedClient blocks any period batch touching a gated period until the
// gate closes; everything else answers immediately.
type gatedClient struct {
	*fakeClient
	gate  chan struct{}
	gated map[ledger.Period]bool
}

func (g *gatedClient) LookupPeriods(ctx context.Context, accounts []string, periods []ledger.Period, filters ledger.FilterSet) (remote.BalanceMatrix, error) {
	for _, p := range periods {
		if g.gated[p] {
			<-g.gate
			break
		}
	}
	return g.fakeClient.LookupPeriods(ctx, accounts, periods, filters)
}

func TestEngineColumnGroupsPopulateCacheIncrementally(t *testing.T) {
	inner := newFakeClient()
	months := []string{"Jan 2025", "Feb 2025", "Mar 2025", "Apr 2025", "May 2025", "Jun 2025"}
	for _, m := range months {
		inner.set("4000", m, 1)
		inner.set("5000", m, 2)
	}
	client := &gatedClient{
		fakeClient: inner,
		gate:       make(chan struct{}),
		gated: map[ledger.Period]bool{
			mustPeriod(t, "Apr 2025"): true,
			mustPeriod(t, "May 2025"): true,
			mustPeriod(t, "Jun 2025"): true,
		},
	}
	engine, cacheManager := newTestEngine(t, client)

	var wg sync.WaitGroup
	for _, account := range []string{"4000", "5000"} {
		for _, m := range months {
			wg.Add(1)
			go func(account, m string) {
				defer wg.Done()
				outcome := engine.Resolve(context.Background(), account, mustPeriod(t, m), testFilters)
				assert.NoError(t, outcome.Err)
			}(account, m)
		}
	}

	// The 2×6 grid plans two column groups of width 3. The Jan-Mar group
	// lands while the Apr-Jun group is still held open: its values must be
	// readable from cache before the second call completes.
	fp := ledger.ComputeFingerprint(testFilters)
	febKey := ledger.BalanceKey{Account: "4000", Period: mustPeriod(t, "Feb 2025"), Fingerprint: fp}
	deadline := time.Now().Add(2 * time.Second)
	var febValue float64
	var cached bool
	for time.Now().Before(deadline) {
		if febValue, cached = cacheManager.GetBalance(context.Background(), "ws-test", febKey); cached {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cached, "first column group must commit before the last group returns")
	assert.Equal(t, 1.0, febValue)

	mayKey := ledger.BalanceKey{Account: "4000", Period: mustPeriod(t, "May 2025"), Fingerprint: fp}
	_, cached = cacheManager.GetBalance(context.Background(), "ws-test", mayKey)
	assert.False(t, cached, "gated group has not landed yet")

	close(client.gate)
	wg.Wait()

	mayValue, cached := cacheManager.GetBalance(context.Background(), "ws-test", mayKey)
	assert.True(t, cached)
	assert.Equal(t, 1.0, mayValue)
}
