package scheduling

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterHeavyCeiling(t *testing.T) {
	l := NewLimiter(2, 16)
	ctx := context.Background()

	r1, err := l.Acquire(ctx, ClassHeavy)
	require.NoError(t, err)
	r2, err := l.Acquire(ctx, ClassHeavy)
	require.NoError(t, err)

	// Third heavy acquire must block until a slot frees.
	blocked, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(blocked, ClassHeavy)
	assert.Error(t, err)

	r1()
	r3, err := l.Acquire(ctx, ClassHeavy)
	require.NoError(t, err)
	r3()
	r2()
}

func TestLimiterClassesIndependent(t *testing.T) {
	l := NewLimiter(1, 1)
	ctx := context.Background()

	heavyRelease, err := l.Acquire(ctx, ClassHeavy)
	require.NoError(t, err)
	defer heavyRelease()

	// A saturated heavy budget leaves light lookups unaffected.
	lightRelease, err := l.Acquire(ctx, ClassLight)
	require.NoError(t, err)
	lightRelease()
}

func TestLimiterBurstDrainsCompletely(t *testing.T) {
	l := NewLimiter(4, 16)
	ctx := context.Background()

	// A recalculation burst far above the ceiling: every acquire eventually
	// succeeds, and concurrency never exceeds the budget.
	const burst = 120
	var inflight, peak, done int64
	var wg sync.WaitGroup

	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, ClassHeavy)
			if err != nil {
				return
			}
			cur := atomic.AddInt64(&inflight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&inflight, -1)
			atomic.AddInt64(&done, 1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(burst), atomic.LoadInt64(&done), "no acquire may starve")
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(4))
}
