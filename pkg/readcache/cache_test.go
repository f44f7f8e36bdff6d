package readcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func countingFetch(calls *atomic.Int64, value any) FetchFunc {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestGet_ServesCachedWithinTTL(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	defer c.Close()

	var calls atomic.Int64
	fetch := countingFetch(&calls, "teams")

	v, err := c.Get(context.Background(), "teams", fetch)
	require.NoError(t, err)
	require.Equal(t, "teams", v)

	v, err = c.Get(context.Background(), "teams", fetch)
	require.NoError(t, err)
	require.Equal(t, "teams", v)

	require.Equal(t, int64(1), calls.Load())
}

func TestGet_ExpiredEntryRefetched(t *testing.T) {
	c := New(20*time.Millisecond, time.Millisecond)
	defer c.Close()

	var calls atomic.Int64
	fetch := countingFetch(&calls, "players")

	_, err := c.Get(context.Background(), "players", fetch)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = c.Get(context.Background(), "players", fetch)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestGet_ConcurrentCallersShareOneFetch(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	defer c.Close()

	var calls atomic.Int64
	slow := func(ctx context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "key", slow)
			require.NoError(t, err)
			require.Equal(t, "value", v)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	defer c.Close()

	var calls atomic.Int64
	fetch := countingFetch(&calls, "v")

	_, err := c.Get(context.Background(), "key", fetch)
	require.NoError(t, err)

	c.Invalidate()

	_, err = c.Get(context.Background(), "key", fetch)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestGet_FetchErrorNotCached(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	defer c.Close()

	var calls atomic.Int64
	failing := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, context.DeadlineExceeded
	}

	_, err := c.Get(context.Background(), "key", failing)
	require.Error(t, err)
	_, err = c.Get(context.Background(), "key", failing)
	require.Error(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestOnExternalChange_DebouncesBurst(t *testing.T) {
	c := New(time.Minute, 30*time.Millisecond)
	defer c.Close()

	var calls atomic.Int64
	fetch := countingFetch(&calls, "v")

	// Prime the cache so there is something to refresh.
	_, err := c.Get(context.Background(), "key", fetch)
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())

	// A burst of bus events coalesces into a single background refresh.
	for i := 0; i < 5; i++ {
		c.OnExternalChange()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)

	// And no further refreshes arrive afterwards.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int64(2), calls.Load())
}

func TestOnExternalChange_RefreshDoesNotEvict(t *testing.T) {
	c := New(time.Minute, 10*time.Millisecond)
	defer c.Close()

	release := make(chan struct{})
	var calls atomic.Int64
	fetch := func(ctx context.Context) (any, error) {
		if calls.Add(1) > 1 {
			<-release // second call is the background refresh; hold it open
			return "new", nil
		}
		return "old", nil
	}

	_, err := c.Get(context.Background(), "key", fetch)
	require.NoError(t, err)

	c.OnExternalChange()
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, time.Millisecond)

	// While the refresh is in flight the previous value still serves.
	v, err := c.Get(context.Background(), "key", fetch)
	require.NoError(t, err)
	require.Equal(t, "old", v)

	close(release)
	require.Eventually(t, func() bool {
		v, err := c.Get(context.Background(), "key", fetch)
		return err == nil && v == "new"
	}, time.Second, 5*time.Millisecond)
}
