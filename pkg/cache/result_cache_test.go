package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theawareai/stealth/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrComputeCachesValue(t *testing.T) {
	c := cache.New[string](time.Minute, 10)

	var calls int32
	compute := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "verdict", nil
	}

	for i := 0; i < 5; i++ {
		got, err := c.GetOrCompute("fp", compute)
		require.NoError(t, err)
		assert.Equal(t, "verdict", got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrComputeCoalescesConcurrentCallers(t *testing.T) {
	c := cache.New[string](time.Minute, 10)

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "shared", nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.GetOrCompute("fp", compute)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, got := range results {
		assert.Equal(t, "shared", got)
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	c := cache.New[string](time.Minute, 10)

	var calls int32
	boom := errors.New("upstream down")
	failing := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	}

	_, err := c.GetOrCompute("fp", failing)
	assert.ErrorIs(t, err, boom)

	// retried immediately instead of pinned to the failure for the TTL window
	got, err := c.GetOrCompute("fp", func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEntryExpiresLazily(t *testing.T) {
	c := cache.New[string](20*time.Millisecond, 10)

	_, err := c.GetOrCompute("fp", func() (string, error) { return "old", nil })
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	// no sweep ran, the read itself must treat the entry as absent
	got, err := c.GetOrCompute("fp", func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestLeastRecentlyUsedEviction(t *testing.T) {
	c := cache.New[int](time.Minute, 3)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("fp-%d", i)
		_, err := c.GetOrCompute(key, func() (int, error) { return i, nil })
		require.NoError(t, err)
	}

	// touch fp-0 so fp-1 becomes the eviction candidate
	_, err := c.GetOrCompute("fp-0", func() (int, error) {
		t.Fatal("fp-0 should still be cached")
		return 0, nil
	})
	require.NoError(t, err)

	_, err = c.GetOrCompute("fp-3", func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	for _, key := range []string{"fp-0", "fp-2", "fp-3"} {
		_, err := c.GetOrCompute(key, func() (int, error) {
			t.Errorf("%s should still be cached", key)
			return -1, nil
		})
		require.NoError(t, err)
	}

	evicted := false
	_, err = c.GetOrCompute("fp-1", func() (int, error) {
		evicted = true
		return -1, nil
	})
	require.NoError(t, err)
	assert.True(t, evicted)
}
