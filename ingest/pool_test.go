package ingest_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookstock/ingest"
)

func newTestPool(t *testing.T, opts ingest.PoolOptions) *ingest.Pool {
	t.Helper()
	pool := ingest.NewPool(opts)
	pool.Start()
	t.Cleanup(pool.Stop)
	return pool
}

func TestPool_SubmitReturnsCompleteResult(t *testing.T) {
	pool := newTestPool(t, ingest.PoolOptions{})

	res, err := pool.Submit(context.Background(),
		[]byte(header+"BookWorld,,Gatsby,180,Fitzgerald,15.99,\n"))

	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Gatsby", res.Rows[0].BookName)
}

func TestPool_SubmitSurfacesParseFailure(t *testing.T) {
	pool := newTestPool(t, ingest.PoolOptions{})

	_, err := pool.Submit(context.Background(), []byte(header+"\"unterminated\n"))
	assert.ErrorIs(t, err, ingest.ErrMalformedInput)
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	pool := ingest.NewPool(ingest.PoolOptions{})

	_, err := pool.Submit(context.Background(), []byte(header))
	assert.ErrorIs(t, err, ingest.ErrPoolStopped)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := ingest.NewPool(ingest.PoolOptions{})
	pool.Start()
	pool.Stop()

	_, err := pool.Submit(context.Background(), []byte(header))
	assert.ErrorIs(t, err, ingest.ErrPoolStopped)
}

func TestPool_ConcurrentSubmits_AllComplete_BoundedWorkers(t *testing.T) {
	// GIVEN: A small pool and far more callers than workers
	pool := newTestPool(t, ingest.PoolOptions{Min: 2, Max: 4})

	body := header + strings.Repeat("BookWorld,,Gatsby,180,Fitzgerald,15.99,\n", 200)

	var wg sync.WaitGroup
	results := make([]int, 20)
	errs := make([]error, 20)

	// WHEN: 20 goroutines submit concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := pool.Submit(context.Background(), []byte(body))
			errs[i] = err
			if res != nil {
				results[i] = len(res.Rows)
			}
		}(i)
	}
	wg.Wait()

	// THEN: Every call gets its full result and the pool never exceeded Max
	for i := 0; i < 20; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 200, results[i])
	}
	assert.LessOrEqual(t, pool.WorkerCount(), 4)
}

func TestPool_IdleWorkersReclaimedDownToMin(t *testing.T) {
	// GIVEN: A pool that grew under load, with a short idle timeout
	pool := newTestPool(t, ingest.PoolOptions{Min: 1, Max: 3, IdleTimeout: 20 * time.Millisecond})

	body := header + strings.Repeat("BookWorld,,Gatsby,180,Fitzgerald,15.99,\n", 500)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Submit(context.Background(), []byte(body))
		}()
	}
	wg.Wait()

	// THEN: Idle capacity above Min is eventually relinquished
	require.Eventually(t, func() bool {
		return pool.WorkerCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPool_RestartAfterStop(t *testing.T) {
	pool := ingest.NewPool(ingest.PoolOptions{Min: 1, Max: 2})
	pool.Start()
	pool.Stop()

	pool.Start()
	defer pool.Stop()

	res, err := pool.Submit(context.Background(),
		[]byte(header+"BookWorld,,Gatsby,180,Fitzgerald,15.99,\n"))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestPool_StopDuringInFlightSubmitStillDelivers(t *testing.T) {
	// GIVEN: A submission a worker has already accepted
	pool := ingest.NewPool(ingest.PoolOptions{Min: 1, Max: 1})
	pool.Start()

	body := header + strings.Repeat("BookWorld,,Gatsby,180,Fitzgerald,15.99,\n", 2000)

	type outcome struct {
		rows int
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := pool.Submit(context.Background(), []byte(body))
		o := outcome{err: err}
		if res != nil {
			o.rows = len(res.Rows)
		}
		done <- o
	}()

	// WHEN: The pool is stopped while the work is in flight
	time.Sleep(100 * time.Millisecond) // let the worker accept the task
	pool.Stop()

	// THEN: The accepted task's result is delivered, not dropped
	o := <-done
	require.NoError(t, o.err)
	assert.Equal(t, 2000, o.rows)
}

func TestPool_SubmitsRacingRestartCycles(t *testing.T) {
	// Submissions racing Stop+Start must each end in a complete result
	// or ErrPoolStopped, never a mixed or hung outcome.
	pool := ingest.NewPool(ingest.PoolOptions{Min: 1, Max: 2})
	pool.Start()

	body := header + "BookWorld,,Gatsby,180,Fitzgerald,15.99,\n"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res, err := pool.Submit(context.Background(), []byte(body))
				if err != nil {
					assert.ErrorIs(t, err, ingest.ErrPoolStopped)
					continue
				}
				assert.Len(t, res.Rows, 1)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		pool.Stop()
		pool.Start()
	}
	wg.Wait()
	pool.Stop()
}

func TestPool_DefaultsApplied(t *testing.T) {
	pool := ingest.NewPool(ingest.PoolOptions{})
	pool.Start()
	defer pool.Stop()

	assert.Equal(t, ingest.DefaultMinWorkers, pool.WorkerCount())
}
