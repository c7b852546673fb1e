package workerpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_ExecutesTasks(t *testing.T) {
	pool := New(&Config{Name: "test", MaxWorkers: 4, QueueSize: 16})
	ctx := context.Background()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		id := id
		wg.Add(1)
		require.NoError(t, pool.Submit(ctx, Task{
			ID: id,
			Fn: func(context.Context) error {
				defer wg.Done()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
				return nil
			},
		}))
	}

	wg.Wait()
	require.NoError(t, pool.Stop(5*time.Second))
	assert.Len(t, seen, 5)
	assert.Equal(t, uint64(5), pool.Completed())
	assert.Equal(t, uint64(0), pool.Failed())
}

func TestWorkerPool_CountsFailures(t *testing.T) {
	pool := New(&Config{Name: "test", MaxWorkers: 1})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, pool.Submit(ctx, Task{ID: "fail", Fn: func(context.Context) error {
		defer wg.Done()
		return errors.New("boom")
	}}))
	require.NoError(t, pool.Submit(ctx, Task{ID: "ok", Fn: func(context.Context) error {
		defer wg.Done()
		return nil
	}}))

	wg.Wait()
	require.NoError(t, pool.Stop(5*time.Second))
	assert.Equal(t, uint64(1), pool.Completed())
	assert.Equal(t, uint64(1), pool.Failed())
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	pool := New(&Config{Name: "test", MaxWorkers: 1})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, pool.Submit(ctx, Task{ID: "panic", Fn: func(context.Context) error {
		defer wg.Done()
		panic("bad asset")
	}}))
	require.NoError(t, pool.Submit(ctx, Task{ID: "after", Fn: func(context.Context) error {
		defer wg.Done()
		return nil
	}}))

	wg.Wait()
	require.NoError(t, pool.Stop(5*time.Second))
	assert.Equal(t, uint64(1), pool.Failed())
	assert.Equal(t, uint64(1), pool.Completed())
}

func TestWorkerPool_SubmitAfterStopFails(t *testing.T) {
	pool := New(&Config{Name: "test", MaxWorkers: 1})
	require.NoError(t, pool.Stop(time.Second))

	err := pool.Submit(context.Background(), Task{ID: "late", Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestWorkerPool_SubmitHonorsContext(t *testing.T) {
	// One worker blocked and a full queue of one forces Submit to wait.
	pool := New(&Config{Name: "test", MaxWorkers: 1, QueueSize: 1})
	defer pool.Stop(5 * time.Second)

	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), Task{ID: "block", Fn: func(context.Context) error {
		<-release
		return nil
	}}))
	// Give the worker time to pick up the blocking task, then fill the queue.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, pool.Submit(context.Background(), Task{ID: "queued", Fn: func(context.Context) error { return nil }}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, Task{ID: "overflow", Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}
