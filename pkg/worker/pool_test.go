package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExecutesJobs(t *testing.T) {
	pool := NewPool(2, 8)
	pool.Start()

	var done int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		err := pool.Submit(func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt32(&done, 1)
		})
		require.NoError(t, err)
	}

	wg.Wait()
	pool.Stop()
	assert.Equal(t, int32(8), atomic.LoadInt32(&done))
}

func TestPoolQueueFull(t *testing.T) {
	// 未启动的池不消费队列, 写满后 Submit 必须立刻报错
	pool := NewPool(1, 2)

	require.NoError(t, pool.Submit(func(ctx context.Context) {}))
	require.NoError(t, pool.Submit(func(ctx context.Context) {}))

	err := pool.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPoolSubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 2)
	pool.Start()
	pool.Stop()

	err := pool.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPoolJobPanicRecovered(t *testing.T) {
	pool := NewPool(1, 4)
	pool.Start()

	require.NoError(t, pool.Submit(func(ctx context.Context) {
		panic("boom")
	}))

	// panic 后 worker 还活着
	done := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive job panic")
	}
	pool.Stop()
}

func TestPoolStopWaitsForRunningJobs(t *testing.T) {
	pool := NewPool(1, 4)
	pool.Start()

	var finished int32
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		time.Sleep(100 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
	}))

	pool.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}

func TestPoolSubmitDuringStop(t *testing.T) {
	for round := 0; round < 20; round++ {
		pool := NewPool(2, 4)
		pool.Start()

		var wg sync.WaitGroup
		stop := make(chan struct{})
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					if err := pool.Submit(func(ctx context.Context) {}); err == ErrStopped {
						return
					}
				}
			}()
		}

		pool.Stop()
		close(stop)
		wg.Wait()

		// 停止后提交只会拿到错误, 不会 panic
		assert.Equal(t, ErrStopped, pool.Submit(func(ctx context.Context) {}))
	}
}
