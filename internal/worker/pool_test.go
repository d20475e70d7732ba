package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResult struct {
	err error
}

func (r *stubResult) GetError() error { return r.err }

type stubJob struct {
	fail     bool
	executed *int32
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.fail {
		return &stubResult{err: errors.New("job failed")}
	}
	return &stubResult{}
}

func TestNewPoolClampsWorkerCount(t *testing.T) {
	assert.Equal(t, 5, NewPool(5).workers)
	assert.Equal(t, 1, NewPool(0).workers)
	assert.Equal(t, 1, NewPool(-1).workers)
}

func TestPoolExecutesEveryJob(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var executed int32
	const count = 10
	for i := 0; i < count; i++ {
		pool.Submit(&stubJob{executed: &executed})
	}

	results := pool.Wait()
	assert.Len(t, results, count)
	assert.Equal(t, int32(count), atomic.LoadInt32(&executed))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := NewPool(workers)
	pool.Start()

	var current, peak int32
	for i := 0; i < 20; i++ {
		pool.Submit(&gaugeJob{current: &current, peak: &peak})
	}

	results := pool.Wait()
	require.Len(t, results, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers))
}

type gaugeJob struct {
	current *int32
	peak    *int32
}

func (j *gaugeJob) Execute(ctx context.Context) Result {
	cur := atomic.AddInt32(j.current, 1)
	for {
		p := atomic.LoadInt32(j.peak)
		if cur <= p || atomic.CompareAndSwapInt32(j.peak, p, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(j.current, -1)
	return &stubResult{}
}

func TestPoolCarriesJobErrors(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&stubJob{fail: true})
	pool.Submit(&stubJob{})

	results := pool.Wait()
	require.Len(t, results, 2)

	failed := 0
	for _, res := range results {
		if res.GetError() != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPoolSubmitAfterShutdownDoesNotBlock(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(&stubJob{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}
