package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunAllSucceed(t *testing.T) {
	p := New(Config{MaxWorkers: 4})
	defer p.Close()

	var sum atomic.Int64
	errs := p.Run(context.Background(), 10, func(_ context.Context, i int) error {
		sum.Add(int64(i))
		return nil
	})

	require.Len(t, errs, 10)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(45), sum.Load())

	stats := p.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Completed)
	assert.Equal(t, 4, stats.Capacity)
}

func TestPool_ErrorsAreIndexed(t *testing.T) {
	p := New(Config{MaxWorkers: 2})
	defer p.Close()

	boom := errors.New("boom")
	errs := p.Run(context.Background(), 4, func(_ context.Context, i int) error {
		if i%2 == 1 {
			return boom
		}
		return nil
	})

	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
	assert.ErrorIs(t, errs[3], boom)
	assert.Equal(t, int64(2), p.Stats().Failed)
}

func TestPool_RespectsMaxWorkers(t *testing.T) {
	p := New(Config{MaxWorkers: 3})
	defer p.Close()

	var running, peak atomic.Int32
	p.Run(context.Background(), 12, func(context.Context, int) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPool_TaskTimeout(t *testing.T) {
	p := New(Config{MaxWorkers: 2, TaskTimeout: 10 * time.Millisecond})
	defer p.Close()

	errs := p.Run(context.Background(), 2, func(ctx context.Context, i int) error {
		if i == 0 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
	assert.NoError(t, errs[1])
	assert.Equal(t, int64(1), p.Stats().TimedOut)
}

func TestPool_PanicRecovered(t *testing.T) {
	var handled atomic.Bool
	p := New(Config{MaxWorkers: 1, PanicHandler: func(any) { handled.Store(true) }})
	defer p.Close()

	errs := p.Run(context.Background(), 2, func(_ context.Context, i int) error {
		if i == 0 {
			panic("bad agent")
		}
		return nil
	})

	assert.ErrorIs(t, errs[0], ErrTaskPanic)
	assert.NoError(t, errs[1])
	assert.True(t, handled.Load())
}

func TestPool_Closed(t *testing.T) {
	p := New(Config{})
	p.Close()
	p.Close()

	errs := p.Run(context.Background(), 2, func(context.Context, int) error { return nil })
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrPoolClosed)
	}
}

func TestPool_EmptyRun(t *testing.T) {
	p := New(DefaultConfig())
	defer p.Close()

	errs := p.Run(context.Background(), 0, func(context.Context, int) error {
		t.Fatal("must not be called")
		return nil
	})
	assert.Empty(t, errs)
}

func TestPool_CloseDuringRun(t *testing.T) {
	p := New(Config{MaxWorkers: 1})
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan []error, 1)
	go func() {
		done <- p.Run(context.Background(), 3, func(_ context.Context, i int) error {
			if i == 0 {
				close(started)
				<-release
			}
			return nil
		})
	}()

	<-started
	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	require.Eventually(t, p.closed.Load, time.Second, time.Millisecond)
	close(release)

	errs := <-done
	<-closed
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], ErrPoolClosed)
	assert.ErrorIs(t, errs[2], ErrPoolClosed)
	assert.Zero(t, p.Stats().Active)
}
