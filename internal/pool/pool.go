// Package pool provides a bounded fan-out pool for agent calls.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrTaskPanic  = errors.New("task panicked")
)

// Task is one indexed unit of work inside a fan-out.
type Task func(ctx context.Context, index int) error

// Config configures the pool.
type Config struct {
	// MaxWorkers bounds concurrently running tasks across all fan-outs.
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`
	// TaskTimeout applies to each task individually; 0 disables it.
	TaskTimeout  time.Duration `yaml:"task_timeout" json:"task_timeout"`
	PanicHandler func(any)     `yaml:"-" json:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:  16,
		TaskTimeout: 20 * time.Second,
	}
}

// Pool runs indexed task fan-outs with a shared concurrency limit.
type Pool struct {
	sem          chan struct{}
	taskTimeout  time.Duration
	panicHandler func(any)

	// mu orders wg.Add in Run against wg.Wait in Close
	mu     sync.RWMutex
	closed atomic.Bool
	wg     sync.WaitGroup

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	timedOut  atomic.Int64
	active    atomic.Int32
}

// New creates a pool.
func New(config Config) *Pool {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultConfig().MaxWorkers
	}
	return &Pool{
		sem:          make(chan struct{}, config.MaxWorkers),
		taskTimeout:  config.TaskTimeout,
		panicHandler: config.PanicHandler,
	}
}

// Run executes fn for every index in [0, n) and waits for all of them.
// The returned slice is indexed like the tasks; a nil entry means success.
// A failing task never cancels its siblings.
func (p *Pool) Run(ctx context.Context, n int, fn Task) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	if p.closed.Load() {
		for i := range errs {
			errs[i] = ErrPoolClosed
		}
		return errs
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		p.submitted.Add(1)

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			p.failed.Add(1)
			continue
		}

		p.mu.RLock()
		if p.closed.Load() {
			p.mu.RUnlock()
			<-p.sem
			errs[i] = ErrPoolClosed
			p.failed.Add(1)
			continue
		}
		wg.Add(1)
		p.wg.Add(1)
		p.mu.RUnlock()

		go func(i int) {
			defer func() {
				<-p.sem
				wg.Done()
				p.wg.Done()
			}()

			p.active.Add(1)
			err := p.execute(ctx, i, fn)
			p.active.Add(-1)

			errs[i] = err
			if err != nil {
				p.failed.Add(1)
				if errors.Is(err, context.DeadlineExceeded) {
					p.timedOut.Add(1)
				}
			} else {
				p.completed.Add(1)
			}
		}(i)
	}
	wg.Wait()
	return errs
}

func (p *Pool) execute(ctx context.Context, index int, fn Task) (err error) {
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			if p.panicHandler != nil {
				p.panicHandler(r)
			}
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()

	return fn(ctx, index)
}

// Close rejects new fan-outs and waits for running tasks to finish.
// Tasks of an in-progress fan-out that have not started yet fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	already := p.closed.Swap(true)
	p.mu.Unlock()
	if already {
		return
	}
	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Capacity:  cap(p.sem),
		Active:    int(p.active.Load()),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		TimedOut:  p.timedOut.Load(),
	}
}

// Stats contains pool statistics.
type Stats struct {
	Capacity  int   `json:"capacity"`
	Active    int   `json:"active"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	TimedOut  int64 `json:"timed_out"`
}
