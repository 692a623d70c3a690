package evo

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Executor runs n independent tasks and returns once all of them finished.
// Implementations must not return before every started task completed.
type Executor interface {
	Run(n int, task func(i int) error) error
}

// SerialExecutor runs tasks in index order and stops at the first error.
type SerialExecutor struct{}

func (SerialExecutor) Run(n int, task func(i int) error) error {
	for i := 0; i < n; i++ {
		if err := task(i); err != nil {
			return err
		}
	}
	return nil
}

// PoolExecutor runs tasks on a bounded goroutine pool. Every task runs to
// completion; task errors are joined and a task panic is re-raised by Run.
type PoolExecutor struct {
	workers int
}

// NewPoolExecutor sizes the pool to workers, or GOMAXPROCS when workers <= 0.
func NewPoolExecutor(workers int) *PoolExecutor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PoolExecutor{workers: workers}
}

func (e *PoolExecutor) Workers() int {
	return e.workers
}

func (e *PoolExecutor) Run(n int, task func(i int) error) error {
	if n == 0 {
		return nil
	}
	workers := e.workers
	if workers > n {
		workers = n
	}
	p := pool.New().WithErrors().WithMaxGoroutines(workers)
	for i := 0; i < n; i++ {
		p.Go(func() error {
			return task(i)
		})
	}
	return p.Wait()
}

// NewExecutor returns a serial executor for workers == 1 and a pool
// otherwise.
func NewExecutor(workers int) Executor {
	if workers == 1 {
		return SerialExecutor{}
	}
	return NewPoolExecutor(workers)
}
