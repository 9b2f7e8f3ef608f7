package testutil

import "sync"

// ManualExecutor records scheduled callbacks and runs them only when the
// test calls RunAll. It satisfies notify.Executor.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ManualExecutor struct {
	mu     sync.Mutex
	name   string
	tasks  []func()
	reject bool
	seen   int
}

// NewManualExecutor creates an executor. name only helps when a test
// registers several executors and prints them.
func NewManualExecutor(name string) *ManualExecutor {
	return &ManualExecutor{name: name}
}

// Schedule records fn. Returns false while rejecting.
func (e *ManualExecutor) Schedule(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seen++
	if e.reject {
		return false
	}
	e.tasks = append(e.tasks, fn)
	return true
}

// Reject makes subsequent Schedule calls fail (true) or succeed (false).
func (e *ManualExecutor) Reject(reject bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reject = reject
}

// RunAll runs the recorded callbacks in FIFO order, including callbacks
// scheduled while running, and returns how many ran.
func (e *ManualExecutor) RunAll() int {
	ran := 0
	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			e.mu.Unlock()
			return ran
		}
		fn := e.tasks[0]
		e.tasks = e.tasks[1:]
		e.mu.Unlock()

		fn()
		ran++
	}
}

// Pending returns the number of callbacks waiting to run.
func (e *ManualExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Attempts returns the number of Schedule calls, accepted or not.
func (e *ManualExecutor) Attempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen
}

// String returns the executor name.
func (e *ManualExecutor) String() string {
	return e.name
}
