package notify

import (
	"context"
	"log/slog"
	"sync"
)

// taskQueue is a thread-safe FIFO of callbacks.
//
// The queue is unbounded so that Schedule never blocks a mutator. A
// buffered signal channel of size 1 coalesces wake-ups for the worker.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds fn to the back of the queue.
// Returns false if the queue is closed.
func (q *taskQueue) Enqueue(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, fn)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue pops the front callback without blocking.
func (q *taskQueue) TryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	fn := q.tasks[0]
	// Release the closure for GC; the backing array outlives the slot.
	q.tasks[0] = nil

	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}

	return fn, true
}

// Wait returns a channel that signals when callbacks may be available.
// The channel is closed when the queue is closed.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued callbacks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting callbacks and wakes the worker.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Serial runs scheduled callbacks one at a time, in FIFO order, on the
// goroutine that calls Run.
//
// Thread-safety model:
//   - Schedule(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Close(): safe from any goroutine; callbacks accepted before Close
//     still run
type Serial struct {
	queue *taskQueue
	log   *slog.Logger
	done  chan struct{}
}

// NewSerial creates a Serial executor. Nothing runs until Run is called.
func NewSerial(log *slog.Logger) *Serial {
	if log == nil {
		log = slog.Default()
	}
	return &Serial{
		queue: newTaskQueue(),
		log:   log.With("component", "notify.serial"),
		done:  make(chan struct{}),
	}
}

// Schedule queues fn. Returns false once the executor is closed.
func (s *Serial) Schedule(fn func()) bool {
	return s.queue.Enqueue(fn)
}

// Run executes callbacks until ctx is cancelled or Close is called and the
// queue is empty.
func (s *Serial) Run(ctx context.Context) error {
	defer close(s.done)

	for {
		if fn, ok := s.queue.TryDequeue(); ok {
			s.invoke(fn)
			continue
		}

		select {
		case <-ctx.Done():
			s.log.Debug("serial executor stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			// A closed signal channel fires immediately; stop once nothing
			// is left to run.
			if s.queue.Len() == 0 && s.closed() {
				s.log.Debug("serial executor stopping: closed")
				return nil
			}
		}
	}
}

// Close stops accepting callbacks. Run returns after the queued callbacks
// have executed.
func (s *Serial) Close() {
	s.queue.Close()
}

// Done is closed when Run returns.
func (s *Serial) Done() <-chan struct{} {
	return s.done
}

// Pending returns the number of callbacks waiting to run.
func (s *Serial) Pending() int {
	return s.queue.Len()
}

func (s *Serial) closed() bool {
	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	return s.queue.closed
}

func (s *Serial) invoke(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("scheduled callback panicked", "panic", p)
		}
	}()
	fn()
}
