package notify

import "context"

// Executor schedules callbacks for execution.
//
// Schedule reports whether the callback was accepted. Acceptance says
// nothing about completion: the callback may run later, on another
// goroutine, or (after acceptance by a misbehaving executor) never.
//
// Executors are used as registration keys and must be comparable; a Router
// refuses to register a func or map typed executor.
type Executor interface {
	Schedule(fn func()) bool
}

// Inline runs callbacks synchronously on the scheduling goroutine. It is
// the default executor of a Router.
type Inline struct{}

// Schedule runs fn immediately and always accepts it.
func (Inline) Schedule(fn func()) bool {
	fn()
	return true
}

// Goroutine runs every callback on a fresh goroutine. Callbacks are
// unordered relative to each other.
type Goroutine struct{}

// Schedule starts fn on a new goroutine and always accepts it.
func (Goroutine) Schedule(fn func()) bool {
	go fn()
	return true
}

type executorKey struct{}

// WithExecutor returns a context carrying exec as the current executor.
func WithExecutor(ctx context.Context, exec Executor) context.Context {
	return context.WithValue(ctx, executorKey{}, exec)
}

// ExecutorFrom returns the executor carried by ctx, or fallback when ctx
// carries none.
func ExecutorFrom(ctx context.Context, fallback Executor) Executor {
	if ctx != nil {
		if exec, ok := ctx.Value(executorKey{}).(Executor); ok && exec != nil {
			return exec
		}
	}
	return fallback
}
