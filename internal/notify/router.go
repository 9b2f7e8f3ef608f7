package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Option configures a Router.
type Option func(*options)

type options struct {
	log  *slog.Logger
	exec Executor
	held bool
}

// WithLogger sets the router's logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithDefaultExecutor sets the executor used when a subscription does not
// name one. Default: Inline.
func WithDefaultExecutor(exec Executor) Option {
	return func(o *options) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// WithHeld creates the router with delivery already held.
func WithHeld(held bool) Option {
	return func(o *options) {
		o.held = held
	}
}

// Router queues change notifications and dispatches them to registered
// (Executor, Handler) pairs.
//
// Thread-safety model:
//   - Post/Enqueue/Drain/Hold/Release: safe from any goroutine
//   - At most one goroutine drains at a time; the others only queue, so
//     scheduling order equals posting order
//   - Handlers never run under the router lock and may call back into the
//     router
//
// INVARIANTS:
//   - every posted event is scheduled at most once per registration
//   - while held, nothing is scheduled
//   - Release returns only after the queues were observed empty, or after
//     another goroutine that is already draining has taken over
type Router[T any] struct {
	log         *slog.Logger
	defaultExec Executor
	reg         *registry[T]

	mu       sync.Mutex
	events   []ChangeEvent[T]
	props    []PropertyChange
	held     bool
	draining bool
}

// NewRouter creates a Router.
func NewRouter[T any](opts ...Option) *Router[T] {
	o := options{
		log:  slog.Default(),
		exec: Inline{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Router[T]{
		log:         o.log.With("component", "notify.router"),
		defaultExec: o.exec,
		reg:         newRegistry[T](),
		held:        o.held,
	}
}

// DefaultExecutor returns the executor used for subscriptions that do not
// name one.
func (r *Router[T]) DefaultExecutor() Executor {
	return r.defaultExec
}

// Subscribe registers h under exec. A nil exec means the default executor.
// Returns false if (exec, id) is already registered, or if exec is not
// comparable (a func or map typed executor) and so cannot key a
// registration.
func (r *Router[T]) Subscribe(exec Executor, id HandlerID, h Handler[T]) bool {
	if exec == nil {
		exec = r.defaultExec
	}
	if !isComparable(exec) {
		r.log.Warn("subscription rejected: executor is not comparable",
			"handler", string(id), "executor", fmt.Sprintf("%T", exec))
		return false
	}
	added := r.reg.add(registrationKey{exec: exec, id: id}, h)
	if added {
		r.log.Debug("handler subscribed", "handler", string(id))
	}
	return added
}

// SubscribeContext registers h under the executor carried by ctx.
func (r *Router[T]) SubscribeContext(ctx context.Context, id HandlerID, h Handler[T]) bool {
	return r.Subscribe(ExecutorFrom(ctx, r.defaultExec), id, h)
}

// Unsubscribe removes the (exec, id) registration. A nil exec means the
// default executor. Removing an absent registration is a no-op that
// returns false.
func (r *Router[T]) Unsubscribe(exec Executor, id HandlerID) bool {
	if exec == nil {
		exec = r.defaultExec
	}
	if !isComparable(exec) {
		return false
	}
	removed := r.reg.remove(registrationKey{exec: exec, id: id})
	if removed {
		r.log.Debug("handler unsubscribed", "handler", string(id))
	}
	return removed
}

// UnsubscribeContext removes the registration of id under the executor
// carried by ctx at the time of the call.
func (r *Router[T]) UnsubscribeContext(ctx context.Context, id HandlerID) bool {
	return r.Unsubscribe(ExecutorFrom(ctx, r.defaultExec), id)
}

// Subscribers returns the number of registrations.
func (r *Router[T]) Subscribers() int {
	return r.reg.len()
}

// Post queues ev without delivering it. Pair with Drain.
func (r *Router[T]) Post(ev ChangeEvent[T]) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// PostProperty queues property changes without delivering them.
func (r *Router[T]) PostProperty(changes ...PropertyChange) {
	if len(changes) == 0 {
		return
	}
	r.mu.Lock()
	r.props = append(r.props, changes...)
	r.mu.Unlock()
}

// Enqueue queues ev and drains the router unless delivery is held.
func (r *Router[T]) Enqueue(ev ChangeEvent[T]) {
	r.Post(ev)
	r.Drain()
}

// EnqueueProperty queues property changes and drains the router unless
// delivery is held.
func (r *Router[T]) EnqueueProperty(changes ...PropertyChange) {
	r.PostProperty(changes...)
	r.Drain()
}

// Drain delivers queued events until the queues are empty or delivery is
// held. If another goroutine is already draining, Drain returns at once:
// the active drainer picks up everything queued before it observes the
// queues empty.
func (r *Router[T]) Drain() {
	r.mu.Lock()
	if r.held || r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	r.drainLoop()
}

// Hold suspends delivery. Events accumulate until Release.
func (r *Router[T]) Hold() {
	r.mu.Lock()
	r.held = true
	r.mu.Unlock()
}

// Release consolidates everything queued while held, lifts the hold and
// drains until the queues are empty.
func (r *Router[T]) Release() {
	r.mu.Lock()
	wasHeld := r.held
	r.held = false
	if wasHeld {
		r.consolidateLocked()
	}
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	r.drainLoop()
}

// SetHold holds (true) or releases (false) delivery.
func (r *Router[T]) SetHold(held bool) {
	if held {
		r.Hold()
		return
	}
	r.Release()
}

// Held reports whether delivery is held.
func (r *Router[T]) Held() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held
}

// Suspend holds delivery and returns a function that releases it. The
// returned function is safe to call more than once; only the first call
// releases.
func (r *Router[T]) Suspend() (release func()) {
	r.Hold()
	return sync.OnceFunc(r.Release)
}

// Consolidate merges the queued events in place without delivering them.
func (r *Router[T]) Consolidate() {
	r.mu.Lock()
	r.consolidateLocked()
	r.mu.Unlock()
}

// Pending returns the number of queued collection and property events.
func (r *Router[T]) Pending() (events, properties int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events), len(r.props)
}

func (r *Router[T]) consolidateLocked() {
	before := len(r.events) + len(r.props)
	r.events = ConsolidateEvents(r.events)
	r.props = ConsolidateProperties(r.props)
	if before > 0 {
		r.log.Debug("queue consolidated",
			"before", before,
			"after", len(r.events)+len(r.props),
		)
	}
}

// drainLoop must only be entered by the goroutine that set draining.
func (r *Router[T]) drainLoop() {
	for {
		r.mu.Lock()
		if r.held || (len(r.events) == 0 && len(r.props) == 0) {
			r.draining = false
			r.mu.Unlock()
			return
		}

		if len(r.events) > 0 {
			ev := r.events[0]
			r.events[0] = ChangeEvent[T]{}
			r.events = r.events[1:]
			if len(r.events) == 0 {
				r.events = nil
			}
			r.mu.Unlock()
			r.dispatchEvent(ev)
			continue
		}

		pc := r.props[0]
		r.props[0] = PropertyChange{}
		r.props = r.props[1:]
		if len(r.props) == 0 {
			r.props = nil
		}
		r.mu.Unlock()
		r.dispatchProperty(pc)
	}
}

func (r *Router[T]) dispatchEvent(ev ChangeEvent[T]) {
	r.reg.each(func(reg *registration[T]) bool {
		h := reg.handler
		accepted := reg.key.exec.Schedule(r.guard(reg.key.id, func() {
			h.CollectionChanged(ev)
		}))
		if !accepted {
			r.log.Warn("notification not scheduled",
				"handler", string(reg.key.id),
				"action", ev.Action.String(),
			)
		}
		return true
	})
}

func (r *Router[T]) dispatchProperty(pc PropertyChange) {
	r.reg.each(func(reg *registration[T]) bool {
		h := reg.handler
		accepted := reg.key.exec.Schedule(r.guard(reg.key.id, func() {
			h.PropertyChanged(pc)
		}))
		if !accepted {
			r.log.Warn("notification not scheduled",
				"handler", string(reg.key.id),
				"property", pc.Name,
			)
		}
		return true
	})
}

// guard keeps a panicking handler from unwinding into the executor or,
// with Inline, into the mutating caller.
func (r *Router[T]) guard(id HandlerID, fn func()) func() {
	return func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("handler panicked", "handler", string(id), "panic", p)
			}
		}()
		fn()
	}
}
