package notify

import (
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"
)

// registrationKey is the identity of a registration. The same handler under
// two executors yields two independent registrations.
type registrationKey struct {
	exec Executor
	id   HandlerID
}

type registration[T any] struct {
	key     registrationKey
	handler Handler[T]
}

// registry stores registrations in registration order.
//
// Delivery iterates the skipmap without taking the registry lock, so
// handlers may subscribe or unsubscribe from inside a callback. Dedup by
// key is serialized by mu.
//
// INVARIANTS:
//   - byKey and ordered hold the same registrations
//   - sequence numbers are strictly increasing and never reused
type registry[T any] struct {
	mu      sync.Mutex
	byKey   map[registrationKey]uint64
	ordered *skipmap.FuncMap[uint64, *registration[T]]
	seq     atomic.Uint64
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{
		byKey: make(map[registrationKey]uint64),
		ordered: skipmap.NewFunc[uint64, *registration[T]](func(a, b uint64) bool {
			return a < b
		}),
	}
}

// add registers h under key. Returns false if key is already registered.
func (r *registry[T]) add(key registrationKey, h Handler[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[key]; exists {
		return false
	}

	seq := r.seq.Add(1)
	r.byKey[key] = seq
	r.ordered.Store(seq, &registration[T]{key: key, handler: h})
	return true
}

// remove unregisters key. Returns false if it was not registered.
func (r *registry[T]) remove(key registrationKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq, exists := r.byKey[key]
	if !exists {
		return false
	}

	delete(r.byKey, key)
	r.ordered.Delete(seq)
	return true
}

// each visits registrations in registration order until fn returns false.
func (r *registry[T]) each(fn func(*registration[T]) bool) {
	r.ordered.Range(func(_ uint64, reg *registration[T]) bool {
		return fn(reg)
	})
}

func (r *registry[T]) len() int {
	return r.ordered.Len()
}
