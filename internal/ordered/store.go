package ordered

import (
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/ordex/internal/errs"
	"github.com/roach88/ordex/internal/notify"
)

// Entry is a key/value pair. It is the item type of the store's change
// events.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Option configures a Store.
type Option[K comparable, V any] func(*Store[K, V])

// WithRouter routes the store's change notifications through r.
func WithRouter[K comparable, V any](r *notify.Router[Entry[K, V]]) Option[K, V] {
	return func(s *Store[K, V]) {
		s.router = r
	}
}

// WithComparer sets the comparer Reorder uses when called with a nil
// comparer.
func WithComparer[K comparable, V any](cmp func(a, b K) int) Option[K, V] {
	return func(s *Store[K, V]) {
		s.cmp = cmp
	}
}

// WithLogger sets the store's logger. Default: slog.Default().
func WithLogger[K comparable, V any](log *slog.Logger) Option[K, V] {
	return func(s *Store[K, V]) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCapacity preallocates room for n entries.
func WithCapacity[K comparable, V any](n int) Option[K, V] {
	return func(s *Store[K, V]) {
		if n > 0 {
			s.m = make(map[K]V, n)
			s.order = make([]K, 0, n)
		}
	}
}

// Store is a concurrency-safe map with an independently mutable order.
//
// INVARIANTS (after every completed operation):
//   - the keys of m and the elements of order are the same set
//   - order has no duplicates
type Store[K comparable, V any] struct {
	mu    sync.RWMutex
	m     map[K]V
	order []K

	cmp    func(a, b K) int
	router *notify.Router[Entry[K, V]]
	log    *slog.Logger
}

// New creates an empty store.
func New[K comparable, V any](opts ...Option[K, V]) *Store[K, V] {
	s := &Store[K, V]{
		m:   make(map[K]V),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "ordered.store")
	return s
}

// NewFrom creates a store holding the pairs of seq in enumeration order. A
// repeated key keeps its first position and its last value. No
// notifications are raised.
func NewFrom[K comparable, V any](seq iter.Seq2[K, V], opts ...Option[K, V]) *Store[K, V] {
	s := New(opts...)
	for k, v := range seq {
		if _, exists := s.m[k]; !exists {
			s.order = append(s.order, k)
		}
		s.m[k] = v
	}
	return s
}

// FromMap creates a store holding the entries of m, ordered by cmp. Go maps
// carry no order of their own, so cmp is required.
func FromMap[K comparable, V any](m map[K]V, cmp func(a, b K) int, opts ...Option[K, V]) (*Store[K, V], error) {
	if cmp == nil {
		return nil, errs.NewInvalidArgument("FromMap requires a comparer", nil)
	}
	s := New(append([]Option[K, V]{WithCapacity[K, V](len(m))}, opts...)...)
	for k, v := range m {
		s.m[k] = v
		s.order = append(s.order, k)
	}
	slices.SortStableFunc(s.order, cmp)
	return s, nil
}

// --- Structural mutators ---

// Add inserts k. It fails with InvalidArgument if k is already present.
func (s *Store[K, V]) Add(k K, v V) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.m[k]; exists {
		return &errs.Error{
			Code:    errs.CodeInvalidArgument,
			Message: "key already present",
			Key:     k,
		}
	}
	s.insertLocked(k, v)
	return nil
}

// TryAdd inserts k if it is absent. Returns false, leaving the stored value
// unchanged, if k is present.
func (s *Store[K, V]) TryAdd(k K, v V) bool {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.m[k]; exists {
		return false
	}
	s.insertLocked(k, v)
	return true
}

// AddOrUpdate inserts addValue if k is absent, otherwise replaces the
// current value with update(k, current). Returns the stored value.
func (s *Store[K, V]) AddOrUpdate(k K, addValue V, update func(K, V) V) V {
	return s.AddOrUpdateFunc(k, func(K) V { return addValue }, update)
}

// AddOrUpdateFunc inserts add(k) if k is absent, otherwise replaces the
// current value with update(k, current). The check and the write form one
// atomic step; exactly one factory runs, once.
func (s *Store[K, V]) AddOrUpdateFunc(k K, add func(K) V, update func(K, V) V) V {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, exists := s.m[k]; exists {
		next := update(k, cur)
		s.replaceLocked(k, cur, next)
		return next
	}
	v := add(k)
	s.insertLocked(k, v)
	return v
}

// AddOrUpdateWithArg is AddOrUpdateFunc with an argument threaded through
// both factories.
func AddOrUpdateWithArg[K comparable, V, A any](
	s *Store[K, V],
	k K,
	add func(K, A) V,
	update func(K, V, A) V,
	arg A,
) V {
	return s.AddOrUpdateFunc(
		k,
		func(k K) V { return add(k, arg) },
		func(k K, cur V) V { return update(k, cur, arg) },
	)
}

// GetOrAdd returns the value for k, inserting v first if k is absent.
func (s *Store[K, V]) GetOrAdd(k K, v V) V {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, exists := s.m[k]; exists {
		return cur
	}
	s.insertLocked(k, v)
	return v
}

// TryUpdate replaces the value for k with newValue if the current value
// equals comparison according to eq.
func (s *Store[K, V]) TryUpdate(k K, newValue, comparison V, eq func(a, b V) bool) bool {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.m[k]
	if !exists || !eq(cur, comparison) {
		return false
	}
	s.replaceLocked(k, cur, newValue)
	return true
}

// Set is the indexed write: it replaces the value of an existing key in
// place, or appends a new key to the end of the order.
func (s *Store[K, V]) Set(k K, v V) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, exists := s.m[k]; exists {
		s.replaceLocked(k, cur, v)
		return
	}
	s.insertLocked(k, v)
}

// Remove deletes k from the map and the order. O(n).
func (s *Store[K, V]) Remove(k K) bool {
	_, ok := s.TryRemove(k)
	return ok
}

// TryRemove deletes k and returns its value.
func (s *Store[K, V]) TryRemove(k K) (V, bool) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.m[k]
	if !exists {
		var zero V
		return zero, false
	}

	delete(s.m, k)
	if i := slices.Index(s.order, k); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.post(notify.Removed(Entry[K, V]{Key: k, Value: v}), true, true)
	return v, true
}

// Clear removes every entry.
func (s *Store[K, V]) Clear() {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return
	}
	s.m = make(map[K]V)
	s.order = nil
	s.post(notify.Reset[Entry[K, V]](), true, true)
	s.log.Debug("store cleared")
}

// --- Reads ---

// Get is the indexed read. It fails with KeyNotFound when k is absent.
func (s *Store[K, V]) Get(k K) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.m[k]
	if !exists {
		return v, errs.NewKeyNotFound(k)
	}
	return v, nil
}

// Load returns the value for k and whether it was present.
func (s *Store[K, V]) Load(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.m[k]
	return v, exists
}

// Contains reports whether k is present.
func (s *Store[K, V]) Contains(k K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.m[k]
	return exists
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Keys returns the keys in order.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Values returns the values in key order.
func (s *Store[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]V, len(s.order))
	for i, k := range s.order {
		out[i] = s.m[k]
	}
	return out
}

// Snapshot returns the entries in order.
func (s *Store[K, V]) Snapshot() []Entry[K, V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entriesLocked()
}

// All enumerates the entries in order. The enumeration works on a snapshot
// taken when it starts; later mutations are not reflected.
func (s *Store[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range s.Snapshot() {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// --- Internals ---

func (s *Store[K, V]) entriesLocked() []Entry[K, V] {
	out := make([]Entry[K, V], len(s.order))
	for i, k := range s.order {
		out[i] = Entry[K, V]{Key: k, Value: s.m[k]}
	}
	return out
}

func (s *Store[K, V]) insertLocked(k K, v V) {
	s.m[k] = v
	s.order = append(s.order, k)
	s.post(notify.Added(Entry[K, V]{Key: k, Value: v}), true, true)
}

func (s *Store[K, V]) replaceLocked(k K, old, next V) {
	s.m[k] = next
	s.post(notify.Replaced(
		[]Entry[K, V]{{Key: k, Value: next}},
		[]Entry[K, V]{{Key: k, Value: old}},
	), false, false)
}

// post queues ev and the property changes it implies. Called with the
// write lock held so that queue order equals mutation order.
func (s *Store[K, V]) post(ev notify.ChangeEvent[Entry[K, V]], countChanged, keysChanged bool) {
	if s.router == nil {
		return
	}
	s.router.Post(ev)

	props := make([]notify.PropertyChange, 0, 4)
	if countChanged {
		props = append(props, notify.PropertyChange{Source: s, Name: notify.PropertyCount})
	}
	if keysChanged {
		props = append(props, notify.PropertyChange{Source: s, Name: notify.PropertyKeys})
	}
	props = append(props,
		notify.PropertyChange{Source: s, Name: notify.PropertyValues},
		notify.PropertyChange{Source: s, Name: notify.PropertyItem},
	)
	s.router.PostProperty(props...)
}

// flush drains the router. Deferred ahead of the unlock so it runs after
// the lock is released.
func (s *Store[K, V]) flush() {
	if s.router != nil {
		s.router.Drain()
	}
}
