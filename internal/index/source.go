package index

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/ordex/internal/errs"
	"github.com/roach88/ordex/internal/notify"
)

// Source is a mutable collection a View can index.
//
// Subscribe registers fn for the collection's change events and returns a
// function that cancels the subscription. Items must be callable from
// inside fn.
type Source[E any] interface {
	Items() []E
	Subscribe(fn func(notify.ChangeEvent[E])) (cancel func())
}

// ObservableSlice is an in-process Source backed by a slice.
//
// Mutations are serialized. Each one posts its event while the items lock
// is held and delivers it through an inline router after the lock is
// released, so subscribers may call Items. Subscribers must not mutate the
// slice they are subscribed to.
type ObservableSlice[E any] struct {
	mu     sync.Mutex
	items  []E
	router *notify.Router[E]
}

// NewObservableSlice creates a slice holding items.
func NewObservableSlice[E any](log *slog.Logger, items ...E) *ObservableSlice[E] {
	if log == nil {
		log = slog.Default()
	}
	return &ObservableSlice[E]{
		items:  slices.Clone(items),
		router: notify.NewRouter[E](notify.WithLogger(log.With("source", "observable_slice"))),
	}
}

// Items returns a copy of the current items.
func (s *ObservableSlice[E]) Items() []E {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Len returns the number of items.
func (s *ObservableSlice[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Subscribe implements Source.
func (s *ObservableSlice[E]) Subscribe(fn func(notify.ChangeEvent[E])) (cancel func()) {
	id := notify.NewHandlerID()
	s.router.Subscribe(notify.Inline{}, id, notify.HandlerFuncs[E]{OnCollection: fn})
	return sync.OnceFunc(func() {
		s.router.Unsubscribe(notify.Inline{}, id)
	})
}

// Suspend holds event delivery until the returned function is called.
// Events raised meanwhile reach subscribers consolidated.
func (s *ObservableSlice[E]) Suspend() (release func()) {
	return s.router.Suspend()
}

// Append adds items at the end.
func (s *ObservableSlice[E]) Append(items ...E) {
	if len(items) == 0 {
		return
	}
	defer s.router.Drain()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, items...)
	s.router.Post(notify.Added(slices.Clone(items)...))
}

// Insert adds e at position i.
func (s *ObservableSlice[E]) Insert(i int, e E) error {
	defer s.router.Drain()
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i > len(s.items) {
		return errs.NewInvalidArgument("insert position out of range", i)
	}
	s.items = slices.Insert(s.items, i, e)
	s.router.Post(notify.Added(e))
	return nil
}

// RemoveAt removes and returns the item at position i.
func (s *ObservableSlice[E]) RemoveAt(i int) (E, error) {
	defer s.router.Drain()
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		var zero E
		return zero, errs.NewInvalidArgument("remove position out of range", i)
	}
	old := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	s.router.Post(notify.Removed(old))
	return old, nil
}

// Set replaces the item at position i and returns the previous item.
func (s *ObservableSlice[E]) Set(i int, e E) (E, error) {
	defer s.router.Drain()
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		var zero E
		return zero, errs.NewInvalidArgument("set position out of range", i)
	}
	old := s.items[i]
	s.items[i] = e
	s.router.Post(notify.Replaced([]E{e}, []E{old}))
	return old, nil
}

// Move relocates the item at from to position to.
func (s *ObservableSlice[E]) Move(from, to int) error {
	defer s.router.Drain()
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 || from >= len(s.items) || to < 0 || to >= len(s.items) {
		return errs.NewInvalidArgument("move position out of range", [2]int{from, to})
	}
	if from == to {
		return nil
	}
	e := s.items[from]
	s.items = slices.Insert(slices.Delete(s.items, from, from+1), to, e)
	s.router.Post(notify.Moved(e))
	return nil
}

// Reset replaces every item.
func (s *ObservableSlice[E]) Reset(items ...E) {
	defer s.router.Drain()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.Clone(items)
	s.router.Post(notify.Reset[E]())
}
