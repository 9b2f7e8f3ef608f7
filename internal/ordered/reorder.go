package ordered

import (
	"cmp"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/ordex/internal/errs"
	"github.com/roach88/ordex/internal/notify"
)

// Direction selects ascending or descending order.
type Direction int

const (
	// Ascending sorts smallest first.
	Ascending Direction = iota
	// Descending sorts largest first.
	Descending
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// Reorder sorts the order sequence by cmp. A nil cmp falls back to the
// comparer configured WithComparer; with neither, Reorder fails with
// InvalidArgument. The sort is stable and map content is never touched.
func (s *Store[K, V]) Reorder(cmp func(a, b K) int, dir Direction) error {
	if cmp == nil {
		cmp = s.cmp
	}
	if cmp == nil {
		return errs.NewInvalidArgument("reorder requires a comparer", nil)
	}
	s.reorder(cmp, dir)
	return nil
}

// ReorderBy sorts the order sequence by comparing proj(key) with cmp.
func ReorderBy[K comparable, V, P any](s *Store[K, V], proj func(K) P, cmp func(a, b P) int, dir Direction) error {
	if proj == nil || cmp == nil {
		return errs.NewInvalidArgument("reorder requires a projection and a comparer", nil)
	}
	s.reorder(func(a, b K) int { return cmp(proj(a), proj(b)) }, dir)
	return nil
}

func (s *Store[K, V]) reorder(cmp func(a, b K) int, dir Direction) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir == Descending {
		slices.SortStableFunc(s.order, func(a, b K) int { return cmp(b, a) })
	} else {
		slices.SortStableFunc(s.order, cmp)
	}

	if s.router != nil {
		s.post(notify.Moved(s.entriesLocked()...), false, true)
	}
	s.log.Debug("store reordered", "direction", dir.String(), "len", len(s.order))
}

// Natural returns the natural comparer of an ordered key type.
func Natural[K cmp.Ordered]() func(a, b K) int {
	return cmp.Compare[K]
}

// Collated returns a locale-aware string comparer.
//
// A collate.Collator is not safe for concurrent use, so calls are
// serialized.
func Collated(tag language.Tag, opts ...collate.Option) func(a, b string) int {
	var (
		mu sync.Mutex
		c  = collate.New(tag, opts...)
	)
	return func(a, b string) int {
		mu.Lock()
		defer mu.Unlock()
		return c.CompareString(a, b)
	}
}
