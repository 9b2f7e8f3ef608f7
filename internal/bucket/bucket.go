// Package bucket implements a paged, append-friendly container used by the
// secondary index to hold the entities that share one index key.
//
// Storage is an arena of fixed-size pages. Appends fill the last page and
// allocate a new one when it is full, so existing entities never move on
// append. Removal marks the slot as a tombstone instead of shifting the
// remainder. Positions exposed by the API are live ordinals: tombstones
// are skipped.
//
// Tombstones are reclaimed by Compact, which repacks the live entities in
// order. With the default options a bucket compacts itself once it holds
// at least DefaultCompactMin tombstones and more tombstones than live
// entities; WithCompaction(0, 0) disables that. A bucket whose last live
// entity is removed always releases its pages.
package bucket

import "sync"

const (
	// DefaultPageSize is the number of slots per page.
	DefaultPageSize = 32

	// DefaultCompactMin is the minimum number of tombstones before
	// automatic compaction is considered.
	DefaultCompactMin = 64

	// DefaultCompactRatio is the tombstone-to-live ratio above which
	// automatic compaction runs.
	DefaultCompactRatio = 1.0
)

// Option configures a Bucket.
type Option func(*config)

type config struct {
	compactMin   int
	compactRatio float64
}

// WithCompaction sets the automatic compaction thresholds. A bucket
// compacts after a removal when tombstones >= min and
// tombstones > ratio*live. min <= 0 disables automatic compaction.
func WithCompaction(min int, ratio float64) Option {
	return func(c *config) {
		c.compactMin = min
		c.compactRatio = ratio
	}
}

type slot[E any] struct {
	value E
	dead  bool
}

// Bucket is a paged container of entities. It is safe for concurrent use;
// all operations on one bucket are serialized.
type Bucket[E any] struct {
	mu       sync.Mutex
	pageSize int
	pages    [][]slot[E]
	used     int // slots written, live or dead
	live     int
	cfg      config
}

// New creates an empty bucket. pageSize <= 0 selects DefaultPageSize.
func New[E any](pageSize int, opts ...Option) *Bucket[E] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	cfg := config{
		compactMin:   DefaultCompactMin,
		compactRatio: DefaultCompactRatio,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bucket[E]{pageSize: pageSize, cfg: cfg}
}

// Append adds e after the last entity. O(1) amortized.
func (b *Bucket[E]) Append(e E) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(e)
}

// Len returns the number of live entities.
func (b *Bucket[E]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// Tombstones returns the number of removed slots not yet reclaimed.
func (b *Bucket[E]) Tombstones() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used - b.live
}

// Pages returns the number of allocated pages.
func (b *Bucket[E]) Pages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pages)
}

// At returns the entity at live ordinal i.
func (b *Bucket[E]) At(i int) (E, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s := b.liveSlotLocked(i); s != nil {
		return s.value, true
	}
	var zero E
	return zero, false
}

// IndexFunc returns the live ordinal of the first entity matching match,
// or -1.
func (b *Bucket[E]) IndexFunc(match func(E) bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ordinal := -1, 0
	b.eachLiveLocked(func(s *slot[E]) bool {
		if match(s.value) {
			idx = ordinal
			return false
		}
		ordinal++
		return true
	})
	return idx
}

// ReplaceFunc swaps the first entity matching match for e in place and
// returns the previous entity.
func (b *Bucket[E]) ReplaceFunc(match func(E) bool, e E) (E, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.findLocked(match)
	if s == nil {
		var zero E
		return zero, false
	}
	old := s.value
	s.value = e
	return old, true
}

// RemoveFunc tombstones the first entity matching match and returns it.
// O(bucket size).
func (b *Bucket[E]) RemoveFunc(match func(E) bool) (E, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.findLocked(match)
	if s == nil {
		var zero E
		return zero, false
	}

	old := s.value
	var zero E
	s.value = zero // drop the reference for GC
	s.dead = true
	b.live--

	b.maybeCompactLocked()
	return old, true
}

// Items returns the live entities in order.
func (b *Bucket[E]) Items() []E {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]E, 0, b.live)
	b.eachLiveLocked(func(s *slot[E]) bool {
		out = append(out, s.value)
		return true
	})
	return out
}

// Compact reclaims tombstones by repacking live entities, in order, into
// fresh pages.
func (b *Bucket[E]) Compact() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compactLocked()
}

func (b *Bucket[E]) appendLocked(e E) {
	if b.used%b.pageSize == 0 {
		b.pages = append(b.pages, make([]slot[E], 0, b.pageSize))
	}
	last := len(b.pages) - 1
	b.pages[last] = append(b.pages[last], slot[E]{value: e})
	b.used++
	b.live++
}

func (b *Bucket[E]) eachLiveLocked(fn func(*slot[E]) bool) {
	for p := range b.pages {
		page := b.pages[p]
		for i := range page {
			if page[i].dead {
				continue
			}
			if !fn(&page[i]) {
				return
			}
		}
	}
}

func (b *Bucket[E]) findLocked(match func(E) bool) *slot[E] {
	var found *slot[E]
	b.eachLiveLocked(func(s *slot[E]) bool {
		if match(s.value) {
			found = s
			return false
		}
		return true
	})
	return found
}

func (b *Bucket[E]) liveSlotLocked(i int) *slot[E] {
	if i < 0 || i >= b.live {
		return nil
	}
	// Fast path: no tombstones, ordinal equals position.
	if b.used == b.live {
		return &b.pages[i/b.pageSize][i%b.pageSize]
	}
	var found *slot[E]
	ordinal := 0
	b.eachLiveLocked(func(s *slot[E]) bool {
		if ordinal == i {
			found = s
			return false
		}
		ordinal++
		return true
	})
	return found
}

func (b *Bucket[E]) maybeCompactLocked() {
	if b.live == 0 {
		b.pages = nil
		b.used = 0
		return
	}
	dead := b.used - b.live
	if b.cfg.compactMin <= 0 || dead < b.cfg.compactMin {
		return
	}
	if float64(dead) <= b.cfg.compactRatio*float64(b.live) {
		return
	}
	b.compactLocked()
}

func (b *Bucket[E]) compactLocked() {
	if b.used == b.live {
		return
	}
	old := b.pages
	b.pages = nil
	b.used = 0
	b.live = 0
	for p := range old {
		for _, s := range old[p] {
			if !s.dead {
				b.appendLocked(s.value)
			}
		}
	}
}
