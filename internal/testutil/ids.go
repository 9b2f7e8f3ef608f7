package testutil

import (
	"fmt"
	"sync"
)

// FixedIDs returns predetermined identities in order.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedIDs("h-1", "h-2")
//	gen.Next() // "h-1"
//	gen.Next() // "h-2"
//	gen.Next() // panic: all ids exhausted
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Next returns the next predetermined id.
//
// Panics when exhausted, so a test that registers more handlers than it
// planned fails loudly.
func (g *FixedIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SequentialIDs returns "<prefix>-1", "<prefix>-2", ... without limit.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a sequential generator.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
