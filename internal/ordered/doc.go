// Package ordered implements Store, a concurrency-safe key/value map whose
// iteration order is an independently mutable sequence of keys.
//
// Random access goes through a Go map; sequential access follows the order
// sequence. The two always describe the same key set: every structural
// mutation updates both under one write lock, and readers share a read
// lock, so no reader can observe them disagreeing.
//
// Ordering:
//   - New keys are appended, whether they arrive through Add, TryAdd,
//     AddOrUpdate, GetOrAdd or Set.
//   - Remove preserves the relative order of the remaining keys.
//   - Reorder replaces the sequence by sorting the keys; values are never
//     touched.
//
// Notifications: when built WithRouter, each successful mutation posts
// one ChangeEvent plus the affected property names (Count, Keys, Values,
// Item[]) while the lock is held, then drains the router after the lock is
// released. Queue order therefore matches mutation order, and handlers that
// run inline may read or mutate the store.
//
// Value factories passed to AddOrUpdate and friends run exactly once, under
// the write lock. They must not call back into the same store.
package ordered
