// Package index implements View, a secondary index that groups the
// entities of a source collection into buckets by a derived key and keeps
// itself in sync with the source's change stream.
//
// Construction subscribes, then indexes every current source item in
// source order, re-reading the source if it changed meanwhile. Source
// events are applied as follows:
//
//	Add, Move   upsert each new item
//	Replace     for each (new, old) pair in order, upsert new, then
//	            remove old unless it equals new
//	Remove      remove each old item
//	Reset       rebuild from the source's current items
//
// Nil entities are skipped everywhere.
//
// Key drift: the key function may return a different key for the same
// entity over time. TryAddOrUpdateEntity repairs this by scanning every
// bucket when the entity is not in the bucket its current key maps to.
// TryRemove only looks in the mapped bucket; callers that mutate keys in
// place should upsert before removing.
//
// Every successful mutation posts exactly one ChangeEvent to the view's
// router. Posting happens under the view lock and delivery after it is
// released, so handlers may read the view.
package index
