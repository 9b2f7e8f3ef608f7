package index

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/roach88/ordex/internal/bucket"
	"github.com/roach88/ordex/internal/errs"
	"github.com/roach88/ordex/internal/notify"
)

// Option configures a View.
type Option func(*options)

type options struct {
	unique     bool
	eq         any
	router     any
	log        *slog.Logger
	pageSize   int
	bucketOpts []bucket.Option
}

// WithUnique enables uniqueness: adding an entity equal to any indexed
// entity fails with UniquenessViolation.
func WithUnique(unique bool) Option {
	return func(o *options) {
		o.unique = unique
	}
}

// WithEquality sets the entity equality used by uniqueness checks, removal
// and update. Default: ==.
func WithEquality[E any](eq func(a, b E) bool) Option {
	return func(o *options) {
		if eq != nil {
			o.eq = eq
		}
	}
}

// WithRouter routes the view's change notifications through r. By default
// each view owns a private router with the inline executor.
func WithRouter[E any](r *notify.Router[E]) Option {
	return func(o *options) {
		if r != nil {
			o.router = r
		}
	}
}

// WithLogger sets the view's logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithPageSize sets the page size of new buckets.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithCompaction sets the automatic compaction thresholds of new buckets.
func WithCompaction(min int, ratio float64) Option {
	return func(o *options) {
		o.bucketOpts = append(o.bucketOpts, bucket.WithCompaction(min, ratio))
	}
}

// Group is one bucket of a view snapshot.
type Group[K comparable, E any] struct {
	Key   K
	Items []E
}

// View is a secondary index over a Source.
//
// Thread-safety model:
//   - reads share the view lock; mutations hold it exclusively, so the
//     uniqueness check and the insert form one atomic step
//   - each bucket additionally serializes its own operations
//
// INVARIANTS:
//   - keys lists every bucket key once, in discovery order
//   - no bucket is empty
//   - count equals the sum of bucket lengths
type View[E comparable, K comparable] struct {
	key        func(E) K
	eq         func(a, b E) bool
	unique     bool
	pageSize   int
	bucketOpts []bucket.Option
	router     *notify.Router[E]
	log        *slog.Logger

	mu      sync.RWMutex
	buckets map[K]*bucket.Bucket[E]
	keys    []K
	count   int

	src       Source[E]
	cancel    func()
	closeOnce sync.Once

	// Source events seen before the initial index is built only mark it
	// stale.
	initMu sync.Mutex
	ready  bool
	missed int
}

// New creates a view over src keyed by key. New subscribes to src first and
// then indexes every current source item; if the source reports a change
// before that index is complete, the index is built again from a fresh
// read, so no mutation is lost.
func New[E comparable, K comparable](src Source[E], key func(E) K, opts ...Option) (*View[E, K], error) {
	if src == nil {
		return nil, errs.NewInvalidArgument("index requires a source", nil)
	}
	if key == nil {
		return nil, errs.NewInvalidArgument("index requires a key function", nil)
	}

	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	v := &View[E, K]{
		key:        key,
		eq:         func(a, b E) bool { return a == b },
		unique:     o.unique,
		pageSize:   o.pageSize,
		bucketOpts: o.bucketOpts,
		log:        o.log.With("component", "index.view"),
		buckets:    make(map[K]*bucket.Bucket[E]),
		src:        src,
	}

	if o.eq != nil {
		eq, ok := o.eq.(func(a, b E) bool)
		if !ok {
			return nil, errs.NewTypeMismatch("equality", reflect.TypeFor[func(a, b E) bool]().String(), o.eq)
		}
		v.eq = eq
	}
	if o.router != nil {
		r, ok := o.router.(*notify.Router[E])
		if !ok {
			return nil, errs.NewTypeMismatch("router", reflect.TypeFor[*notify.Router[E]]().String(), o.router)
		}
		v.router = r
	} else {
		v.router = notify.NewRouter[E](notify.WithLogger(o.log))
	}

	v.cancel = src.Subscribe(v.followSource)
	var entities, buckets int
	for builds := 1; ; builds++ {
		v.mu.Lock()
		v.indexLocked(src.Items())
		entities, buckets = v.count, len(v.keys)
		v.mu.Unlock()

		v.initMu.Lock()
		if v.missed == 0 {
			v.ready = true
			v.initMu.Unlock()
			break
		}
		v.missed = 0
		v.initMu.Unlock()
		v.log.Debug("source changed while indexing, rebuilding", "attempt", builds)
	}
	v.log.Debug("index built", "entities", entities, "buckets", buckets, "unique", v.unique)
	return v, nil
}

// Router returns the router the view posts its change notifications to.
func (v *View[E, K]) Router() *notify.Router[E] {
	return v.router
}

// Close unsubscribes from the source. The view stays readable. Close is
// idempotent.
func (v *View[E, K]) Close() {
	v.closeOnce.Do(func() {
		v.cancel()
		v.log.Debug("index detached from source")
	})
}

// --- Reads ---

// Lookup returns the entities whose key is k, in insertion order.
func (v *View[E, K]) Lookup(k K) ([]E, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	b, ok := v.buckets[k]
	if !ok {
		return nil, false
	}
	return b.Items(), true
}

// Keys returns the bucket keys in discovery order.
func (v *View[E, K]) Keys() []K {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.keys)
}

// Len returns the number of indexed entities across all buckets.
func (v *View[E, K]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count
}

// BucketCount returns the number of buckets.
func (v *View[E, K]) BucketCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.buckets)
}

// Contains reports whether an entity equal to e is indexed under any key.
func (v *View[E, K]) Contains(e E) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	_, _, found := v.findLocked(e)
	return found
}

// IndexOf returns the key of the bucket holding an entity equal to e and
// its position within that bucket. A drifted entity is reported under the
// bucket it actually sits in.
func (v *View[E, K]) IndexOf(e E) (K, int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.findLocked(e)
}

// At returns the entity at position i of the bucket for k.
func (v *View[E, K]) At(k K, i int) (E, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	b, ok := v.buckets[k]
	if !ok {
		var zero E
		return zero, false
	}
	return b.At(i)
}

// Snapshot returns every bucket in discovery order.
func (v *View[E, K]) Snapshot() []Group[K, E] {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Group[K, E], len(v.keys))
	for i, k := range v.keys {
		out[i] = Group[K, E]{Key: k, Items: v.buckets[k].Items()}
	}
	return out
}

// --- Mutations ---

// TryAddEntity indexes e under its key. In unique mode it fails with
// UniquenessViolation, leaving every bucket untouched, when an equal
// entity is already indexed under any key. Returns false without error for
// a nil entity.
func (v *View[E, K]) TryAddEntity(e E) (bool, error) {
	if isNil(e) {
		return false, nil
	}

	defer v.router.Drain()
	v.mu.Lock()
	defer v.mu.Unlock()

	k := v.key(e)
	if v.unique {
		if _, _, found := v.findLocked(e); found {
			return false, errs.NewUniquenessViolation(k, e)
		}
	}
	created := v.appendLocked(k, e)
	v.post(notify.Added(e), created)
	return true, nil
}

// TryRemove removes the first entity equal to e from the bucket of e's
// current key and returns it. Other buckets are not searched.
func (v *View[E, K]) TryRemove(e E) (bool, E) {
	var zero E
	if isNil(e) {
		return false, zero
	}

	defer v.router.Drain()
	v.mu.Lock()
	defer v.mu.Unlock()

	old, ok := v.removeLocked(e)
	if !ok {
		return false, zero
	}
	return true, old
}

// TryAddOrUpdateEntity upserts e. When no equal entity is indexed, e is
// added. When one sits in the bucket of e's current key it is replaced in
// place. When one sits in another bucket, because its key drifted, it is
// moved to the right bucket. The replaced entities are returned. Returns
// false only for a nil entity.
func (v *View[E, K]) TryAddOrUpdateEntity(e E) (bool, []E) {
	if isNil(e) {
		return false, nil
	}

	defer v.router.Drain()
	v.mu.Lock()
	defer v.mu.Unlock()

	return true, v.upsertLocked(e, true)
}

// --- Source reactions ---

// followSource is the source subscription. Until New has finished the
// initial index it only records that the source moved on.
func (v *View[E, K]) followSource(ev notify.ChangeEvent[E]) {
	v.initMu.Lock()
	if !v.ready {
		v.missed++
		v.initMu.Unlock()
		return
	}
	v.initMu.Unlock()
	v.handleSourceEvent(ev)
}

func (v *View[E, K]) handleSourceEvent(ev notify.ChangeEvent[E]) {
	defer v.router.Drain()
	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Action {
	case notify.ActionAdd, notify.ActionMove:
		v.upsertAllLocked(ev.NewItems)

	case notify.ActionReplace:
		v.replaceAllLocked(ev.NewItems, ev.OldItems)

	case notify.ActionRemove:
		for _, old := range ev.OldItems {
			if !isNil(old) {
				v.removeLocked(old)
			}
		}

	case notify.ActionReset:
		v.rebuildLocked()

	default:
		v.log.Warn("unknown source action ignored", "action", ev.Action.String())
	}
}

func (v *View[E, K]) upsertAllLocked(items []E) {
	for _, e := range items {
		if !isNil(e) {
			v.upsertLocked(e, true)
		}
	}
}

// replaceAllLocked applies a Replace event pair by pair, in order, so a
// consolidated run of replacements ends in the state of the last one.
// Unpaired new items are upserted; an unpaired old item is removed unless
// it equals one of the new items.
func (v *View[E, K]) replaceAllLocked(newItems, oldItems []E) {
	n := min(len(newItems), len(oldItems))
	for i := 0; i < n; i++ {
		e, old := newItems[i], oldItems[i]
		if !isNil(e) {
			v.upsertLocked(e, true)
		}
		if isNil(old) || (!isNil(e) && v.eq(e, old)) {
			continue
		}
		v.removeLocked(old)
	}

	v.upsertAllLocked(newItems[n:])
	for _, old := range oldItems[n:] {
		if isNil(old) || slices.ContainsFunc(newItems, func(e E) bool { return !isNil(e) && v.eq(e, old) }) {
			continue
		}
		v.removeLocked(old)
	}
}

// indexLocked discards the buckets and indexes items without posting.
func (v *View[E, K]) indexLocked(items []E) {
	v.buckets = make(map[K]*bucket.Bucket[E])
	v.keys = nil
	v.count = 0
	for _, e := range items {
		if !isNil(e) {
			v.upsertLocked(e, false)
		}
	}
}

func (v *View[E, K]) rebuildLocked() {
	v.indexLocked(v.src.Items())
	v.router.Post(notify.Reset[E]())
	v.postProperties(true)
	v.log.Debug("index rebuilt", "entities", v.count, "buckets", len(v.keys))
}

// --- Internals ---

// upsertLocked adds or updates e and returns the entities it replaced.
// With emit false no events are posted.
func (v *View[E, K]) upsertLocked(e E, emit bool) []E {
	k := v.key(e)
	match := func(x E) bool { return v.eq(x, e) }

	if b, ok := v.buckets[k]; ok {
		if old, replaced := b.ReplaceFunc(match, e); replaced {
			if emit {
				v.postReplaced(e, old, false)
			}
			return []E{old}
		}
	}

	for i, other := range v.keys {
		if other == k {
			continue
		}
		old, moved := v.buckets[other].RemoveFunc(match)
		if !moved {
			continue
		}
		dropped := v.dropIfEmptyLocked(i, other)
		v.count--
		created := v.appendLocked(k, e)
		if emit {
			v.postReplaced(e, old, dropped || created)
		}
		v.log.Debug("drifted entity relocated", "from", other, "to", k)
		return []E{old}
	}

	created := v.appendLocked(k, e)
	if emit {
		v.post(notify.Added(e), created)
	}
	return nil
}

func (v *View[E, K]) removeLocked(e E) (E, bool) {
	k := v.key(e)
	b, ok := v.buckets[k]
	if !ok {
		var zero E
		return zero, false
	}
	old, removed := b.RemoveFunc(func(x E) bool { return v.eq(x, e) })
	if !removed {
		return old, false
	}
	v.count--
	dropped := v.dropIfEmptyLocked(slices.Index(v.keys, k), k)
	v.post(notify.Removed(old), dropped)
	return old, true
}

// appendLocked appends e to the bucket of k, creating it if needed.
// Reports whether a bucket was created.
func (v *View[E, K]) appendLocked(k K, e E) bool {
	b, ok := v.buckets[k]
	if !ok {
		b = bucket.New[E](v.pageSize, v.bucketOpts...)
		v.buckets[k] = b
		v.keys = append(v.keys, k)
	}
	b.Append(e)
	v.count++
	return !ok
}

// dropIfEmptyLocked deletes the bucket of k, found at position i of keys,
// if it holds no entity.
func (v *View[E, K]) dropIfEmptyLocked(i int, k K) bool {
	if v.buckets[k].Len() > 0 {
		return false
	}
	delete(v.buckets, k)
	if i >= 0 {
		v.keys = slices.Delete(v.keys, i, i+1)
	}
	return true
}

// findLocked locates an entity equal to e: the mapped bucket first, then
// every other bucket in key order. Returns the key and live ordinal.
func (v *View[E, K]) findLocked(e E) (K, int, bool) {
	match := func(x E) bool { return v.eq(x, e) }

	k := v.key(e)
	if b, ok := v.buckets[k]; ok {
		if i := b.IndexFunc(match); i >= 0 {
			return k, i, true
		}
	}
	for _, other := range v.keys {
		if other == k {
			continue
		}
		if i := v.buckets[other].IndexFunc(match); i >= 0 {
			return other, i, true
		}
	}
	var zero K
	return zero, -1, false
}

func (v *View[E, K]) postReplaced(e, old E, keysChanged bool) {
	v.router.Post(notify.Replaced([]E{e}, []E{old}))

	var props []notify.PropertyChange
	if keysChanged {
		props = append(props, notify.PropertyChange{Source: v, Name: notify.PropertyKeys})
	}
	props = append(props, notify.PropertyChange{Source: v, Name: notify.PropertyItem})
	v.router.PostProperty(props...)
}

// post queues a structural event with its property changes.
func (v *View[E, K]) post(ev notify.ChangeEvent[E], keysChanged bool) {
	v.router.Post(ev)
	v.postProperties(keysChanged)
}

func (v *View[E, K]) postProperties(keysChanged bool) {
	props := []notify.PropertyChange{{Source: v, Name: notify.PropertyCount}}
	if keysChanged {
		props = append(props, notify.PropertyChange{Source: v, Name: notify.PropertyKeys})
	}
	props = append(props, notify.PropertyChange{Source: v, Name: notify.PropertyItem})
	v.router.PostProperty(props...)
}

// isNil reports whether e is a nil pointer, interface, map, slice, channel
// or function.
func isNil[E any](e E) bool {
	rv := reflect.ValueOf(any(e))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
