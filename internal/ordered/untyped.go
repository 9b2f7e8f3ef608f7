package ordered

import (
	"github.com/roach88/ordex/internal/errs"
)

// Untyped exposes a Store through entry points that accept loosely typed
// values, for callers that only hold `any` (bindings, reflection-driven
// loaders). Every call checks runtime types first and fails with
// InvalidArgument on a mismatch; the store itself is never reached with a
// wrong type.
type Untyped[K comparable, V any] struct {
	store *Store[K, V]
}

// NewUntyped wraps s.
func NewUntyped[K comparable, V any](s *Store[K, V]) *Untyped[K, V] {
	return &Untyped[K, V]{store: s}
}

// Store returns the wrapped store.
func (u *Untyped[K, V]) Store() *Store[K, V] {
	return u.store
}

// AddAny is Store.Add for untyped arguments.
func (u *Untyped[K, V]) AddAny(k, v any) error {
	key, err := errs.Cast[K]("key", k)
	if err != nil {
		return err
	}
	val, err := errs.Cast[V]("value", v)
	if err != nil {
		return err
	}
	return u.store.Add(key, val)
}

// TryAddAny is Store.TryAdd for untyped arguments.
func (u *Untyped[K, V]) TryAddAny(k, v any) (bool, error) {
	key, err := errs.Cast[K]("key", k)
	if err != nil {
		return false, err
	}
	val, err := errs.Cast[V]("value", v)
	if err != nil {
		return false, err
	}
	return u.store.TryAdd(key, val), nil
}

// ContainsAny is Store.Contains for an untyped key.
func (u *Untyped[K, V]) ContainsAny(k any) (bool, error) {
	key, err := errs.Cast[K]("key", k)
	if err != nil {
		return false, err
	}
	return u.store.Contains(key), nil
}

// RemoveAny is Store.Remove for an untyped key.
func (u *Untyped[K, V]) RemoveAny(k any) (bool, error) {
	key, err := errs.Cast[K]("key", k)
	if err != nil {
		return false, err
	}
	return u.store.Remove(key), nil
}

// GetAny is Store.Get for an untyped key.
func (u *Untyped[K, V]) GetAny(k any) (any, error) {
	key, err := errs.Cast[K]("key", k)
	if err != nil {
		return nil, err
	}
	v, err := u.store.Get(key)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SetAny is Store.Set for untyped arguments.
func (u *Untyped[K, V]) SetAny(k, v any) error {
	key, err := errs.Cast[K]("key", k)
	if err != nil {
		return err
	}
	val, err := errs.Cast[V]("value", v)
	if err != nil {
		return err
	}
	u.store.Set(key, val)
	return nil
}
