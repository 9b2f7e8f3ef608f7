package index

import "github.com/roach88/ordex/internal/errs"

// Untyped exposes a View to callers that only hold `any`. A value of the
// wrong runtime type fails with InvalidArgument before the view is
// reached.
type Untyped[E comparable, K comparable] struct {
	view *View[E, K]
}

// NewUntyped wraps v.
func NewUntyped[E comparable, K comparable](v *View[E, K]) *Untyped[E, K] {
	return &Untyped[E, K]{view: v}
}

// View returns the wrapped view.
func (u *Untyped[E, K]) View() *View[E, K] {
	return u.view
}

// AddAny is View.TryAddEntity for an untyped entity.
func (u *Untyped[E, K]) AddAny(e any) (bool, error) {
	entity, err := errs.Cast[E]("entity", e)
	if err != nil {
		return false, err
	}
	return u.view.TryAddEntity(entity)
}

// RemoveAny is View.TryRemove for an untyped entity.
func (u *Untyped[E, K]) RemoveAny(e any) (bool, error) {
	entity, err := errs.Cast[E]("entity", e)
	if err != nil {
		return false, err
	}
	ok, _ := u.view.TryRemove(entity)
	return ok, nil
}

// ContainsAny is View.Contains for an untyped entity.
func (u *Untyped[E, K]) ContainsAny(e any) (bool, error) {
	entity, err := errs.Cast[E]("entity", e)
	if err != nil {
		return false, err
	}
	return u.view.Contains(entity), nil
}

// LookupAny is View.Lookup for an untyped key.
func (u *Untyped[E, K]) LookupAny(k any) ([]E, bool, error) {
	key, err := errs.Cast[K]("key", k)
	if err != nil {
		return nil, false, err
	}
	items, ok := u.view.Lookup(key)
	return items, ok, nil
}
