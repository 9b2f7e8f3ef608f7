package notify

import (
	"github.com/google/uuid"
)

// HandlerID identifies a handler independently of the executor it is
// registered under.
type HandlerID string

// NewHandlerID returns a fresh, time-sortable UUIDv7 identity.
//
// Panics if UUID generation fails (should never happen in practice).
func NewHandlerID() HandlerID {
	return HandlerID(uuid.Must(uuid.NewV7()).String())
}

// Handler receives notifications on the executor it was registered with.
type Handler[T any] interface {
	CollectionChanged(ev ChangeEvent[T])
	PropertyChanged(pc PropertyChange)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields ignore the
// corresponding notification kind.
type HandlerFuncs[T any] struct {
	OnCollection func(ChangeEvent[T])
	OnProperty   func(PropertyChange)
}

// CollectionChanged implements Handler.
func (h HandlerFuncs[T]) CollectionChanged(ev ChangeEvent[T]) {
	if h.OnCollection != nil {
		h.OnCollection(ev)
	}
}

// PropertyChanged implements Handler.
func (h HandlerFuncs[T]) PropertyChanged(pc PropertyChange) {
	if h.OnProperty != nil {
		h.OnProperty(pc)
	}
}
