package notify

import "fmt"

// Action distinguishes collection change kinds.
type Action int

const (
	// ActionAdd reports items added to a collection.
	ActionAdd Action = iota + 1
	// ActionRemove reports items removed from a collection.
	ActionRemove
	// ActionReplace reports items replaced in place; OldItems holds the
	// previous values.
	ActionReplace
	// ActionMove reports items whose position changed.
	ActionMove
	// ActionReset reports that the collection changed wholesale.
	ActionReset
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "Add"
	case ActionRemove:
		return "Remove"
	case ActionReplace:
		return "Replace"
	case ActionMove:
		return "Move"
	case ActionReset:
		return "Reset"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ChangeEvent is a collection change notification.
//
// After posting it should be treated as immutable; the router hands the
// same value to every handler.
type ChangeEvent[T any] struct {
	Action   Action
	NewItems []T
	OldItems []T
}

// Added creates an Add event.
func Added[T any](items ...T) ChangeEvent[T] {
	return ChangeEvent[T]{Action: ActionAdd, NewItems: items}
}

// Removed creates a Remove event.
func Removed[T any](items ...T) ChangeEvent[T] {
	return ChangeEvent[T]{Action: ActionRemove, OldItems: items}
}

// Replaced creates a Replace event.
func Replaced[T any](newItems, oldItems []T) ChangeEvent[T] {
	return ChangeEvent[T]{Action: ActionReplace, NewItems: newItems, OldItems: oldItems}
}

// Moved creates a Move event. items are listed in their new order.
func Moved[T any](items ...T) ChangeEvent[T] {
	return ChangeEvent[T]{Action: ActionMove, NewItems: items}
}

// Reset creates a Reset event.
func Reset[T any]() ChangeEvent[T] {
	return ChangeEvent[T]{Action: ActionReset}
}

// Items returns the items that identify the event: OldItems for removals,
// NewItems otherwise.
func (e ChangeEvent[T]) Items() []T {
	if e.Action == ActionRemove {
		return e.OldItems
	}
	return e.NewItems
}

// String formats the event for logs and CLI output.
func (e ChangeEvent[T]) String() string {
	if e.Action == ActionReplace {
		return fmt.Sprintf("%s(%v <- %v)", e.Action, e.NewItems, e.OldItems)
	}
	return fmt.Sprintf("%s(%v)", e.Action, e.Items())
}

// Well-known property names raised by the ordered store and the index.
const (
	PropertyCount  = "Count"
	PropertyKeys   = "Keys"
	PropertyValues = "Values"
	PropertyItem   = "Item[]"
)

// PropertyChange reports that a named property of Source changed.
//
// Source identifies the originating entity and is used as a grouping key
// during consolidation, so it should be comparable (usually a pointer).
// Changes from a non-comparable Source are delivered but never merged.
type PropertyChange struct {
	Source any
	Name   string
}
