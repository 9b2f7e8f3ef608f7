package notify

import (
	"reflect"

	"github.com/zhangyunhao116/skipset"
)

// ConsolidateEvents merges runs of consecutive events that share an Action.
//
// The merged event carries the concatenation of the run's items in arrival
// order; Replace runs concatenate both NewItems and OldItems. A change of
// Action starts a new run, so [Add(a), Remove(c), Add(b)] stays three
// events. The input is not modified.
func ConsolidateEvents[T any](events []ChangeEvent[T]) []ChangeEvent[T] {
	if len(events) == 0 {
		return nil
	}

	out := make([]ChangeEvent[T], 0, len(events))
	for _, ev := range events {
		n := len(out)
		if n > 0 && out[n-1].Action == ev.Action {
			last := &out[n-1]
			last.NewItems = append(last.NewItems, ev.NewItems...)
			last.OldItems = append(last.OldItems, ev.OldItems...)
			continue
		}
		out = append(out, ChangeEvent[T]{
			Action:   ev.Action,
			NewItems: cloneItems(ev.NewItems),
			OldItems: cloneItems(ev.OldItems),
		})
	}
	return out
}

// nameSet is the subset of the skipset API used for name deduplication.
type nameSet interface {
	Add(value string) bool
	Range(f func(value string) bool)
}

// ConsolidateProperties collapses repeated property notifications.
//
// Changes are grouped by Source in first-seen order; within a group each
// Name appears once, in lexical order. How often a name was raised, and in
// which order, is discarded. A Source that is not comparable cannot be
// grouped: each of its changes is kept as a group of its own.
func ConsolidateProperties(changes []PropertyChange) []PropertyChange {
	if len(changes) == 0 {
		return nil
	}

	type group struct {
		source any
		names  nameSet
	}
	var (
		groups []group
		bySrc  = make(map[any]int)
	)
	for _, pc := range changes {
		if !isComparable(pc.Source) {
			groups = append(groups, group{source: pc.Source, names: skipset.New[string]()})
			groups[len(groups)-1].names.Add(pc.Name)
			continue
		}
		i, seen := bySrc[pc.Source]
		if !seen {
			i = len(groups)
			bySrc[pc.Source] = i
			groups = append(groups, group{source: pc.Source, names: skipset.New[string]()})
		}
		groups[i].names.Add(pc.Name)
	}

	out := make([]PropertyChange, 0, len(changes))
	for _, g := range groups {
		g.names.Range(func(name string) bool {
			out = append(out, PropertyChange{Source: g.source, Name: name})
			return true
		})
	}
	return out
}

// isComparable reports whether v can be used as a map key without
// panicking. A nil interface is comparable.
func isComparable(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}

func cloneItems[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
