// Package listview merges saved entities into filtered list views.
package listview

import "slices"

// Change describes what Reconcile did to a list.
type Change int

const (
	Unchanged Change = iota
	Inserted
	Replaced
	Removed
)

func (c Change) String() string {
	switch c {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// Reconcile merges saved into list. An entry with the same key is replaced in
// place while saved still matches the view, and removed once it does not. A
// matching entity that is not yet listed is prepended. list is never modified.
func Reconcile[T any, K comparable](list []T, saved T, key func(T) K, matches func(T) bool) ([]T, Change) {
	k := key(saved)
	idx := slices.IndexFunc(list, func(item T) bool { return key(item) == k })
	keep := matches(saved)
	switch {
	case idx >= 0 && keep:
		out := slices.Clone(list)
		out[idx] = saved
		return out, Replaced
	case idx >= 0:
		return slices.Delete(slices.Clone(list), idx, idx+1), Removed
	case keep:
		return append([]T{saved}, list...), Inserted
	}
	return list, Unchanged
}
