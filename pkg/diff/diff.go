// Package diff compares two values of the same type field by field using a
// declared schema. Each field picks a strategy: Scalar for plain values, Set
// for order-insensitive lists, Keyed for lists of records identified by a
// key, and Map for key/value maps.
package diff

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Field compares one named aspect of S.
type Field[S any] interface {
	Name() string
	Equal(a, b S) bool
}

// Schema is an ordered list of fields.
type Schema[S any] []Field[S]

// Changed reports whether any field differs between a and b.
func (s Schema[S]) Changed(a, b S) bool {
	for _, f := range s {
		if !f.Equal(a, b) {
			return true
		}
	}
	return false
}

// Diff returns the names of the fields that differ, in schema order.
func (s Schema[S]) Diff(a, b S) []string {
	var changed []string
	for _, f := range s {
		if !f.Equal(a, b) {
			changed = append(changed, f.Name())
		}
	}
	return changed
}

type field[S any] struct {
	name  string
	equal func(a, b S) bool
}

func (f field[S]) Name() string      { return f.name }
func (f field[S]) Equal(a, b S) bool { return f.equal(a, b) }

// Func builds a field from an arbitrary comparison.
func Func[S any](name string, equal func(a, b S) bool) Field[S] {
	return field[S]{name: name, equal: equal}
}

// Scalar compares the value returned by get structurally. Nil and empty
// slices and maps are equal.
func Scalar[S, V any](name string, get func(S) V, opts ...cmp.Option) Field[S] {
	opts = append(opts, cmpopts.EquateEmpty())
	return Func(name, func(a, b S) bool {
		return cmp.Equal(get(a), get(b), opts...)
	})
}

// Set compares two lists as multisets: order is ignored, multiplicity is
// not.
func Set[S any, V comparable](name string, get func(S) []V) Field[S] {
	return Func(name, func(a, b S) bool {
		return sameElements(get(a), get(b))
	})
}

func sameElements[V comparable](a, b []V) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[V]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		if counts[v] == 0 {
			return false
		}
		counts[v]--
	}
	return true
}

// Keyed compares two lists of records matched by key. The lists differ when
// their lengths differ, when a key of a is missing from b, or when matched
// records are not structurally equal. Order is ignored.
func Keyed[S, E any, K comparable](name string, items func(S) []E, key func(E) K, opts ...cmp.Option) Field[S] {
	opts = append(opts, cmpopts.EquateEmpty())
	return Func(name, func(a, b S) bool {
		left, right := items(a), items(b)
		if len(left) != len(right) {
			return false
		}
		index := make(map[K]E, len(right))
		for _, e := range right {
			index[key(e)] = e
		}
		seen := make(map[K]struct{}, len(left))
		for _, e := range left {
			seen[key(e)] = struct{}{}
		}
		if len(index) != len(right) || len(seen) != len(left) {
			return keyedMultiEqual(left, right, key, opts)
		}
		for _, e := range left {
			other, ok := index[key(e)]
			if !ok || !cmp.Equal(e, other, opts...) {
				return false
			}
		}
		return true
	})
}

// keyedMultiEqual matches records pairwise, consuming each right-hand record
// at most once.
func keyedMultiEqual[E any, K comparable](left, right []E, key func(E) K, opts []cmp.Option) bool {
	used := make([]bool, len(right))
	for _, e := range left {
		found := false
		for i, other := range right {
			if used[i] || key(other) != key(e) || !cmp.Equal(e, other, opts...) {
				continue
			}
			used[i] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// Map compares two maps by key and value.
func Map[S any, K comparable, V any](name string, get func(S) map[K]V, opts ...cmp.Option) Field[S] {
	opts = append(opts, cmpopts.EquateEmpty())
	return Func(name, func(a, b S) bool {
		return cmp.Equal(get(a), get(b), opts...)
	})
}
