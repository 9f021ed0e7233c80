package utils

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Alias1D returns true if x and y share the same base array.
// Taken from http://golang.org/src/pkg/math/big/nat.go#L340 .
func Alias1D[V any](x, y []V) bool {
	return cap(x) > 0 && cap(y) > 0 && &x[0:cap(x)][cap(x)-1] == &y[0:cap(y)][cap(y)-1]
}

// GetSortedKeys returns the sorted keys of a map.
func GetSortedKeys[K constraints.Ordered, V any](m map[K]V) (keys []K) {
	keys = make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	SortSlice(keys)
	return
}

// GetDistincts returns the distinct elements of v, in order of first appearance.
func GetDistincts[V comparable](v []V) (vd []V) {
	m := map[V]bool{}
	for _, vi := range v {
		if !m[vi] {
			m[vi] = true
			vd = append(vd, vi)
		}
	}
	return
}

// SortSlice sorts a slice in place.
func SortSlice[T constraints.Ordered](s []T) {
	sort.Slice(s, func(i, j int) bool {
		return s[i] < s[j]
	})
}

// RotateSlice returns a new slice corresponding to s rotated by k positions to the left.
func RotateSlice[V any](s []V, k int) []V {
	ret := make([]V, len(s))
	if len(s) == 0 {
		return ret
	}
	k = k % len(s)
	if k < 0 {
		k = k + len(s)
	}
	copy(ret[:len(s)-k], s[k:])
	copy(ret[len(s)-k:], s[:k])
	return ret
}

// RotateSlots returns a new slice where the two halves of s are each rotated by k positions to the left.
func RotateSlots[V any](s []V, k int) (r []V) {
	r = make([]V, len(s))
	slots := len(s) >> 1
	copy(r[:slots], RotateSlice(s[:slots], k))
	copy(r[slots:], RotateSlice(s[slots:], k))
	return
}
