package storage

import "errors"

// ErrNoEvictionCandidate is returned when a store is at capacity and every
// entry is protected from eviction.
var ErrNoEvictionCandidate = errors.New("store at capacity and no entry is evictable")

// EvictionCandidate picks the index of the entry to evict from items, given
// a comparator that reports whether a should be evicted before b, and a
// predicate marking entries that may never be evicted. Returns
// ErrNoEvictionCandidate when everything is protected.
//
// One helper shared by the memory, episode, knowledge, and failure stores so
// capacity handling stays in one place instead of four ad hoc loops.
func EvictionCandidate[T any](items []T, evictBefore func(a, b T) bool, protected func(T) bool) (int, error) {
	best := -1
	for i := range items {
		if protected != nil && protected(items[i]) {
			continue
		}
		if best == -1 || evictBefore(items[i], items[best]) {
			best = i
		}
	}
	if best == -1 {
		return 0, ErrNoEvictionCandidate
	}
	return best, nil
}
