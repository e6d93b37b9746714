package sampling

import "sort"

// TopK retains exactly the k greatest elements seen so far under a
// caller-supplied total order, discarding the rest. Unlike Reservoir this is
// exact, not probabilistic: used with a "contract date descending" order it
// yields the true most-recent k transactions.
type TopK[T any] struct {
	k     int
	less  func(a, b T) bool
	items []T // sorted greatest-first
}

// NewTopK creates a collector with capacity k. less reports whether a ranks
// strictly below b; ties are kept in insertion order.
func NewTopK[T any](k int, less func(a, b T) bool) *TopK[T] {
	if k < 1 {
		k = 1
	}
	return &TopK[T]{
		k:     k,
		less:  less,
		items: make([]T, 0, k+1),
	}
}

// Add inserts v, then evicts the single worst element if capacity is
// exceeded. Insertion keeps the slice sorted greatest-first; equal elements
// stay in arrival order because the insertion point is after all peers.
func (t *TopK[T]) Add(v T) {
	i := sort.Search(len(t.items), func(i int) bool {
		return t.less(t.items[i], v)
	})
	t.items = append(t.items, v)
	copy(t.items[i+1:], t.items[i:])
	t.items[i] = v
	if len(t.items) > t.k {
		t.items = t.items[:t.k]
	}
}

// Result returns the retained elements, greatest first. The slice is shared
// with the collector.
func (t *TopK[T]) Result() []T {
	return t.items
}

// Len returns the number of retained elements (min(inserted, k)).
func (t *TopK[T]) Len() int {
	return len(t.items)
}
