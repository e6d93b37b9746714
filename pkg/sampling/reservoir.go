package sampling

import (
	"math/rand"
	"time"
)

// Reservoir maintains a fixed-capacity uniform random sample over a stream
// of unknown length (Algorithm R).
//
// After n insertions with n > k, every element of the stream had equal
// probability k/n of being resident. The slot order of Values() carries no
// meaning: this structure is for representative histogram/scatter data, not
// for "most recent N" (use TopK for that).
type Reservoir[T any] struct {
	k     int
	seen  int
	items []T
	rng   *rand.Rand
}

// NewReservoir creates a reservoir with capacity k. A nil rng gets a
// time-seeded source; tests pass a seeded one for reproducibility.
func NewReservoir[T any](k int, rng *rand.Rand) *Reservoir[T] {
	if k < 1 {
		k = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Reservoir[T]{
		k:     k,
		items: make([]T, 0, k),
		rng:   rng,
	}
}

// Add offers one element to the sample.
//
// On the i-th call (1-indexed): if i <= k the element is appended; otherwise
// an index j is drawn uniformly from [0, i) and the element overwrites slot j
// when j < k.
func (r *Reservoir[T]) Add(v T) {
	r.seen++
	if len(r.items) < r.k {
		r.items = append(r.items, v)
		return
	}
	if j := r.rng.Intn(r.seen); j < r.k {
		r.items[j] = v
	}
}

// Values returns the current residents. The returned slice is shared with
// the reservoir; callers that mutate it must copy first.
func (r *Reservoir[T]) Values() []T {
	return r.items
}

// Len returns the number of resident elements (min(seen, k)).
func (r *Reservoir[T]) Len() int {
	return len(r.items)
}

// Seen returns the total number of elements offered, including evicted ones.
func (r *Reservoir[T]) Seen() int {
	return r.seen
}
