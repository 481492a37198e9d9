// Package sampler contains the independent metric collectors. Each sampler
// owns a bounded, time-ordered history of its own raw readings and tolerates
// the underlying platform facility being absent.
package sampler

// Ring is a fixed-capacity buffer that evicts the oldest element on
// overflow. Not safe for concurrent use; each sampler guards its own ring.
type Ring[T any] struct {
	buf   []T
	start int
	count int
}

// NewRing creates a ring holding up to capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 64
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends a value, evicting the oldest when full.
func (r *Ring[T]) Push(v T) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.count }

// At returns the i-th oldest element.
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last returns the newest element and whether one exists.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.At(r.count - 1), true
}

// Slice copies the elements oldest-first.
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.At(i)
	}
	return out
}
