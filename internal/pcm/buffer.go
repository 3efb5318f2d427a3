package pcm

import "sync"

// Buffer is an owning, growable region of T. It is the generic backing
// store for both byte buffers (decoded container payloads) and float32
// buffers (interleaved PCM in flight through the converter and mixer).
type Buffer[T any] struct {
	data []T
}

// NewBuffer allocates a buffer with the given initial length.
func NewBuffer[T any](length int) *Buffer[T] {
	return &Buffer[T]{data: make([]T, length)}
}

// Data returns the buffer's backing slice.
func (b *Buffer[T]) Data() []T { return b.data }

// Len returns the number of elements currently held.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Resize grows or shrinks the buffer to exactly n elements, preserving
// existing content up to min(old, new) length.
func (b *Buffer[T]) Resize(n int) {
	switch {
	case n <= cap(b.data):
		b.data = b.data[:n]
	default:
		grown := make([]T, n)
		copy(grown, b.data)
		b.data = grown
	}
}

// Reset truncates the buffer to zero length without releasing capacity.
func (b *Buffer[T]) Reset() { b.data = b.data[:0] }

// Append appends v to the buffer, growing as needed.
func (b *Buffer[T]) Append(v ...T) { b.data = append(b.data, v...) }

// Fill sets every element to v.
func (b *Buffer[T]) Fill(v T) {
	for i := range b.data {
		b.data[i] = v
	}
}

// floatScratchPool recycles the interleaved float32 scratch buffers
// handed out by BorrowFloats, the way uofile.Borrow recycles byte
// buffers for MUL entry reads. The mixer and the stream converter keep
// their own scratch slices and do not draw from this pool.
var floatScratchPool = sync.Pool{
	New: func() any {
		s := make([]float32, 0, 4096)
		return &s
	},
}

// BorrowFloats returns a float32 slice of length n from the pool along
// with a release function. Callers must not retain the slice past release.
func BorrowFloats(n int) ([]float32, func()) {
	ptr := floatScratchPool.Get().(*[]float32)
	s := *ptr
	if cap(s) < n {
		s = make([]float32, n)
	} else {
		s = s[:n]
	}
	for i := range s {
		s[i] = 0
	}
	return s, func() {
		*ptr = s[:0]
		floatScratchPool.Put(ptr)
	}
}
