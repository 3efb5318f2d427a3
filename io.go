package musac

import "github.com/kelindar/musac/internal/iostream"

// Stream is the polymorphic seekable byte stream every decoder reads
// from (C1, spec.md §4.1).
type Stream = iostream.Stream

// Seek origins, mirroring spec.md §4.1's {set, cur, end}.
const (
	SeekSet = iostream.SeekSet
	SeekCur = iostream.SeekCur
	SeekEnd = iostream.SeekEnd
)

// IOFromFile opens path as a read-only, memory-mapped Stream.
func IOFromFile(path string) (Stream, error) {
	return iostream.OpenFile(path)
}

// IOFromMemory wraps b as a read-only Stream. b is not copied.
func IOFromMemory(b []byte) Stream {
	return iostream.OpenMemory(b)
}

// IOFromMemoryRW wraps b as a writable Stream that overwrites in place
// and never grows past len(b).
func IOFromMemoryRW(b []byte) Stream {
	return iostream.OpenMemoryRW(b)
}
