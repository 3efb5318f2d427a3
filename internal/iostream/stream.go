// Package iostream implements the seekable byte-stream abstraction (C1)
// that every decoder reads from: file-backed and memory-backed streams,
// read-only and writable, behind one interface.
package iostream

import "errors"

// Whence selects the origin for Seek, mirroring io.Seeker's constants
// under the names spec.md §4.1 uses.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// ErrClosed names the closed-stream condition. The streams in this
// package do not return it: after Close they report closure through
// IsOpen and their ordinary results (0 bytes read, Seek returns -1).
var ErrClosed = errors.New("musac: stream closed")

// Stream is the polymorphic seekable byte stream every decoder consumes.
// Read returns the number of bytes actually transferred (0 at EOF,
// partial reads near EOF are allowed) and never an error for ordinary
// EOF — only Close or a categorically broken stream rejects calls.
// Seek returns the resulting absolute position, or a negative sentinel
// on failure. Size returns -1 when the total length is not knowable.
type Stream interface {
	Read(p []byte) (n int)
	Write(p []byte) (n int)
	Seek(offset int64, whence Whence) (pos int64)
	Tell() int64
	Size() int64
	Close() error
	IsOpen() bool
}
