package iostream

// memoryStream is the read-only Stream over a caller-owned byte slice.
// Writes are always rejected per spec.md §4.1.
type memoryStream struct {
	data []byte
	pos  int64
	open bool
}

// OpenMemory wraps b as a read-only Stream. b is not copied; the caller
// must keep it alive and not mutate it while the stream is in use.
func OpenMemory(b []byte) Stream {
	return &memoryStream{data: b, open: true}
}

func (s *memoryStream) Read(p []byte) int {
	if !s.open || s.pos >= int64(len(s.data)) {
		return 0
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n
}

func (s *memoryStream) Write(p []byte) int { return 0 }

func (s *memoryStream) Seek(offset int64, whence Whence) int64 {
	if !s.open {
		return -1
	}
	var target int64
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = s.pos + offset
	case SeekEnd:
		target = int64(len(s.data)) + offset
	default:
		return -1
	}
	if target < 0 {
		return -1
	}
	s.pos = target
	return s.pos
}

func (s *memoryStream) Tell() int64  { return s.pos }
func (s *memoryStream) Size() int64  { return int64(len(s.data)) }
func (s *memoryStream) IsOpen() bool { return s.open }
func (s *memoryStream) Close() error { s.open = false; return nil }

// writableMemoryStream is the read/write Stream over a caller-owned byte
// slice. Writes overwrite in place and never grow the slice past its
// original length, per spec.md §4.1.
type writableMemoryStream struct {
	data []byte
	pos  int64
	open bool
}

// OpenMemoryRW wraps b as a writable Stream. Writes past len(b) are
// truncated to fit; the slice never grows.
func OpenMemoryRW(b []byte) Stream {
	return &writableMemoryStream{data: b, open: true}
}

func (s *writableMemoryStream) Read(p []byte) int {
	if !s.open || s.pos >= int64(len(s.data)) {
		return 0
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n
}

func (s *writableMemoryStream) Write(p []byte) int {
	if !s.open || s.pos >= int64(len(s.data)) {
		return 0
	}
	n := copy(s.data[s.pos:], p)
	s.pos += int64(n)
	return n
}

func (s *writableMemoryStream) Seek(offset int64, whence Whence) int64 {
	if !s.open {
		return -1
	}
	var target int64
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = s.pos + offset
	case SeekEnd:
		target = int64(len(s.data)) + offset
	default:
		return -1
	}
	if target < 0 {
		return -1
	}
	s.pos = target
	return s.pos
}

func (s *writableMemoryStream) Tell() int64  { return s.pos }
func (s *writableMemoryStream) Size() int64  { return int64(len(s.data)) }
func (s *writableMemoryStream) IsOpen() bool { return s.open }
func (s *writableMemoryStream) Close() error { s.open = false; return nil }
