package iostream

import (
	"fmt"
	"io"
	"os"

	"codeberg.org/go-mmap/mmap"
)

// fileStream is the read-only, file-backed Stream. Playback sources are
// opened far more often than they are written, so the common case reads
// through a memory-mapped view (as the teacher's internal/uofile does for
// its MUL/UOP containers) rather than through buffered *os.File reads.
type fileStream struct {
	file *mmap.File
	path string
	pos  int64
	size int64
	open bool
}

// OpenFile opens path read-only as a memory-mapped Stream.
func OpenFile(path string) (Stream, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("musac: opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("musac: stat %s: %w", path, err)
	}
	return &fileStream{file: f, path: path, size: info.Size(), open: true}, nil
}

// Path returns the filesystem path backing s. Codecs that must hand a
// real path to a cgo library (FLAC's libFLAC binding) use this via the
// PathProvider interface to avoid spilling to a temp file when one is
// already available.
func (s *fileStream) Path() string { return s.path }

// PathProvider is implemented by Streams that are directly backed by a
// named file on disk.
type PathProvider interface {
	Path() string
}

func (s *fileStream) Read(p []byte) int {
	if !s.open {
		return 0
	}
	n, err := s.file.ReadAt(p, s.pos)
	if n > 0 {
		s.pos += int64(n)
	}
	if err != nil && err != io.EOF {
		return 0
	}
	return n
}

// Write always fails: file-backed streams opened via OpenFile are
// read-only, matching spec.md §4.1's read-only memory variant contract
// applied to the common playback-source case.
func (s *fileStream) Write(p []byte) int { return 0 }

func (s *fileStream) Seek(offset int64, whence Whence) int64 {
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
		target = s.size + offset
	default:
		return -1
	}
	if target < 0 {
		return -1
	}
	s.pos = target
	return s.pos
}

func (s *fileStream) Tell() int64  { return s.pos }
func (s *fileStream) Size() int64  { return s.size }
func (s *fileStream) IsOpen() bool { return s.open }

func (s *fileStream) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	return s.file.Close()
}

// writableFileStream is the read/write file-backed Stream, used by
// encoders and test fixtures that need to produce a file rather than
// only consume one.
type writableFileStream struct {
	file *os.File
	pos  int64
	open bool
}

// CreateFile opens path for reading and writing, creating it if absent.
func CreateFile(path string) (Stream, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("musac: creating %s: %w", path, err)
	}
	return &writableFileStream{file: f, open: true}, nil
}

func (s *writableFileStream) Read(p []byte) int {
	if !s.open {
		return 0
	}
	n, _ := s.file.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n
}

func (s *writableFileStream) Write(p []byte) int {
	if !s.open {
		return 0
	}
	n, err := s.file.WriteAt(p, s.pos)
	if err != nil {
		return n
	}
	s.pos += int64(n)
	return n
}

func (s *writableFileStream) Seek(offset int64, whence Whence) int64 {
	if !s.open {
		return -1
	}
	var origin int
	switch whence {
	case SeekSet:
		origin = io.SeekStart
	case SeekCur:
		origin = io.SeekCurrent
	case SeekEnd:
		origin = io.SeekEnd
	default:
		return -1
	}
	pos, err := s.file.Seek(offset, origin)
	if err != nil {
		return -1
	}
	s.pos = pos
	return pos
}

func (s *writableFileStream) Tell() int64 { return s.pos }

func (s *writableFileStream) Size() int64 {
	info, err := s.file.Stat()
	if err != nil {
		return -1
	}
	return info.Size()
}

func (s *writableFileStream) IsOpen() bool { return s.open }

func (s *writableFileStream) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	return s.file.Close()
}
