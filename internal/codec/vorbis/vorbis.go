// Package vorbis decodes Ogg Vorbis streams via the pure-Go
// github.com/jfreymuth/oggvorbis decoder. spec.md §6.3 lists Vorbis
// alongside FLAC as a black-box bit-exact decode; unlike FLAC, the
// retrieval pack's Vorbis library is pure Go and reads from an
// io.Reader directly, so no temp-file spill is needed. Call shape
// grounded on other_examples' internal-player-decoder.go (oggDecoder):
// NewReader/Channels/SampleRate/Length/Read/SetPosition.
package vorbis

import (
	"errors"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/kelindar/musac/internal/iostream"
)

var (
	ErrNotVorbis = errors.New("musac/vorbis: not an Ogg Vorbis stream")
	ErrDecode    = errors.New("musac/vorbis: oggvorbis decode error")
)

// Probe sniffs the 4-byte "OggS" capture pattern page header.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 4)
	if stream.Read(header) < 4 {
		return false
	}
	return string(header) == "OggS"
}

// streamReader adapts iostream.Stream to io.Reader for oggvorbis.
type streamReader struct{ s iostream.Stream }

func (r streamReader) Read(p []byte) (int, error) {
	n := r.s.Read(p)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Decoder implements the decoder contract over an Ogg Vorbis stream.
type Decoder struct {
	stream   iostream.Stream
	reader   *oggvorbis.Reader
	channels int
	rate     uint32
	total    int64 // total samples per channel, 0 if unknown
	open     bool
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNotVorbis
	}
	stream.Seek(0, iostream.SeekSet)

	r, err := oggvorbis.NewReader(streamReader{stream})
	if err != nil {
		return errors.Join(ErrDecode, err)
	}

	d.stream = stream
	d.reader = r
	d.channels = r.Channels()
	d.rate = uint32(r.SampleRate())
	d.total = r.Length()
	d.open = true
	return nil
}

func (d *Decoder) Decode(dst []float32, deviceChannels int) (int, bool) {
	if !d.open {
		return 0, false
	}
	n, err := d.reader.Read(dst)
	if n == 0 {
		return 0, false
	}
	return n, err == nil
}

// Rewind seeks the underlying Vorbis reader back to sample 0.
func (d *Decoder) Rewind() bool {
	if !d.open {
		return false
	}
	return d.reader.SetPosition(0) == nil
}

// SeekToTime converts microseconds to a sample position and delegates
// to oggvorbis.Reader.SetPosition.
func (d *Decoder) SeekToTime(microseconds int64) bool {
	if !d.open || d.rate == 0 {
		return false
	}
	pos := microseconds * int64(d.rate) / 1_000_000
	return d.reader.SetPosition(pos) == nil
}

func (d *Decoder) Duration() int64 {
	if !d.open || d.rate == 0 || d.total == 0 {
		return 0
	}
	return d.total * 1_000_000 / int64(d.rate)
}

func (d *Decoder) Channels() int { return d.channels }
func (d *Decoder) Rate() uint32  { return d.rate }
func (d *Decoder) Name() string  { return "vorbis" }
func (d *Decoder) IsOpen() bool  { return d.open }
