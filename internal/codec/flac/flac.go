// Package flac wraps github.com/drgolem/go-flac's cgo libFLAC binding
// behind the decoder contract. spec.md §6.3 lists FLAC alongside WAV as
// a "treat native bit-exact decoding as a black box" codec; the pack's
// only FLAC library is a cgo binding around libFLAC itself, wrapped
// here rather than reimplemented, the same way drflac is a drop-in
// black box in the original C++ tree.
//
// libFLAC's decoder only opens a named file path (flac.FlacDecoder.Open
// takes a filename, not a reader), so a stream not already backed by a
// real file (iostream.PathProvider) is spilled to a temporary file at
// Open time and cleaned up on Close.
package flac

import (
	"errors"
	"fmt"
	"io"
	"os"

	goflac "github.com/drgolem/go-flac/flac"

	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/pcm"
)

var (
	ErrNotFLAC = errors.New("musac/flac: not a FLAC stream")
	ErrDecode  = errors.New("musac/flac: libFLAC decode error")
)

const outputBitsPerSample = 16

// Probe sniffs the 4-byte "fLaC" magic.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 4)
	if stream.Read(header) < 4 {
		return false
	}
	return string(header) == "fLaC"
}

// Decoder adapts goflac.FlacDecoder to the decoder contract.
type Decoder struct {
	dec         *goflac.FlacDecoder
	channels    int
	rate        uint32
	scratch     []byte
	totalSamp   int64
	cleanupTemp func()
	open        bool
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNotFLAC
	}

	path, cleanup, err := resolvePath(stream)
	if err != nil {
		return err
	}

	dec, err := goflac.NewFlacFrameDecoder(outputBitsPerSample)
	if err != nil {
		cleanup()
		return fmt.Errorf("musac/flac: %w: %v", ErrDecode, err)
	}
	if err := dec.Open(path); err != nil {
		cleanup()
		return fmt.Errorf("musac/flac: %w: %v", ErrDecode, err)
	}

	rate, channels, _ := dec.GetFormat()
	d.dec = dec
	d.channels = channels
	d.rate = uint32(rate)
	d.totalSamp = dec.TotalSamples()
	d.cleanupTemp = cleanup
	d.open = true
	return nil
}

// resolvePath returns a real filesystem path libFLAC can open directly,
// spilling stream to a temp file first if it isn't already file-backed.
func resolvePath(stream iostream.Stream) (path string, cleanup func(), err error) {
	if pp, ok := stream.(iostream.PathProvider); ok {
		return pp.Path(), func() {}, nil
	}

	tmp, err := os.CreateTemp("", "musac-flac-*.flac")
	if err != nil {
		return "", nil, fmt.Errorf("musac/flac: creating temp file: %w", err)
	}

	p0 := stream.Tell()
	stream.Seek(0, iostream.SeekSet)
	buf := make([]byte, 64*1024)
	for {
		n := stream.Read(buf)
		if n == 0 {
			break
		}
		if _, werr := tmp.Write(buf[:n]); werr != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", nil, fmt.Errorf("musac/flac: spilling to temp file: %w", werr)
		}
	}
	stream.Seek(p0, iostream.SeekSet)
	tmp.Close()

	name := tmp.Name()
	return name, func() { os.Remove(name) }, nil
}

func (d *Decoder) Decode(dst []float32, deviceChannels int) (int, bool) {
	if !d.open || d.channels == 0 {
		return 0, false
	}
	frames := len(dst) / d.channels
	if frames == 0 {
		return 0, false
	}
	needed := frames * d.channels * 2 // outputBitsPerSample/8
	if cap(d.scratch) < needed {
		d.scratch = make([]byte, needed)
	}
	buf := d.scratch[:needed]

	n, err := d.dec.DecodeSamples(frames, buf)
	if n == 0 || (err != nil && err != io.EOF) {
		return 0, false
	}
	samples := n * d.channels
	pcm.ToFloat(dst[:samples], buf[:samples*2], samples, pcm.S16LE)
	return samples, err == nil
}

func (d *Decoder) Rewind() bool {
	if !d.open {
		return false
	}
	_, err := d.dec.Seek(0, io.SeekStart)
	return err == nil
}

func (d *Decoder) SeekToTime(microseconds int64) bool {
	if !d.open || d.rate == 0 {
		return false
	}
	frame := microseconds * int64(d.rate) / 1_000_000
	_, err := d.dec.Seek(frame, io.SeekStart)
	return err == nil
}

func (d *Decoder) Duration() int64 {
	if !d.open || d.rate == 0 {
		return 0
	}
	return d.totalSamp * 1_000_000 / int64(d.rate)
}

func (d *Decoder) Channels() int { return d.channels }
func (d *Decoder) Rate() uint32  { return d.rate }
func (d *Decoder) Name() string  { return "flac" }
func (d *Decoder) IsOpen() bool  { return d.open }

// Close releases the libFLAC decoder and removes any temp file spilled
// by resolvePath. cleanupTemp is stored as a field (not deferred inside
// Open) because the file must outlive Open -- libFLAC keeps reading
// from it for the decoder's whole lifetime.
func (d *Decoder) Close() error {
	if d.cleanupTemp != nil {
		d.cleanupTemp()
		d.cleanupTemp = nil
	}
	if d.dec != nil {
		d.dec.Close()
		d.dec.Delete()
	}
	d.open = false
	return nil
}
