// Package eightsvx decodes IFF 8SVX (Amiga "8-bit sampled voice")
// containers: a single VHDR + BODY chunk pair, PCM or Fibonacci-delta
// compressed, always mono 8-bit. Grounded on spec.md §4.4.3/§6.3's 8SVX
// bullet and on original_source's decoder_aiff.cc VHDR/BODY branch
// (shared FORM-chunk-walk idiom with AIFF, split into its own codec
// package here since the two containers decode to different sample
// domains).
package eightsvx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kelindar/musac/internal/iostream"
)

var (
	ErrNot8SVX     = errors.New("musac/8svx: not an IFF FORM/8SVX stream")
	ErrTruncated   = errors.New("musac/8svx: truncated or malformed chunk")
	ErrUnsupported = errors.New("musac/8svx: unsupported sCompression value")
)

// fibonacciTable is the fixed 16-entry signed delta table spec.md §4.9
// specifies for Fibonacci-delta decompression.
var fibonacciTable = [16]int8{-34, -21, -13, -8, -5, -3, -2, -1, 0, 1, 2, 3, 5, 8, 13, 21}

func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 12)
	if stream.Read(header) < 12 {
		return false
	}
	return string(header[0:4]) == "FORM" && string(header[8:12]) == "8SVX"
}

// Decoder implements the decoder contract over an 8SVX stream. Audio is
// decoded eagerly at Open into a signed 8-bit sample buffer, since
// Fibonacci-delta decode is inherently sequential (spec.md §4.9).
type Decoder struct {
	rate       uint32
	oneShot    uint32
	repeat     uint32
	samples    []int8
	pos        int
	open       bool
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNot8SVX
	}
	stream.Seek(12, iostream.SeekSet)

	var (
		oneShot, repeat, rate uint32
		samplesPerSec         uint16
		compression           uint8
		haveVHDR, haveBODY    bool
		body                  []byte
	)

	for {
		hdr := make([]byte, 8)
		if stream.Read(hdr) < 8 {
			break
		}
		id := string(hdr[0:4])
		size := binary.BigEndian.Uint32(hdr[4:8])
		chunkStart := stream.Tell()

		switch id {
		case "VHDR":
			vhdr := make([]byte, size)
			stream.Read(vhdr)
			if len(vhdr) < 20 {
				return fmt.Errorf("musac/8svx: %w: VHDR too short", ErrTruncated)
			}
			oneShot = binary.BigEndian.Uint32(vhdr[0:4])
			repeat = binary.BigEndian.Uint32(vhdr[4:8])
			// vhdr[8:12] is samplesPerHiCycle, unused for playback rate.
			samplesPerSec = binary.BigEndian.Uint16(vhdr[12:14])
			// vhdr[14] is ctOctave, unused.
			compression = vhdr[15]
			rate = uint32(samplesPerSec)
			haveVHDR = true
		case "BODY":
			body = make([]byte, size)
			stream.Read(body)
			haveBODY = true
		}

		next := chunkStart + int64(size) + int64(size&1)
		stream.Seek(next, iostream.SeekSet)
	}

	if !haveVHDR || !haveBODY {
		return fmt.Errorf("musac/8svx: %w: missing VHDR or BODY chunk", ErrTruncated)
	}

	var samples []int8
	switch compression {
	case 0:
		samples = make([]int8, len(body))
		for i, b := range body {
			samples[i] = int8(b)
		}
	case 1:
		samples = decodeFibonacciDelta(body)
	default:
		return fmt.Errorf("%w: %d", ErrUnsupported, compression)
	}

	d.rate = rate
	d.oneShot = oneShot
	d.repeat = repeat
	d.samples = samples
	d.pos = 0
	d.open = true
	return nil
}

// decodeFibonacciDelta implements spec.md §4.9's algorithm exactly:
// current starts at 0 on open, each nibble (high then low, per byte)
// indexes fibonacciTable and accumulates into current as an i8.
func decodeFibonacciDelta(body []byte) []int8 {
	out := make([]int8, 0, len(body)*2)
	var current int8
	for _, b := range body {
		hi := (b >> 4) & 0x0F
		lo := b & 0x0F
		current += int8(fibonacciTable[hi])
		out = append(out, current)
		current += int8(fibonacciTable[lo])
		out = append(out, current)
	}
	return out
}

func (d *Decoder) Decode(dst []float32, deviceChannels int) (int, bool) {
	if !d.open {
		return 0, false
	}
	remaining := len(d.samples) - d.pos
	if remaining <= 0 {
		return 0, false
	}
	n := len(dst)
	if n > remaining {
		n = remaining
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(d.samples[d.pos+i]) / 128
	}
	d.pos += n
	return n, d.pos < len(d.samples)
}

// Rewind resets both the read cursor and the Fibonacci-delta running
// state (already baked into d.samples at Open time, so re-decoding is
// unnecessary -- only the cursor needs resetting, per spec.md §4.9's
// "current resets on rewind").
func (d *Decoder) Rewind() bool {
	if !d.open {
		return false
	}
	d.pos = 0
	return true
}

func (d *Decoder) SeekToTime(microseconds int64) bool {
	if !d.open || d.rate == 0 {
		return false
	}
	frame := microseconds * int64(d.rate) / 1_000_000
	if frame > int64(len(d.samples)) {
		frame = int64(len(d.samples))
	}
	d.pos = int(frame)
	return true
}

// Duration uses one-shot plus one repeat cycle when a repeat region
// exists, per spec.md §4.4.3's 8SVX bullet.
func (d *Decoder) Duration() int64 {
	if !d.open || d.rate == 0 {
		return 0
	}
	frames := d.oneShot
	if d.repeat > 0 {
		frames += d.repeat
	}
	if frames == 0 {
		frames = uint32(len(d.samples))
	}
	return int64(frames) * 1_000_000 / int64(d.rate)
}

func (d *Decoder) Channels() int { return 1 }
func (d *Decoder) Rate() uint32  { return d.rate }
func (d *Decoder) Name() string  { return "8svx" }
func (d *Decoder) IsOpen() bool  { return d.open }
