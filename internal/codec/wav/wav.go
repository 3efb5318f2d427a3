// Package wav decodes RIFF/WAVE PCM and IEEE-float containers behind the
// decoder contract. spec.md §4.4.3 treats WAV's bit-exact sample
// decoding as a black box (drwav in the original); no pure-Go library in
// the retrieval pack covers every bit depth this spec requires (u8
// through s32 and f32), so the RIFF chunk walk and sample unpacking are
// implemented directly here, in the same chunk-walking style as the
// AIFF decoder (internal/codec/aiff).
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/pcm"
)

var (
	ErrNotWAV      = errors.New("musac/wav: not a RIFF/WAVE stream")
	ErrTruncated   = errors.New("musac/wav: truncated or malformed chunk")
	ErrUnsupported = errors.New("musac/wav: unsupported wFormatTag/bit depth")
)

const (
	tagPCM        = 1
	tagFloat      = 3
	tagExtensible = 0xFFFE
)

// Probe reports whether stream begins with a RIFF/WAVE header, restoring
// the stream position before returning, per spec.md §4.4.1.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 12)
	if stream.Read(header) < 12 {
		return false
	}
	return string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE"
}

// Decoder implements the decoder contract over a RIFF/WAVE stream.
type Decoder struct {
	stream     iostream.Stream
	format     pcm.Format
	channels   int
	rate       uint32
	dataStart  int64
	dataLen    int64
	pos        int64 // byte offset within the data chunk
	open       bool
}

// New constructs an unopened WAV decoder.
func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNotWAV
	}
	stream.Seek(12, iostream.SeekSet)

	var haveFmt, haveData bool
	for {
		hdr := make([]byte, 8)
		if stream.Read(hdr) < 8 {
			break
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])
		chunkStart := stream.Tell()

		switch id {
		case "fmt ":
			body := make([]byte, size)
			stream.Read(body)
			format, channels, rate, err := decodeFormatChunk(body)
			if err != nil {
				return err
			}
			d.format, d.channels, d.rate = format, channels, rate
			haveFmt = true
		case "data":
			d.dataStart = chunkStart
			d.dataLen = int64(size)
			haveData = true
		}

		next := chunkStart + int64(size) + int64(size&1)
		if id == "data" {
			// Leave the cursor at the start of audio data; we reposition
			// explicitly before decoding.
			break
		}
		stream.Seek(next, iostream.SeekSet)
	}

	if !haveFmt || !haveData {
		return fmt.Errorf("musac/wav: %w: missing fmt or data chunk", ErrTruncated)
	}
	d.stream = stream
	d.open = true
	stream.Seek(d.dataStart, iostream.SeekSet)
	return nil
}

func decodeFormatChunk(body []byte) (format pcm.Format, channels int, rate uint32, err error) {
	if len(body) < 16 {
		return 0, 0, 0, ErrTruncated
	}
	tag := binary.LittleEndian.Uint16(body[0:2])
	ch := binary.LittleEndian.Uint16(body[2:4])
	sr := binary.LittleEndian.Uint32(body[4:8])
	bits := binary.LittleEndian.Uint16(body[14:16])

	if tag == tagExtensible && len(body) >= 26 {
		tag = binary.LittleEndian.Uint16(body[24:26])
	}

	switch {
	case tag == tagPCM && bits == 8:
		format = pcm.U8
	case tag == tagPCM && bits == 16:
		format = pcm.S16LE
	case tag == tagPCM && bits == 32:
		format = pcm.S32LE
	case tag == tagFloat && bits == 32:
		format = pcm.F32LE
	default:
		return 0, 0, 0, fmt.Errorf("%w: tag=%d bits=%d", ErrUnsupported, tag, bits)
	}
	return format, int(ch), sr, nil
}

func (d *Decoder) Decode(dst []float32, deviceChannels int) (int, bool) {
	if !d.open {
		return 0, false
	}
	width := d.format.ByteSize()
	if width == 0 || len(dst) == 0 {
		return 0, false
	}
	remaining := d.dataLen - d.pos
	if remaining <= 0 {
		return 0, false
	}

	maxSamples := len(dst)
	maxBytes := int64(maxSamples) * int64(width)
	if maxBytes > remaining {
		maxBytes = remaining
	}
	// Keep whole samples only.
	maxBytes -= maxBytes % int64(width)
	if maxBytes == 0 {
		return 0, false
	}

	buf := make([]byte, maxBytes)
	n := d.stream.Read(buf)
	if n == 0 {
		return 0, false
	}
	d.pos += int64(n)

	nSamples := n / width
	pcm.ToFloat(dst, buf, nSamples, d.format)
	return nSamples, d.pos < d.dataLen
}

func (d *Decoder) Rewind() bool {
	if !d.open {
		return false
	}
	d.pos = 0
	d.stream.Seek(d.dataStart, iostream.SeekSet)
	return true
}

func (d *Decoder) SeekToTime(microseconds int64) bool {
	if !d.open || d.rate == 0 {
		return false
	}
	frame := microseconds * int64(d.rate) / 1_000_000
	byteOff := frame * int64(d.channels) * int64(d.format.ByteSize())
	if byteOff > d.dataLen {
		byteOff = d.dataLen
	}
	d.pos = byteOff
	d.stream.Seek(d.dataStart+byteOff, iostream.SeekSet)
	return true
}

func (d *Decoder) Duration() int64 {
	if !d.open || d.rate == 0 || d.channels == 0 {
		return 0
	}
	frameSize := int64(d.channels) * int64(d.format.ByteSize())
	if frameSize == 0 {
		return 0
	}
	frames := d.dataLen / frameSize
	return frames * 1_000_000 / int64(d.rate)
}

func (d *Decoder) Channels() int  { return d.channels }
func (d *Decoder) Rate() uint32   { return d.rate }
func (d *Decoder) Name() string   { return "wav" }
func (d *Decoder) IsOpen() bool   { return d.open }
