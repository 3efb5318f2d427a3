// Package voc decodes Creative Voice File (VOC) streams: a
// block-structured format where each block carries its own codec byte,
// sample rate code, and (for ADPCM) stateful predictor/scale decoding.
// Grounded on original_source's src/musac/codecs/decoder_voc.cc for the
// block dispatch loop (VOC_DATA/VOC_DATA_16/VOC_CONT/VOC_SILENCE/
// VOC_EXTENDED/VOC_LOOP/VOC_MARKER/VOC_TEXT/VOC_TERM), reworked into the
// iostream.Stream idiom this package uses throughout. Each block body is
// read whole and decoded at Open; reads are not throttled by the
// codec's expansion ratio.
package voc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kelindar/musac/internal/codec/g711"
	"github.com/kelindar/musac/internal/iostream"
)

var (
	ErrNotVOC      = errors.New("musac/voc: not a Creative Voice File")
	ErrMalformed   = errors.New("musac/voc: malformed VOC block stream")
	ErrUnsupported = errors.New("musac/voc: unsupported VOC codec byte")
)

const magic = "Creative Voice File\x1A"

const (
	blockTerm     = 0
	blockData     = 1
	blockCont     = 2
	blockSilence  = 3
	blockMarker   = 4
	blockText     = 5
	blockLoop     = 6
	blockLoopEnd  = 7
	blockExtended = 8
	blockData16   = 9
)

const (
	codecPCM8   = 0
	codecADPCM4 = 1
	codecADPCM3 = 2 // "2.6-bit"
	codecADPCM2 = 3
	codecPCM16  = 4
	codecALaw   = 6
	codecULaw   = 7
)

// Probe reports whether stream begins with the VOC magic signature.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, len(magic))
	if stream.Read(header) < len(magic) {
		return false
	}
	return string(header) == magic
}

// Decoder implements the decoder contract over a VOC stream. Like the
// AIFF/8SVX decoders, the whole block stream is decoded eagerly at Open
// into an interleaved float32 buffer; VOC files are short sound effects
// in practice and this keeps the stateful ADPCM/block logic confined to
// a single linear pass.
type Decoder struct {
	rate     uint32
	channels int
	samples  []float32
	pos      int
	open     bool
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNotVOC
	}
	// Byte 20-21: little-endian offset to first data block.
	stream.Seek(20, iostream.SeekSet)
	offsetBuf := make([]byte, 2)
	stream.Read(offsetBuf)
	dataOffset := binary.LittleEndian.Uint16(offsetBuf)
	stream.Seek(int64(dataOffset), iostream.SeekSet)

	dec := &walker{stream: stream}
	samples, rate, channels, err := dec.decodeAll()
	if err != nil {
		return err
	}

	d.samples = samples
	d.rate = rate
	d.channels = channels
	d.pos = 0
	d.open = true
	return nil
}

type walker struct {
	stream        iostream.Stream
	rate          uint32
	channels      int
	lastCodecByte byte
}

func (w *walker) decodeAll() ([]float32, uint32, int, error) {
	var out []float32
	extRate := uint32(0)
	extChannels := 1
	usingExt := false

	for {
		hdr := make([]byte, 1)
		if w.stream.Read(hdr) < 1 {
			break
		}
		block := hdr[0]
		if block == blockTerm {
			break
		}

		lenBuf := make([]byte, 3)
		if w.stream.Read(lenBuf) < 3 {
			return nil, 0, 0, fmt.Errorf("musac/voc: %w: truncated block length", ErrMalformed)
		}
		size := uint32(lenBuf[0]) | uint32(lenBuf[1])<<8 | uint32(lenBuf[2])<<16
		blockEnd := w.stream.Tell() + int64(size)

		switch block {
		case blockData:
			rateByte := make([]byte, 1)
			w.stream.Read(rateByte)
			codecByte := make([]byte, 1)
			w.stream.Read(codecByte)

			if !usingExt {
				w.rate = 1_000_000 / (256 - uint32(rateByte[0]))
				w.channels = 1
			}
			samples, err := w.decodeDataBody(int(size)-2, codecByte[0], w.channels)
			if err != nil {
				return nil, 0, 0, err
			}
			out = append(out, samples...)
			usingExt = false

		case blockData16:
			// rate(4) + bits-per-sample(1) + channels(1), per
			// original_source's VOC_DATA_16 branch.
			body := make([]byte, 6)
			w.stream.Read(body)
			rate := binary.LittleEndian.Uint32(body[0:4])
			channels := int(body[5])
			fmtByte := make([]byte, 6)
			w.stream.Read(fmtByte)
			w.rate = rate
			w.channels = channels
			samples, err := w.decodeDataBody(int(size)-12, fmtByte[0], channels)
			if err != nil {
				return nil, 0, 0, err
			}
			out = append(out, samples...)

		case blockCont:
			samples, err := w.decodeDataBody(int(size), w.lastCodecByte, w.channels)
			if err != nil {
				return nil, 0, 0, err
			}
			out = append(out, samples...)

		case blockSilence:
			periodBuf := make([]byte, 2)
			w.stream.Read(periodBuf)
			rateByte := make([]byte, 1)
			w.stream.Read(rateByte)
			period := binary.LittleEndian.Uint16(periodBuf)
			if w.rate == 0 {
				w.rate = 1_000_000 / (256 - uint32(rateByte[0]))
			}
			for i := 0; i < int(period); i++ {
				out = append(out, 0)
			}

		case blockExtended:
			body := make([]byte, 4)
			w.stream.Read(body)
			newRate := binary.LittleEndian.Uint16(body[0:2])
			codec := body[2]
			stereo := body[3]
			extRate = uint32(newRate)
			if stereo != 0 {
				extChannels = 2
			} else {
				extChannels = 1
			}
			w.rate = 256_000_000 / (65536 - extRate) / uint32(extChannels)
			w.channels = extChannels
			usingExt = true
			w.lastCodecByte = codec

		case blockLoop, blockLoopEnd:
			// no repeat semantics; skip.

		case blockMarker:
			// 2-byte marker id; fall through to generic skip below.

		case blockText:
			// skipped below.
		}

		w.stream.Seek(blockEnd, iostream.SeekSet)
	}

	return out, w.rate, w.channels, nil
}

// decodeDataBody decodes the codec byte's payload; CONT blocks (which
// carry no codec byte of their own) pass w.lastCodecByte through so
// decoding continues with whatever DATA/EXTENDED block selected last.
func (w *walker) decodeDataBody(n int, codec byte, channels int) ([]float32, error) {
	w.lastCodecByte = codec
	if n <= 0 {
		return nil, nil
	}
	raw := make([]byte, n)
	got := w.stream.Read(raw)
	raw = raw[:got]

	switch codec {
	case codecPCM8:
		out := make([]float32, len(raw))
		for i, b := range raw {
			out[i] = (float32(b) - 128) / 128
		}
		return out, nil
	case codecPCM16:
		count := len(raw) / 2
		out := make([]float32, count)
		for i := 0; i < count; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			out[i] = float32(v) / 32768
		}
		return out, nil
	case codecALaw:
		out := make([]float32, len(raw))
		for i, b := range raw {
			out[i] = float32(g711.DecodeALaw(b)) / 32768
		}
		return out, nil
	case codecULaw:
		out := make([]float32, len(raw))
		for i, b := range raw {
			out[i] = float32(g711.DecodeULaw(b)) / 32768
		}
		return out, nil
	case codecADPCM4:
		return decodeCreativeADPCM(raw, 4), nil
	case codecADPCM2:
		return decodeCreativeADPCM(raw, 2), nil
	case codecADPCM3:
		return decodeCreative26(raw), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, codec)
	}
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
	copy(dst[:n], d.samples[d.pos:d.pos+n])
	d.pos += n
	return n, d.pos < len(d.samples)
}

func (d *Decoder) Rewind() bool {
	if !d.open {
		return false
	}
	d.pos = 0
	return true
}

func (d *Decoder) SeekToTime(microseconds int64) bool {
	if !d.open || d.rate == 0 || d.channels == 0 {
		return false
	}
	frame := microseconds * int64(d.rate) / 1_000_000
	idx := int(frame) * d.channels
	if idx > len(d.samples) {
		idx = len(d.samples)
	}
	d.pos = idx
	return true
}

func (d *Decoder) Duration() int64 {
	if !d.open || d.rate == 0 || d.channels == 0 {
		return 0
	}
	frames := len(d.samples) / d.channels
	return int64(frames) * 1_000_000 / int64(d.rate)
}

func (d *Decoder) Channels() int { return d.channels }
func (d *Decoder) Rate() uint32  { return d.rate }
func (d *Decoder) Name() string  { return "voc" }
func (d *Decoder) IsOpen() bool  { return d.open }
