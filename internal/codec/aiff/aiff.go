// Package aiff decodes AIFF and AIFC (IFF FORM/COMM/SSND) containers,
// per spec.md §4.4.3/§6.3: PCM 8/12/16/24/32 big-endian, 16-bit
// little-endian via "sowt", float32/float64 via "fl32"/"fl64", A-law and
// µ-law (1:2 expansion to s16), and IMA4 ADPCM (34-byte packet → 64
// frames per channel). Grounded on original_source's
// src/musac/codecs/aiff/aiff_container.cc for the chunk-walk shape and
// the IMA4/12-bit stride math, reworked into Go's chunk-walking idiom
// used throughout this package (mirroring internal/codec/wav.Decoder).
package aiff

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kelindar/musac/internal/codec/g711"
	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/pcm"
)

var (
	ErrNotAIFF     = errors.New("musac/aiff: not an AIFF/AIFC FORM stream")
	ErrTruncated   = errors.New("musac/aiff: truncated or malformed chunk")
	ErrUnsupported = errors.New("musac/aiff: unsupported COMM sample size or compression")
)

type compression int

const (
	compNone compression = iota
	compSowt
	compFloat32
	compFloat64
	compALaw
	compULaw
	compIMA4
)

// Probe reports whether stream begins with a big-endian IFF FORM/AIFF or
// FORM/AIFC header, restoring the stream position before returning.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 12)
	if stream.Read(header) < 12 {
		return false
	}
	if string(header[0:4]) != "FORM" {
		return false
	}
	kind := string(header[8:12])
	return kind == "AIFF" || kind == "AIFC"
}

// Decoder implements the decoder contract over an AIFF/AIFC stream. All
// audio is decoded to float32 eagerly at Open, matching the entire-file
// buffer-then-slice shape original_source's decoder_aiff.cc uses.
type Decoder struct {
	channels  int
	rate      uint32
	samples   []float32 // interleaved
	pos       int
	open      bool
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNotAIFF
	}
	stream.Seek(12, iostream.SeekSet)

	var (
		channels               int
		numFrames, rate        uint32
		sampleSize             int
		comp                   = compNone
		haveCOMM, haveSSND     bool
		dataStart, dataLen     int64
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
		case "COMM":
			body := make([]byte, size)
			stream.Read(body)
			if len(body) < 18 {
				return fmt.Errorf("musac/aiff: %w: COMM too short", ErrTruncated)
			}
			channels = int(binary.BigEndian.Uint16(body[0:2]))
			numFrames = binary.BigEndian.Uint32(body[2:6])
			sampleSize = int(binary.BigEndian.Uint16(body[6:8]))
			var ext [10]byte
			copy(ext[:], body[8:18])
			rate = pcm.ExtendedToUint32(ext)
			if len(body) > 18 {
				switch string(body[18:22]) {
				case "sowt":
					comp = compSowt
				case "fl32":
					comp = compFloat32
				case "fl64":
					comp = compFloat64
				case "ALAW", "alaw":
					comp = compALaw
				case "ULAW", "ulaw":
					comp = compULaw
				case "ima4":
					comp = compIMA4
				default:
					comp = compNone
				}
			}
			haveCOMM = true
		case "SSND":
			body := make([]byte, 8)
			stream.Read(body)
			offset := binary.BigEndian.Uint32(body[0:4])
			dataStart = chunkStart + 8 + int64(offset)
			dataLen = int64(size) - 8 - int64(offset)
			haveSSND = true
		}

		next := chunkStart + int64(size) + int64(size&1)
		stream.Seek(next, iostream.SeekSet)
	}

	if !haveCOMM || !haveSSND {
		return fmt.Errorf("musac/aiff: %w: missing COMM or SSND chunk", ErrTruncated)
	}

	stream.Seek(dataStart, iostream.SeekSet)
	raw := make([]byte, dataLen)
	stream.Read(raw)

	samples, err := decodeSamples(raw, channels, sampleSize, comp, int(numFrames))
	if err != nil {
		return err
	}

	d.channels = channels
	d.rate = rate
	d.samples = samples
	d.pos = 0
	d.open = true
	return nil
}

func decodeSamples(raw []byte, channels, sampleSize int, comp compression, numFrames int) ([]float32, error) {
	switch comp {
	case compIMA4:
		return decodeIMA4(raw, channels)
	case compALaw:
		out := make([]float32, len(raw))
		for i, b := range raw {
			out[i] = float32(g711.DecodeALaw(b)) / 32768
		}
		return out, nil
	case compULaw:
		out := make([]float32, len(raw))
		for i, b := range raw {
			out[i] = float32(g711.DecodeULaw(b)) / 32768
		}
		return out, nil
	case compFloat32:
		n := len(raw) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.BigEndian.Uint32(raw[i*4:])
			out[i] = float32frombits(bits)
		}
		return out, nil
	case compFloat64:
		n := len(raw) / 8
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.BigEndian.Uint64(raw[i*8:])
			out[i] = float32(float64frombits(bits))
		}
		return out, nil
	case compSowt:
		n := len(raw) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			out[i] = float32(v) / 32768
		}
		return out, nil
	default: // compNone: big-endian PCM at sampleSize bits
		switch sampleSize {
		case 8:
			out := make([]float32, len(raw))
			for i, b := range raw {
				out[i] = float32(int8(b)) / 128
			}
			return out, nil
		case 16:
			n := len(raw) / 2
			out := make([]float32, n)
			for i := 0; i < n; i++ {
				v := int16(binary.BigEndian.Uint16(raw[i*2:]))
				out[i] = float32(v) / 32768
			}
			return out, nil
		case 24:
			n := len(raw) / 3
			out := make([]float32, n)
			for i := 0; i < n; i++ {
				b := raw[i*3 : i*3+3]
				v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
				if v&0x800000 != 0 {
					v |= ^int32(0xFFFFFF)
				}
				out[i] = float32(v) / 8388608
			}
			return out, nil
		case 32:
			n := len(raw) / 4
			out := make([]float32, n)
			for i := 0; i < n; i++ {
				v := int32(binary.BigEndian.Uint32(raw[i*4:]))
				out[i] = float32(float64(v) / 2147483648)
			}
			return out, nil
		case 12:
			return decode12Bit(raw, channels, numFrames)
		default:
			return nil, fmt.Errorf("%w: sampleSize=%d", ErrUnsupported, sampleSize)
		}
	}
}

// decode12Bit unpacks two 12-bit samples from every three bytes, per
// spec.md §4.4.3's "two frames per three bytes, mono" packing.
func decode12Bit(raw []byte, channels, numFrames int) ([]float32, error) {
	totalSamples := numFrames * channels
	out := make([]float32, 0, totalSamples)
	for i := 0; i+3 <= len(raw) && len(out) < totalSamples; i += 3 {
		b0, b1, b2 := raw[i], raw[i+1], raw[i+2]
		s1 := int16(b0)<<4 | int16(b1)>>4
		s1 = signExtend12(s1)
		s2 := (int16(b1)&0x0F)<<8 | int16(b2)
		s2 = signExtend12(s2)
		out = append(out, float32(s1)/2048, float32(s2)/2048)
	}
	if len(out) > totalSamples {
		out = out[:totalSamples]
	}
	return out, nil
}

func signExtend12(v int16) int16 {
	v &= 0x0FFF
	if v&0x0800 != 0 {
		v |= ^int16(0x0FFF)
	}
	return v
}

// IMA ADPCM tables, standard across QuickTime/AIFC IMA4 decoders.
var imaStepTable = [89]int32{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28, 31,
	34, 37, 41, 45, 50, 55, 60, 66, 73, 80, 88, 97, 107, 118, 130, 143,
	157, 173, 190, 209, 230, 253, 279, 307, 337, 371, 408, 449, 494, 544, 598, 658,
	724, 796, 876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066, 2272, 2499, 2749, 3024,
	3327, 3660, 4026, 4428, 4871, 5358, 5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

var imaIndexTable = [16]int32{
	-1, -1, -1, -1, 2, 4, 6, 8,
	-1, -1, -1, -1, 2, 4, 6, 8,
}

// decodeIMA4 decodes one 34-byte packet per channel per block (spec.md
// §4.4.3/§4.9: "packet = 34 bytes → 64 frames per channel").
func decodeIMA4(raw []byte, channels int) ([]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: IMA4 requires a positive channel count", ErrUnsupported)
	}
	blockSize := 34 * channels
	var out []float32
	chanBuf := make([][]int16, channels)

	for off := 0; off+blockSize <= len(raw); off += blockSize {
		for c := 0; c < channels; c++ {
			packet := raw[off+c*34 : off+c*34+34]
			chanBuf[c] = decodeIMA4Packet(packet)
		}
		for f := 0; f < 64; f++ {
			for c := 0; c < channels; c++ {
				out = append(out, float32(chanBuf[c][f])/32768)
			}
		}
	}
	return out, nil
}

func decodeIMA4Packet(packet []byte) []int16 {
	preamble := binary.BigEndian.Uint16(packet[0:2])
	predictor := int32(int16(preamble & 0xFF80))
	stepIndex := int32(preamble & 0x7F)
	if stepIndex > 88 {
		stepIndex = 88
	}

	samples := make([]int16, 0, 64)
	for _, b := range packet[2:34] {
		for _, nibble := range [2]byte{b & 0x0F, b >> 4} {
			step := imaStepTable[stepIndex]
			diff := step >> 3
			if nibble&4 != 0 {
				diff += step
			}
			if nibble&2 != 0 {
				diff += step >> 1
			}
			if nibble&1 != 0 {
				diff += step >> 2
			}
			if nibble&8 != 0 {
				predictor -= diff
			} else {
				predictor += diff
			}
			switch {
			case predictor > 32767:
				predictor = 32767
			case predictor < -32768:
				predictor = -32768
			}
			stepIndex += imaIndexTable[nibble]
			switch {
			case stepIndex < 0:
				stepIndex = 0
			case stepIndex > 88:
				stepIndex = 88
			}
			samples = append(samples, int16(predictor))
		}
	}
	return samples
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
func (d *Decoder) Name() string  { return "aiff" }
func (d *Decoder) IsOpen() bool  { return d.open }
