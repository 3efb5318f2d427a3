// Package pcm holds the sample format descriptors, endian helpers and
// packed-PCM <-> float32 converters shared by the audio converter and every
// codec decoder.
package pcm

import "fmt"

// Format is a packed PCM sample encoding.
type Format uint8

// Supported sample formats. Unknown is a sentinel, never a format in
// effect on an open audio_spec.
const (
	Unknown Format = iota
	U8
	S8
	S16LE
	S16BE
	S32LE
	S32BE
	F32LE
	F32BE
)

// String returns a short human-readable name, used in error messages.
func (f Format) String() string {
	switch f {
	case U8:
		return "u8"
	case S8:
		return "s8"
	case S16LE:
		return "s16le"
	case S16BE:
		return "s16be"
	case S32LE:
		return "s32le"
	case S32BE:
		return "s32be"
	case F32LE:
		return "f32le"
	case F32BE:
		return "f32be"
	default:
		return "unknown"
	}
}

// ByteSize returns the size in bytes of one scalar sample of this format.
// ByteSize(Unknown) is always 0.
func (f Format) ByteSize() int {
	switch f {
	case U8, S8:
		return 1
	case S16LE, S16BE:
		return 2
	case S32LE, S32BE, F32LE, F32BE:
		return 4
	default:
		return 0
	}
}

// IsBigEndian reports whether the format's multi-byte samples are stored
// big-endian. Single-byte formats return false.
func (f Format) IsBigEndian() bool {
	switch f {
	case S16BE, S32BE, F32BE:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the format stores IEEE-754 float samples.
func (f Format) IsFloat() bool {
	return f == F32LE || f == F32BE
}

// IsSigned reports whether the format's integer samples are signed.
// Float formats report true (they are signed in the sense of a signed
// range); Unknown reports false.
func (f Format) IsSigned() bool {
	switch f {
	case U8:
		return false
	case Unknown:
		return false
	default:
		return true
	}
}

// Spec is the (format, channels, rate) triple a decoder, device or stream
// operates at. All three fields must be non-zero for the spec to be "in
// effect" per spec.md §3.
type Spec struct {
	Format   Format
	Channels uint8
	Rate     uint32
}

// FrameSize returns the number of bytes in one frame (one sample per
// channel) at this spec.
func (s Spec) FrameSize() int {
	return int(s.Channels) * s.Format.ByteSize()
}

// Valid reports whether every field of the spec is non-zero and Channels
// is within the 1..8 range spec.md §3 requires.
func (s Spec) Valid() bool {
	return s.Format != Unknown && s.Channels >= 1 && s.Channels <= 8 && s.Rate > 0
}

func (s Spec) String() string {
	return fmt.Sprintf("%s/%dch/%dHz", s.Format, s.Channels, s.Rate)
}
