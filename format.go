// Package musac is a multi-format audio decoding and mixing library: it
// ingests encoded audio from PCM wave containers, AIFF/AIFC, Creative
// VOC, Ogg Vorbis, FLAC, IFF 8SVX, the CMF/MIDI/MUS/XMI/OPB/VGM
// synthesized-music families and a synthetic PC-speaker tone generator,
// resamples and channel-mixes it to a device's native format, and mixes
// any number of simultaneous streams into the buffer a platform audio
// backend consumes.
package musac

import "github.com/kelindar/musac/internal/pcm"

// SampleFormat is a packed PCM sample encoding (spec.md §3).
type SampleFormat = pcm.Format

// Supported sample formats, per spec.md §3.
const (
	Unknown SampleFormat = pcm.Unknown
	U8      SampleFormat = pcm.U8
	S8      SampleFormat = pcm.S8
	S16LE   SampleFormat = pcm.S16LE
	S16BE   SampleFormat = pcm.S16BE
	S32LE   SampleFormat = pcm.S32LE
	S32BE   SampleFormat = pcm.S32BE
	F32LE   SampleFormat = pcm.F32LE
	F32BE   SampleFormat = pcm.F32BE
)

// AudioSpec is the (format, channels, rate) triple a decoder, device or
// stream operates at (spec.md §3).
type AudioSpec = pcm.Spec
