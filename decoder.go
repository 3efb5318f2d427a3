package musac

import "errors"

// ErrDecoder is wrapped by format/header parse failures surfaced from
// Open (spec.md §7 kind 2).
var ErrDecoder = errors.New("musac: decoder error")

// Decoder is the uniform pull-based contract every codec implements
// (C5, spec.md §4.4.1). A Decoder is constructed cheaply; Open parses
// headers and fills in Channels/Rate/Duration/Name.
type Decoder interface {
	// Open parses headers from stream and prepares the decoder to
	// produce samples. It may retain stream for the decoder's lifetime.
	Open(stream Stream) error

	// Decode pulls up to len(dst) interleaved float32 samples (not
	// frames) at the decoder's native rate and channel count into dst,
	// returning the number produced. callAgain reports whether more
	// output is available immediately without further input being
	// supplied. deviceChannels is an advisory hint for decoders that can
	// cheaply mix to it (e.g. mono sources that can duplicate to
	// stereo). Decode returns 0 at logical EOF and must never block
	// beyond what the stream offers.
	Decode(dst []float32, deviceChannels int) (produced int, callAgain bool)

	// Rewind seeks to the logical start of the decoded audio. Decoders
	// that cannot rewind return false.
	Rewind() bool

	// SeekToTime seeks to a wall-clock position in microseconds.
	// Decoders that cannot seek return false.
	SeekToTime(microseconds int64) bool

	// Duration returns the total length in microseconds if known, else 0.
	Duration() int64

	Channels() int
	Rate() uint32
	Name() string
	IsOpen() bool
}

// Sniffer peeks at stream to decide whether its decoder can parse it. It
// must restore the stream's position before returning, regardless of
// the result (spec.md §4.4.1).
type Sniffer func(stream Stream) bool

// Constructor creates a fresh, unopened Decoder instance.
type Constructor func() Decoder
