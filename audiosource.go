package musac

import "fmt"

// AudioSource bundles an opened stream with the decoder that parsed it,
// exclusively owned by whichever AudioStream it is passed to (spec.md
// §3). Produced either by a Registry sniffing a stream, or by an
// explicit synthetic producer such as the PC speaker.
type AudioSource struct {
	io      Stream
	decoder Decoder
	spec    AudioSpec
}

// NewAudioSource opens stream against registry and returns the matching
// source, or an error if no decoder accepted it.
func NewAudioSource(registry *Registry, stream Stream) (*AudioSource, error) {
	dec, err := registry.FindDecoder(stream)
	if err != nil {
		return nil, fmt.Errorf("musac: opening audio source: %w", err)
	}
	if dec == nil {
		return nil, fmt.Errorf("musac: %w: no decoder accepted the stream", ErrDecoder)
	}
	return &AudioSource{
		io:      stream,
		decoder: dec,
		spec: AudioSpec{
			Format:   F32LE,
			Channels: uint8(dec.Channels()),
			Rate:     dec.Rate(),
		},
	}, nil
}

// NewSyntheticSource wraps an already-open decoder that has no backing
// container stream (the PC speaker tone generator).
func NewSyntheticSource(dec Decoder) *AudioSource {
	return &AudioSource{
		decoder: dec,
		spec: AudioSpec{
			Format:   F32LE,
			Channels: uint8(dec.Channels()),
			Rate:     dec.Rate(),
		},
	}
}

// Decoder returns the underlying decoder.
func (a *AudioSource) Decoder() Decoder { return a.decoder }

// Spec returns the source's native format spec.
func (a *AudioSource) Spec() AudioSpec { return a.spec }

// Close releases the backing stream, and the decoder's own resources if
// it holds any beyond the stream (the FLAC codec spills non-file-backed
// streams to a temp file and needs a hook to remove it).
func (a *AudioSource) Close() error {
	if closer, ok := a.decoder.(interface{ Close() error }); ok {
		closer.Close()
	}
	if a.io != nil {
		return a.io.Close()
	}
	return nil
}
