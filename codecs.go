package musac

import (
	"github.com/kelindar/musac/internal/codec/aiff"
	"github.com/kelindar/musac/internal/codec/cmf"
	"github.com/kelindar/musac/internal/codec/eightsvx"
	"github.com/kelindar/musac/internal/codec/flac"
	"github.com/kelindar/musac/internal/codec/seq"
	"github.com/kelindar/musac/internal/codec/vgm"
	"github.com/kelindar/musac/internal/codec/voc"
	"github.com/kelindar/musac/internal/codec/vorbis"
	"github.com/kelindar/musac/internal/codec/wav"
)

// registerBuiltinCodecs wires every C6 format into r in the precedence
// order spec.md §6.3 lists: containers with an unambiguous magic
// number first (WAV, AIFF, 8SVX, FLAC/Ogg, VOC, CMF, VGM/VGZ), then
// the sequenced-music container formats (MIDI/MUS/XMI) last since
// they are the formats most likely to share a loose byte-pattern with
// something else if tried too early.
func registerBuiltinCodecs(r *Registry) {
	r.Register("wav", func(s Stream) bool { return wav.Probe(s) }, func() Decoder { return wav.New() })
	r.Register("aiff", func(s Stream) bool { return aiff.Probe(s) }, func() Decoder { return aiff.New() })
	r.Register("8svx", func(s Stream) bool { return eightsvx.Probe(s) }, func() Decoder { return eightsvx.New() })
	r.Register("flac", func(s Stream) bool { return flac.Probe(s) }, func() Decoder { return flac.New() })
	r.Register("vorbis", func(s Stream) bool { return vorbis.Probe(s) }, func() Decoder { return vorbis.New() })
	r.Register("voc", func(s Stream) bool { return voc.Probe(s) }, func() Decoder { return voc.New() })
	r.Register("cmf", func(s Stream) bool { return cmf.Probe(s) }, func() Decoder { return cmf.New() })
	r.Register("vgm", func(s Stream) bool { return vgm.Probe(s) }, func() Decoder { return vgm.New() })
	r.Register("seq", func(s Stream) bool { return seq.Probe(s) }, func() Decoder { return seq.New() })
}
