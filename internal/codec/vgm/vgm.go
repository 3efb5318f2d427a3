// Package vgm decodes VGM (Video Game Music) command streams and their
// gzip-wrapped VGZ variant. Grounded on original_source's
// decoder_vgm.cc for the pull contract (load/get_total_samples/
// calculate_duration_samples/rewind/seek_to_sample/render/done) and on
// the publicly documented VGM header layout and command-byte table
// every VGM player implements. Per spec.md §1's chip-emulation
// carve-out, the YM3812/YMF262 (OPL2/OPL3) register writes this
// package recognizes drive internal/synth's stand-in voice bank rather
// than a real FM core -- frequency is derived from the standard
// Fnum/Block -> Hz conversion (Freq = Fnum * clock/72 * 2^(Block-20))
// without reproducing the chip's exact waveform.
package vgm

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"math"

	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/synth"
)

var (
	ErrNotVGM = errors.New("musac/vgm: not a VGM/VGZ stream")
	ErrDecode = errors.New("musac/vgm: malformed VGM command stream")
)

const (
	outputRate = 44100
	voiceCount = 18 // 9 OPL channels x 2 ports (OPL3-style dual bank)

	// oplFreqConst is clock/72 for the standard 3,579,545 Hz OPL2 clock,
	// the constant every Fnum/Block -> Hz conversion table cites.
	oplFreqConst = 49716.0
)

// Probe recognizes the plain "Vgm " magic or the gzip magic (1f 8b 08)
// a VGZ file starts with, per spec.md §6.3.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 4)
	n := stream.Read(header)
	if n < 3 {
		return false
	}
	if header[0] == 0x1f && header[1] == 0x8b && header[2] == 0x08 {
		return true
	}
	return n >= 4 && string(header) == "Vgm "
}

type Decoder struct {
	events   []noteEvent
	cursor   int
	clock    int64
	total    int64
	computed bool // true if total was derived by silent playback, not the header
	engine   *synth.Engine
	open     bool
}

type noteEvent struct {
	atSample int64
	channel  int
	freqHz   float64
	gain     float32
	on       bool
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNotVGM
	}
	stream.Seek(0, iostream.SeekSet)
	raw := make([]byte, stream.Size())
	stream.Read(raw)

	if len(raw) >= 3 && raw[0] == 0x1f && raw[1] == 0x8b && raw[2] == 0x08 {
		inflated, err := gunzip(raw)
		if err != nil {
			return errors.Join(ErrDecode, err)
		}
		raw = inflated
	}
	if len(raw) < 0x40 || string(raw[0:4]) != "Vgm " {
		return ErrDecode
	}

	version := leu32(raw[0x08:0x0c])
	headerSamples := int64(leu32(raw[0x18:0x1c]))
	dataStart := 0x40
	if version >= 0x150 {
		if rel := leu32(raw[0x34:0x38]); rel != 0 {
			dataStart = 0x34 + int(rel)
		}
	}
	if dataStart > len(raw) {
		return ErrDecode
	}

	events, waitTotal, err := parseCommands(raw[dataStart:])
	if err != nil {
		return errors.Join(ErrDecode, err)
	}

	total := headerSamples
	computed := false
	if total == 0 {
		total = waitTotal
		computed = true
	}

	d.events = events
	d.cursor = 0
	d.clock = 0
	d.total = total
	d.computed = computed
	d.engine = synth.NewEngine(voiceCount, outputRate)
	d.open = true
	return nil
}

func gunzip(raw []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (d *Decoder) Decode(dst []float32, deviceChannels int) (int, bool) {
	if !d.open {
		return 0, false
	}
	frames := len(dst) / 2
	if frames == 0 {
		return 0, false
	}
	if d.clock >= d.total && d.cursor >= len(d.events) {
		return 0, false
	}

	produced := 0
	for produced < frames {
		for d.cursor < len(d.events) && d.events[d.cursor].atSample <= d.clock {
			e := d.events[d.cursor]
			if e.on {
				d.engine.NoteOn(e.channel, e.freqHz, e.gain)
			} else {
				d.engine.NoteOff(e.channel)
			}
			d.cursor++
		}

		chunk := frames - produced
		if d.cursor < len(d.events) {
			if untilNext := int(d.events[d.cursor].atSample - d.clock); untilNext > 0 && untilNext < chunk {
				chunk = untilNext
			}
		} else if remaining := int(d.total - d.clock); remaining > 0 && remaining < chunk {
			chunk = remaining
		}
		if chunk <= 0 {
			chunk = 1
		}

		d.engine.Render(dst[2*produced:2*(produced+chunk)], chunk)
		produced += chunk
		d.clock += int64(chunk)

		if d.clock >= d.total && d.cursor >= len(d.events) {
			break
		}
	}
	return 2 * produced, d.clock < d.total || d.cursor < len(d.events)
}

func (d *Decoder) Rewind() bool {
	if !d.open {
		return false
	}
	d.cursor = 0
	d.clock = 0
	d.engine.Reset()
	return true
}

func (d *Decoder) SeekToTime(microseconds int64) bool {
	if !d.open {
		return false
	}
	target := microseconds * outputRate / 1_000_000
	if target < d.clock {
		d.engine.Reset()
		d.cursor = 0
	}
	for d.cursor < len(d.events) && d.events[d.cursor].atSample <= target {
		e := d.events[d.cursor]
		if e.on {
			d.engine.NoteOn(e.channel, e.freqHz, e.gain)
		} else {
			d.engine.NoteOff(e.channel)
		}
		d.cursor++
	}
	d.clock = target
	return true
}

// Duration returns the total length in microseconds. If the VGM header
// reported zero total samples, this value came from silently walking
// the entire wait-command stream at Open time (recorded in d.computed)
// -- linear cost paid once up front, per spec.md §9's documented
// caveat about VGM duration not being a free call on every decoder.
func (d *Decoder) Duration() int64 {
	if !d.open {
		return 0
	}
	return d.total * 1_000_000 / outputRate
}

func (d *Decoder) Channels() int { return 2 }
func (d *Decoder) Rate() uint32  { return outputRate }
func (d *Decoder) Name() string  { return "vgm" }
func (d *Decoder) IsOpen() bool  { return d.open }

func leu32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func fnumBlockToHz(fnum, block int) float64 {
	return float64(fnum) * oplFreqConst * math.Exp2(float64(block)-20)
}
