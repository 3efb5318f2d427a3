// Package cmf decodes Creative Music Format (CTMF) files: an AdLib/OPL
// instrument-and-event format Creative Labs shipped with the Sound
// Blaster "Creative Music System" driver. Grounded directly on
// original_source's decoder_cmf.cc for the header field offsets
// (instrument table, music data, tick speed, instrument count) and the
// sbfm_song_speed tick-rate formula; the actual AdLib FM synthesis
// (fmdrv.c's sbfm_render_stereo) is out of scope per spec.md §1's
// chip-emulation carve-out, so note events drive internal/synth's
// stand-in voice bank instead of a real OPL core, satisfying the same
// decode/rewind/duration pull contract decoder_cmf.cc implements.
package cmf

import (
	"errors"

	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/synth"
)

var (
	ErrNotCMF = errors.New("musac/cmf: not a CTMF stream")
	ErrDecode = errors.New("musac/cmf: malformed CTMF stream")
)

const (
	outputRate = 44100
	voiceCount = 11 // CMF/OPL2 exposes 9 melodic + 2 rhythm-mode channels

	// pitClockHz is the constant decoder_cmf.cc divides by the header's
	// speed field to obtain the song's tick rate in Hz (0x1234dc).
	pitClockHz = 0x1234dc
)

// Probe sniffs the 4-byte "CTMF" magic.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 4)
	if stream.Read(header) < 4 {
		return false
	}
	return string(header) == "CTMF"
}

type Decoder struct {
	events []noteEvent
	cursor int
	clock  int64
	total  int64
	engine *synth.Engine
	open   bool
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
		return ErrNotCMF
	}
	stream.Seek(0, iostream.SeekSet)
	raw := make([]byte, stream.Size())
	stream.Read(raw)

	if len(raw) < 0x26 {
		return ErrDecode
	}
	speedValue := leu16(raw[0x0c:0x0e])
	if speedValue == 0 {
		return ErrDecode
	}
	musicOffset := int(leu16(raw[0x08:0x0a]))
	if musicOffset < 0 || musicOffset > len(raw) {
		return ErrDecode
	}
	tickHz := float64(pitClockHz) / float64(speedValue)

	events, err := parseCMFEvents(raw[musicOffset:], tickHz)
	if err != nil {
		return errors.Join(ErrDecode, err)
	}

	var total int64
	for _, e := range events {
		if e.atSample > total {
			total = e.atSample
		}
	}

	d.events = events
	d.cursor = 0
	d.clock = 0
	d.total = total
	d.engine = synth.NewEngine(voiceCount, outputRate)
	d.open = true
	return nil
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

func (d *Decoder) Duration() int64 {
	if !d.open {
		return 0
	}
	return d.total * 1_000_000 / outputRate
}

func (d *Decoder) Channels() int { return 2 }
func (d *Decoder) Rate() uint32  { return outputRate }
func (d *Decoder) Name() string  { return "cmf" }
func (d *Decoder) IsOpen() bool  { return d.open }

func leu16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
