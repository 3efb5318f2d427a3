// Package seq implements the shared MIDI/MUS/XMI sequencer decoder
// (spec.md §4.4.3 "MIDI / MUS / XMI (shared decoder_seq)"): one
// registry entry that sniffs all three event-stream formats, parses
// whichever it finds into a common absolute-sample-timestamped note
// timeline, and renders that timeline through internal/synth's
// stand-in FM/chip voice bank. Bit-exact OPL emulation and General
// MIDI patch banks are out of scope per spec.md §1; only the pull
// contract (decode/rewind/seek_to_time/duration) is specified, and
// that is what this package satisfies.
package seq

import (
	"errors"
	"math"

	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/synth"
)

var (
	ErrNotSequence = errors.New("musac/seq: not a recognized MIDI/MUS/XMI stream")
	ErrDecode      = errors.New("musac/seq: malformed event stream")
)

const (
	outputRate = 44100
	voiceCount = 16 // one per MIDI channel, XMI/MUS remap onto the same bank
)

// noteEvent is one scheduled change to a voice, timestamped in output
// samples since the start of the piece.
type noteEvent struct {
	atSample int64
	channel  int
	freqHz   float64
	gain     float32
	on       bool
}

// Probe recognizes the magic of any of the three formats decoder_seq
// accepts: "MThd" (Standard MIDI File), "MUS\x1A" (id
// Software MUS), or the IFF "FORM"+"XDIR" / "FORM"+"XMID" shell XMI
// files use.
func Probe(stream iostream.Stream) bool {
	p0 := stream.Tell()
	defer stream.Seek(p0, iostream.SeekSet)

	header := make([]byte, 12)
	n := stream.Read(header)
	if n < 4 {
		return false
	}
	switch string(header[:4]) {
	case "MThd":
		return true
	case "MUS\x1a":
		return true
	case "FORM":
		if n < 12 {
			return false
		}
		tag := string(header[8:12])
		return tag == "XDIR" || tag == "XMID"
	}
	return false
}

// Decoder renders a parsed note timeline through a synth.Engine.
type Decoder struct {
	events []noteEvent
	cursor int
	clock  int64 // absolute sample position
	total  int64 // sample position of the last scheduled event
	engine *synth.Engine
	name   string
	open   bool
}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Open(stream iostream.Stream) error {
	if !Probe(stream) {
		return ErrNotSequence
	}
	stream.Seek(0, iostream.SeekSet)
	raw := make([]byte, stream.Size())
	stream.Read(raw)

	var events []noteEvent
	var name string
	var err error
	switch {
	case len(raw) >= 4 && string(raw[:4]) == "MThd":
		events, err = parseMIDI(raw)
		name = "midi"
	case len(raw) >= 4 && string(raw[:4]) == "MUS\x1a":
		events, err = parseMUS(raw)
		name = "mus"
	case len(raw) >= 12 && string(raw[:4]) == "FORM":
		events, err = parseXMI(raw)
		name = "xmi"
	default:
		return ErrNotSequence
	}
	if err != nil {
		return errors.Join(ErrDecode, err)
	}
	sortNoteEvents(events)

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
	d.name = name
	d.open = true
	return nil
}

// Decode renders the next stereo frames, firing any note on/off events
// whose timestamp has arrived. deviceChannels is ignored: this decoder
// always produces 2-channel 44100 Hz output per spec.md §4.4.3.
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
		// Fire every event due at or before the current clock.
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
			untilNext := int(d.events[d.cursor].atSample - d.clock)
			if untilNext > 0 && untilNext < chunk {
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

// Rewind resets both the event cursor and the synth's voice state.
func (d *Decoder) Rewind() bool {
	if !d.open {
		return false
	}
	d.cursor = 0
	d.clock = 0
	d.engine.Reset()
	return true
}

// SeekToTime fast-forwards the sequencer silently to the target tick,
// replaying (but not rendering) every event up to that point so voice
// gate/frequency state matches what continuous playback would have
// produced, per spec.md §4.4.3.
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

// sortNoteEvents is a stable insertion sort by atSample: the event
// lists produced by each format's parser are already nearly sorted
// (ticks only move forward), so this is cheap insurance against the
// rare out-of-order batch (e.g. XMI's implicit-duration note-offs
// flushing in insertion rather than deadline order) rather than a
// performance-sensitive hot path.
func sortNoteEvents(e []noteEvent) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].atSample < e[j-1].atSample; j-- {
			e[j], e[j-1] = e[j-1], e[j]
		}
	}
}

func (d *Decoder) Channels() int { return 2 }
func (d *Decoder) Rate() uint32  { return outputRate }
func (d *Decoder) Name() string  { return d.name }
func (d *Decoder) IsOpen() bool  { return d.open }

// midiNoteFreq converts a MIDI note number to Hz, A4 (note 69) = 440Hz
// equal temperament, matching mml's anchor-and-double-per-octave scheme.
func midiNoteFreq(note int) float64 {
	return 440.0 * math.Exp2((float64(note)-69.0)/12.0)
}
