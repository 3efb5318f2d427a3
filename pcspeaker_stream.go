package musac

import (
	"time"

	"github.com/kelindar/musac/internal/codec/pcspeaker"
	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/mml"
)

const defaultBeepDuration = 200 * time.Millisecond

// PCSpeakerStream is an AudioStream fronting the synthetic square-wave
// generator (C11, spec.md §4.10): sound/beep/silence append tones to a
// locked queue the decoder drains one at a time, and play_mml feeds an
// entire parsed tune into the same queue in one call.
type PCSpeakerStream struct {
	*AudioStream

	queue    *pcspeaker.Queue
	warnings []string
}

func newPCSpeakerStream(d *Device) (*PCSpeakerStream, error) {
	queue := &pcspeaker.Queue{}
	dec := pcspeaker.New(queue)
	if err := dec.Open(iostream.OpenMemory(nil)); err != nil {
		return nil, err
	}

	base, err := d.CreateStream(NewSyntheticSource(dec))
	if err != nil {
		return nil, err
	}
	base.Play(0, 0)

	return &PCSpeakerStream{AudioStream: base, queue: queue}, nil
}

// Sound appends a tone of hz for duration to the queue.
func (p *PCSpeakerStream) Sound(hz float64, duration time.Duration) {
	p.queue.Push(pcspeaker.Tone{FrequencyHz: float32(hz), Duration: duration})
}

// Beep appends a short tone at hz (1000 Hz if hz is 0).
func (p *PCSpeakerStream) Beep(hz float64) {
	if hz == 0 {
		hz = 1000
	}
	p.Sound(hz, defaultBeepDuration)
}

// Silence appends duration worth of silence to the queue.
func (p *PCSpeakerStream) Silence(duration time.Duration) {
	p.queue.Push(pcspeaker.Tone{FrequencyHz: 0, Duration: duration})
}

// ClearQueue discards every tone not yet consumed by the decoder.
func (p *PCSpeakerStream) ClearQueue() {
	p.queue.Clear()
}

// PlayMML parses text as Music Macro Language and appends every
// resulting tone/rest to the queue. In strict mode a malformed command
// returns a *mml.ParseError immediately and nothing is queued; in
// non-strict mode problems accumulate as warnings retrievable via
// Warnings and the rest of the tune still plays.
func (p *PCSpeakerStream) PlayMML(text string, strict bool) error {
	parser := mml.NewParser()
	parser.SetStrictMode(strict)

	events, err := parser.Parse(text)
	if err != nil {
		return err
	}
	p.warnings = parser.Warnings()

	for _, tone := range mml.Convert(events) {
		p.queue.Push(pcspeaker.Tone{FrequencyHz: float32(tone.FrequencyHz), Duration: tone.Duration})
	}
	return nil
}

// Warnings returns the warnings accumulated by the most recent
// non-strict PlayMML call.
func (p *PCSpeakerStream) Warnings() []string {
	return p.warnings
}
