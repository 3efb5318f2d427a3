// Package synth is the deterministic stand-in sample producer shared by
// the seq (MIDI/MUS/XMI), cmf and vgm decoders. Per spec.md §1's
// explicit carve-out, bit-exact OPL/YM chip emulation is out of scope;
// what is specified is the integration contract those decoders present
// to the rest of the core (decode/rewind/duration, deterministic output
// from sequencer/register state). Engine supplies that contract's
// audio: a small bank of naive square-wave oscillator voices, each driven by
// a frequency/gain/gate triple that a codec's event-stream walker
// updates, rendered to interleaved stereo float32.
package synth

// Voice is one oscillator slot: a note currently sounding (or silent)
// at a given frequency and gain, with a running phase so frequency
// changes never introduce a discontinuity (mirrors the phase-continuity
// rule spec.md §4.10 states for the PC-speaker square wave).
type Voice struct {
	freq  float64
	gain  float32
	phase float64
	gate  bool
}

// Engine renders a fixed bank of Voices to interleaved stereo float32 at
// a fixed sample rate. All voices sum and are scaled by 1/len(voices) to
// keep the mix within [-1, 1] without per-sample clipping logic, the
// same headroom discipline the mixer (C9) applies at the device level.
type Engine struct {
	rate   uint32
	voices []Voice
}

// NewEngine allocates an Engine with n independent voices at rate.
func NewEngine(n int, rate uint32) *Engine {
	return &Engine{rate: rate, voices: make([]Voice, n)}
}

// Reset silences every voice and zeroes phase, used by Rewind.
func (e *Engine) Reset() {
	for i := range e.voices {
		e.voices[i] = Voice{}
	}
}

// NoteOn starts voice ch sounding at freqHz with the given linear gain.
// Phase is preserved if the voice was already gated on, avoiding a
// click on a frequency change within one held note.
func (e *Engine) NoteOn(ch int, freqHz float64, gain float32) {
	if ch < 0 || ch >= len(e.voices) {
		return
	}
	v := &e.voices[ch]
	v.freq = freqHz
	v.gain = gain
	v.gate = true
}

// NoteOff silences voice ch.
func (e *Engine) NoteOff(ch int) {
	if ch < 0 || ch >= len(e.voices) {
		return
	}
	e.voices[ch].gate = false
}

// Render advances every gated voice's phase and writes n stereo frames
// (2*n float32) into dst, which must be at least 2*n long. A simple
// 50%-duty square oscillator is used for every voice: cheap, alias-prone
// at high frequencies like real chip square channels, and close enough
// to a stand-in FM/chip voice for the pull contract this package exists
// to satisfy.
func (e *Engine) Render(dst []float32, n int) {
	for i := 0; i < n; i++ {
		var mix float32
		for v := range e.voices {
			voice := &e.voices[v]
			if !voice.gate || voice.freq <= 0 {
				continue
			}
			voice.phase += 2 * voice.freq / float64(e.rate)
			if voice.phase >= 1 {
				voice.phase -= 2
			}
			if voice.phase >= 0 {
				mix += voice.gain
			} else {
				mix -= voice.gain
			}
		}
		if n := len(e.voices); n > 0 {
			mix /= float32(n)
		}
		dst[2*i] = mix
		dst[2*i+1] = mix
	}
}

// Rate returns the engine's fixed sample rate.
func (e *Engine) Rate() uint32 { return e.rate }

// Voices returns the number of voice slots the engine was built with.
func (e *Engine) Voices() int { return len(e.voices) }
