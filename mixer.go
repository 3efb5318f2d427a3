package musac

import (
	"sync"

	"github.com/kelindar/musac/internal/pcm"
)

// Mixer sums every live AudioStream bound to one device into that
// device's packed output buffer on each callback (C9, spec.md §4.7).
// The stream registry is guarded by its own short mutex so that
// Add/Remove never blocks behind, or is blocked by, decoder work
// running inside Callback -- Callback only ever holds the registry
// lock long enough to copy the slice header.
type Mixer struct {
	spec AudioSpec

	regMu   sync.Mutex
	streams []*AudioStream

	gain   float32
	muted  bool
	scratch []float32
	local   []float32
}

// NewMixer returns a Mixer that produces audio at spec.
func NewMixer(spec AudioSpec) *Mixer {
	return &Mixer{spec: spec, gain: 1}
}

// Add registers s with the mixer; it is pulled from on every
// subsequent Callback until Remove is called.
func (m *Mixer) Add(s *AudioStream) {
	m.regMu.Lock()
	m.streams = append(m.streams, s)
	m.regMu.Unlock()
}

// Remove unregisters s; it is a no-op if s is not currently registered.
func (m *Mixer) Remove(s *AudioStream) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	for i, existing := range m.streams {
		if existing == s {
			m.streams = append(m.streams[:i], m.streams[i+1:]...)
			return
		}
	}
}

// snapshot copies the current stream list under the registry lock,
// releasing it before any decode work runs.
func (m *Mixer) snapshot() []*AudioStream {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	out := make([]*AudioStream, len(m.streams))
	copy(out, m.streams)
	return out
}

// SetGain sets the mixer's overall output gain (device_gain).
func (m *Mixer) SetGain(gain float32) {
	m.regMu.Lock()
	m.gain = gain
	m.regMu.Unlock()
}

// SetMuted implements the mixer's own fallback mute path, used when
// the backend does not support hardware mute.
func (m *Mixer) SetMuted(muted bool) {
	m.regMu.Lock()
	m.muted = muted
	m.regMu.Unlock()
}

// Callback is the DeviceCallback the mixer registers with a Backend:
// it implements the 6-step algorithm of spec.md §4.7 against out, a
// packed buffer in m.spec's format.
func (m *Mixer) Callback(out []byte) {
	channels := int(m.spec.Channels)
	frameSize := m.spec.FrameSize()
	if frameSize == 0 || channels == 0 {
		return
	}
	frames := len(out) / frameSize
	samples := frames * channels

	if cap(m.scratch) < samples {
		m.scratch = make([]float32, samples)
	}
	scratch := m.scratch[:samples]
	for i := range scratch {
		scratch[i] = 0
	}

	m.regMu.Lock()
	gain, muted := m.gain, m.muted
	m.regMu.Unlock()

	if cap(m.local) < samples {
		m.local = make([]float32, samples)
	}
	local := m.local[:samples]

	for _, s := range m.snapshot() {
		for i := range local {
			local[i] = 0
		}
		s.Pull(local, frames)
		for i := range scratch {
			scratch[i] += local[i]
		}
	}

	if muted {
		gain = 0
	}
	for i := range scratch {
		v := scratch[i] * gain
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		scratch[i] = v
	}

	// scratch and out always share rate/channels here (Device opens every
	// stream it adds to this mixer against m.spec), so packing is a direct float32 ->
	// device-format write with pcm.FromFloat straight into the
	// caller-owned out buffer -- no intermediate byte buffer and no
	// allocation (spec.md §5: "callback thread... must not allocate"),
	// unlike convert.Convert's general src-spec -> dst-spec path.
	pcm.FromFloat(out, scratch, samples, m.spec.Format)
}
