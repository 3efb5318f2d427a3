// Package mock is a lightweight in-memory musac.Backend for tests,
// the same shape as the teacher SDK's own mock package: a map-backed
// double that satisfies the real interface without touching actual
// hardware, plus a Tick method giving test code the explicit hand it
// needs to drive the mixer callback that a real audio thread would
// otherwise call on its own schedule.
package mock

import (
	"errors"
	"sync"

	"github.com/kelindar/musac"
)

var ErrDeviceNotFound = errors.New("mock: device not found")

type deviceState struct {
	handle   int
	spec     musac.AudioSpec
	gain     float32
	paused   bool
	muted    bool
	closed   bool
	stream   *Stream
	callback musac.DeviceCallback
}

// Backend is an in-memory musac.Backend: every device it "opens" is a
// bookkeeping entry in a map, and audio only moves when a test calls
// Tick to simulate one callback-thread invocation.
type Backend struct {
	mu          sync.Mutex
	initialized bool
	devices     []musac.DeviceInfo
	open        map[int]*deviceState
	nextHandle  int
}

// New returns a Backend seeded with devices. DefaultDevice and
// OpenDevice("") resolve to the first device marked IsDefault, or to
// the first device when none is marked.
func New(devices ...musac.DeviceInfo) *Backend {
	return &Backend{devices: devices, open: make(map[int]*deviceState)}
}

func (b *Backend) Init() error              { b.mu.Lock(); b.initialized = true; b.mu.Unlock(); return nil }
func (b *Backend) Shutdown() error          { b.mu.Lock(); b.initialized = false; b.mu.Unlock(); return nil }
func (b *Backend) IsInitialized() bool      { b.mu.Lock(); defer b.mu.Unlock(); return b.initialized }
func (b *Backend) Name() string             { return "mock" }
func (b *Backend) SupportsRecording() bool  { return false }
func (b *Backend) MaxOpenDevices() int      { return 8 }

func (b *Backend) EnumerateDevices(playback bool) []musac.DeviceInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]musac.DeviceInfo, len(b.devices))
	copy(out, b.devices)
	return out
}

func (b *Backend) DefaultDevice(playback bool) (musac.DeviceInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		if d.IsDefault {
			return d, true
		}
	}
	if len(b.devices) > 0 {
		return b.devices[0], true
	}
	return musac.DeviceInfo{}, false
}

func (b *Backend) findDevice(deviceID string) (musac.DeviceInfo, bool) {
	if deviceID == "" {
		return b.DefaultDevice(true)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		if d.ID == deviceID {
			return d, true
		}
	}
	return musac.DeviceInfo{}, false
}

func (b *Backend) OpenDevice(deviceID string, desired musac.AudioSpec) (musac.DeviceHandle, musac.AudioSpec, error) {
	info, ok := b.findDevice(deviceID)
	if !ok {
		return nil, musac.AudioSpec{}, ErrDeviceNotFound
	}

	obtained := desired
	if obtained.Channels == 0 {
		obtained.Channels = uint8(info.Channels)
	}
	if obtained.Rate == 0 {
		obtained.Rate = info.SampleRate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextHandle++
	handle := b.nextHandle
	b.open[handle] = &deviceState{handle: handle, spec: obtained, gain: 1, paused: true}
	return handle, obtained, nil
}

// LastHandle returns the most recently issued device handle, letting
// tests drive Tick without the musac.Device API exposing its own
// backend handle (it is deliberately opaque outside this package).
func (b *Backend) LastHandle() musac.DeviceHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextHandle
}

func (b *Backend) CloseDevice(handle musac.DeviceHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := handle.(int)
	if st, ok := b.open[h]; ok {
		st.closed = true
		delete(b.open, h)
	}
	return nil
}

func (b *Backend) state(handle musac.DeviceHandle) *deviceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open[handle.(int)]
}

func (b *Backend) DeviceFormat(handle musac.DeviceHandle) musac.SampleFormat {
	return b.state(handle).spec.Format
}

func (b *Backend) DeviceFrequency(handle musac.DeviceHandle) uint32 {
	return b.state(handle).spec.Rate
}

func (b *Backend) DeviceChannels(handle musac.DeviceHandle) int {
	return int(b.state(handle).spec.Channels)
}

func (b *Backend) DeviceGain(handle musac.DeviceHandle) float32 {
	return b.state(handle).gain
}

func (b *Backend) SetDeviceGain(handle musac.DeviceHandle, gain float32) {
	b.state(handle).gain = gain
}

func (b *Backend) PauseDevice(handle musac.DeviceHandle) error {
	b.state(handle).paused = true
	return nil
}

func (b *Backend) ResumeDevice(handle musac.DeviceHandle) error {
	b.state(handle).paused = false
	return nil
}

func (b *Backend) IsDevicePaused(handle musac.DeviceHandle) bool {
	return b.state(handle).paused
}

// SupportsMute is false: this double exercises the core's own
// mixer-zeroing fallback rather than a hardware mute path.
func (b *Backend) SupportsMute(handle musac.DeviceHandle) bool { return false }

func (b *Backend) MuteDevice(handle musac.DeviceHandle) error {
	b.state(handle).muted = true
	return nil
}

func (b *Backend) UnmuteDevice(handle musac.DeviceHandle) error {
	b.state(handle).muted = false
	return nil
}

func (b *Backend) IsDeviceMuted(handle musac.DeviceHandle) bool {
	return b.state(handle).muted
}

func (b *Backend) CreateStream(handle musac.DeviceHandle, spec musac.AudioSpec, callback musac.DeviceCallback) (musac.StreamInterface, error) {
	st := b.state(handle)
	if st == nil {
		return nil, ErrDeviceNotFound
	}
	s := &Stream{spec: spec, paused: true}
	b.mu.Lock()
	st.stream = s
	st.callback = callback
	b.mu.Unlock()
	return s, nil
}

// Tick simulates one invocation of the real-time callback thread: if
// the device's bound stream is resumed and not device-paused, it
// allocates an out_len-byte buffer, runs the registered callback, and
// returns the filled buffer. Returns nil if the stream is not
// currently live.
func (b *Backend) Tick(handle musac.DeviceHandle, outLen int) []byte {
	st := b.state(handle)
	if st == nil || st.stream == nil || st.paused || st.stream.IsPaused() {
		return nil
	}
	out := make([]byte, outLen)
	st.callback(out)
	if st.muted {
		for i := range out {
			out[i] = 0
		}
	}
	return out
}

// Stream is the in-memory musac.StreamInterface CreateStream hands
// back: PutData/GetData/Clear operate on a plain byte queue for the
// backend's queue-mode path, while BindToDevice/Pause/Resume just flip
// the booleans Tick checks.
type Stream struct {
	mu     sync.Mutex
	spec   musac.AudioSpec
	queue  []byte
	paused bool
	bound  bool
}

func (s *Stream) PutData(data []byte) error {
	s.mu.Lock()
	s.queue = append(s.queue, data...)
	s.mu.Unlock()
	return nil
}

func (s *Stream) GetData(out []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(out, s.queue)
	s.queue = s.queue[n:]
	return n, nil
}

func (s *Stream) Clear() {
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}

func (s *Stream) Pause() error  { s.mu.Lock(); s.paused = true; s.mu.Unlock(); return nil }
func (s *Stream) Resume() error { s.mu.Lock(); s.paused = false; s.mu.Unlock(); return nil }
func (s *Stream) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
func (s *Stream) QueuedSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Stream) BindToDevice(handle musac.DeviceHandle) error {
	s.mu.Lock()
	s.bound = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) UnbindFromDevice() error {
	s.mu.Lock()
	s.bound = false
	s.paused = true
	s.mu.Unlock()
	return nil
}
