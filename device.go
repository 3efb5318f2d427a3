package musac

import (
	"fmt"
	"sync"
)

const defaultChunkFrames = 1024

// Device binds one opened Backend device to a Mixer and owns every
// AudioStream created against it (C10, spec.md §4.8).
type Device struct {
	backend Backend
	handle  DeviceHandle
	spec    AudioSpec
	mixer   *Mixer
	iface   StreamInterface

	mu      sync.Mutex
	streams []*AudioStream
}

// OpenDevice asks backend to open deviceID (empty for the default)
// with desired, records the spec the backend actually obtained,
// constructs a Mixer bound to it, and registers the mixer's callback
// with the backend.
func OpenDevice(backend Backend, deviceID string, desired AudioSpec) (*Device, error) {
	handle, obtained, err := backend.OpenDevice(deviceID, desired)
	if err != nil {
		return nil, fmt.Errorf("musac: opening device: %w", err)
	}

	mixer := NewMixer(obtained)
	iface, err := backend.CreateStream(handle, obtained, mixer.Callback)
	if err != nil {
		backend.CloseDevice(handle)
		return nil, fmt.Errorf("musac: creating device stream: %w", err)
	}

	return &Device{backend: backend, handle: handle, spec: obtained, mixer: mixer, iface: iface}, nil
}

// EnumerateDevices delegates to backend.
func EnumerateDevices(backend Backend, playback bool) []DeviceInfo {
	return backend.EnumerateDevices(playback)
}

// CreateStream moves source into a new AudioStream, opens it against
// the device's spec, and installs it in the mixer in Stopped state
// (Open transitions Closed → Stopped immediately).
func (d *Device) CreateStream(source *AudioSource) (*AudioStream, error) {
	s := NewAudioStream(source)
	if err := s.Open(d.spec, defaultChunkFrames); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	d.mixer.Add(s)
	return s, nil
}

// CreatePCSpeakerStream builds a PCSpeakerStream hosted on this
// device, wrapping the pc-speaker tone generator as a synthetic
// AudioSource.
func (d *Device) CreatePCSpeakerStream() (*PCSpeakerStream, error) {
	return newPCSpeakerStream(d)
}

func (d *Device) Channels() int     { return int(d.spec.Channels) }
func (d *Device) Frequency() uint32 { return d.spec.Rate }
func (d *Device) Name() string      { return d.backend.Name() }

func (d *Device) SetGain(gain float32) {
	d.mixer.SetGain(gain)
	d.backend.SetDeviceGain(d.handle, gain)
}

func (d *Device) Resume() error {
	if err := d.iface.BindToDevice(d.handle); err != nil {
		return err
	}
	if err := d.iface.Resume(); err != nil {
		return err
	}
	return d.backend.ResumeDevice(d.handle)
}

func (d *Device) Pause() error {
	if err := d.iface.Pause(); err != nil {
		return err
	}
	return d.backend.PauseDevice(d.handle)
}

// MuteAll/UnmuteAll/IsAllMuted delegate to the backend when it
// supports hardware mute, otherwise fall back to the mixer zeroing its
// own output (spec.md §4.7's global mute fallback).
func (d *Device) MuteAll() error {
	if d.backend.SupportsMute(d.handle) {
		return d.backend.MuteDevice(d.handle)
	}
	d.mixer.SetMuted(true)
	return nil
}

func (d *Device) UnmuteAll() error {
	if d.backend.SupportsMute(d.handle) {
		return d.backend.UnmuteDevice(d.handle)
	}
	d.mixer.SetMuted(false)
	return nil
}

func (d *Device) IsAllMuted() bool {
	if d.backend.SupportsMute(d.handle) {
		return d.backend.IsDeviceMuted(d.handle)
	}
	return d.muted()
}

func (d *Device) muted() bool {
	d.mixer.regMu.Lock()
	defer d.mixer.regMu.Unlock()
	return d.mixer.muted
}

func (d *Device) HasHardwareMute() bool { return d.backend.SupportsMute(d.handle) }

// Close pauses the device callback and releases the backend device.
func (d *Device) Close() error {
	d.Pause()
	d.iface.UnbindFromDevice()
	return d.backend.CloseDevice(d.handle)
}

func (d *Device) detachStreams() []*AudioStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.streams
	d.streams = nil
	return out
}

// SwitchDevice moves every stream hosted on from onto to, following
// the 5-step sequence of spec.md §4.8: pause the old callback, capture
// and reposition each stream under the old rate, transfer them to the
// new mixer, restore state under the new spec, then resume the new
// device.
func SwitchDevice(from, onto *Device) error {
	if err := from.Pause(); err != nil {
		return err
	}

	streams := from.detachStreams()
	type pending struct {
		stream *AudioStream
		snap   StreamSnapshot
	}
	moved := make([]pending, 0, len(streams))

	oldRate := from.spec.Rate
	for _, s := range streams {
		snap := s.CaptureState()
		if oldRate > 0 {
			s.source.Decoder().SeekToTime(snap.PlaybackTick * 1_000_000 / int64(oldRate))
		}
		moved = append(moved, pending{stream: s, snap: snap})
	}

	for _, p := range moved {
		if err := p.stream.rebind(onto.spec, defaultChunkFrames); err != nil {
			return err
		}
		p.stream.RestoreState(p.snap)
		onto.mu.Lock()
		onto.streams = append(onto.streams, p.stream)
		onto.mu.Unlock()
		onto.mixer.Add(p.stream)
	}

	return onto.Resume()
}
