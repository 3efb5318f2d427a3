package musac

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// StreamState is one state of an AudioStream's lifecycle (spec.md §3,
// §4.4): Closed → Opening → Stopped ↔ Playing ↔ Paused. Stop moves
// Playing or Paused to Stopped and leaves other states as they are. No
// AudioStream method moves a stream back to Closed; only a failed Open
// leaves it there.
type StreamState int32

const (
	StreamClosed StreamState = iota
	StreamOpening
	StreamStopped
	StreamPlaying
	StreamPaused
)

func (s StreamState) String() string {
	switch s {
	case StreamClosed:
		return "closed"
	case StreamOpening:
		return "opening"
	case StreamStopped:
		return "stopped"
	case StreamPlaying:
		return "playing"
	case StreamPaused:
		return "paused"
	default:
		return "unknown"
	}
}

type fadeState int

const (
	fadeNone fadeState = iota
	fadeIn
	fadeOut
)

// AudioStream is a playable instance wrapping one AudioSource (C8):
// lifecycle state machine, gain/pan/fade/mute, loop/finish callbacks, an
// ordered processor chain, and a state snapshot for device switching.
// Every mutable field is read and written under mu -- a single short
// mutex rather than the spec's atomics-or-spinlock discipline (§5),
// since Go gives no lock-free primitive that covers "copy a dozen
// heterogeneous fields together" any more cheaply than a mutex a pull
// only ever holds for a handful of field reads.
type AudioStream struct {
	mu sync.Mutex

	source     *AudioSource
	resampler  *Resampler
	deviceSpec AudioSpec
	chunkFrame int

	state StreamState

	iterationsRemaining int
	infiniteLoop        bool
	currentIteration    int

	volume float32
	pan    float32
	muted  bool

	fade           fadeState
	fadeGain       float32
	fadeFrameTotal int64
	fadeOutTarget  StreamState

	playbackTick      int64
	playbackStartTick int64

	finishCallback func()
	loopCallback   func()

	processors []Processor
}

// NewAudioStream wraps source in a new, Closed stream.
func NewAudioStream(source *AudioSource) *AudioStream {
	return &AudioStream{
		source:   source,
		state:    StreamClosed,
		volume:   1,
		fadeGain: 1,
	}
}

// Open binds the stream to a device spec and chunk size and moves
// Closed → Stopped. The source's decoder must already be open: Open does
// not open it, and fails with ErrDecoder when it is not.
func (s *AudioStream) Open(deviceSpec AudioSpec, chunkFrames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StreamClosed {
		return nil
	}

	s.state = StreamOpening
	if err := s.bindResamplerLocked(deviceSpec, chunkFrames); err != nil {
		s.state = StreamClosed
		return err
	}
	s.state = StreamStopped
	return nil
}

// rebind reconfigures the resampler for a new device spec without
// touching the lifecycle state, used by SwitchDevice to re-home an
// already Playing/Paused/Stopped stream onto a different device's
// mixer (spec.md §4.8 step 4: "the resampler is automatically
// reinitialized").
func (s *AudioStream) rebind(deviceSpec AudioSpec, chunkFrames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindResamplerLocked(deviceSpec, chunkFrames)
}

func (s *AudioStream) bindResamplerLocked(deviceSpec AudioSpec, chunkFrames int) error {
	dec := s.source.Decoder()
	if !dec.IsOpen() {
		return fmt.Errorf("musac: %w: decoder is not open", ErrDecoder)
	}
	s.deviceSpec = deviceSpec
	s.chunkFrame = chunkFrames
	s.resampler = NewResampler(dec, deviceSpec.Rate, int(deviceSpec.Channels), chunkFrames)
	return nil
}

// Play moves Stopped → Playing (or is equivalent to Resume from Paused,
// or a no-op from Playing). iterations = 0 means loop forever.
func (s *AudioStream) Play(iterations int, fadeIn time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StreamPaused:
		return s.resumeLocked(fadeIn)
	case StreamPlaying:
		return true
	case StreamStopped:
		s.iterationsRemaining = iterations
		s.infiniteLoop = iterations == 0
		s.currentIteration = 1
		s.playbackStartTick = s.playbackTick
		s.setFadeLocked(fadeIn, fadeIn > 0)
		s.state = StreamPlaying
		return true
	default:
		return false
	}
}

// Stop transitions to Stopped, rewinding the decoder and firing the
// finish callback once the transition completes. With fadeOut > 0 the
// transition is deferred until the fade-out envelope reaches zero gain
// inside Pull.
func (s *AudioStream) Stop(fadeOut time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StreamPlaying && s.state != StreamPaused {
		return
	}
	if fadeOut > 0 {
		s.setFadeLocked(fadeOut, false)
		s.fadeOutTarget = StreamStopped
		return
	}
	s.finishLocked()
}

// Pause transitions Playing → Paused, optionally fading out first;
// the playback tick freezes once Paused.
func (s *AudioStream) Pause(fadeOut time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StreamPlaying {
		return
	}
	if fadeOut > 0 {
		s.setFadeLocked(fadeOut, false)
		s.fadeOutTarget = StreamPaused
		return
	}
	s.state = StreamPaused
}

// Resume transitions Paused → Playing, optionally fading in.
func (s *AudioStream) Resume(fadeIn time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeLocked(fadeIn)
}

func (s *AudioStream) resumeLocked(fadeIn time.Duration) bool {
	if s.state != StreamPaused {
		return s.state == StreamPlaying
	}
	s.setFadeLocked(fadeIn, fadeIn > 0)
	s.state = StreamPlaying
	return true
}

// Rewind forwards to the decoder and resets the playback tick.
func (s *AudioStream) Rewind() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.source.Decoder().Rewind()
	if s.resampler != nil {
		s.resampler.DiscardPendingSamples()
	}
	s.playbackTick = 0
	return ok
}

func (s *AudioStream) SetVolume(v float32) {
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

func (s *AudioStream) Volume() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetStereoPosition sets attenuation-only panning in [-1, 1]: negative
// values attenuate the right channel by (1+p), positive values
// attenuate the left channel by (1-p). No cross-mixing occurs.
func (s *AudioStream) SetStereoPosition(p float32) {
	s.mu.Lock()
	s.pan = clampFloat(p, -1, 1)
	s.mu.Unlock()
}

func (s *AudioStream) StereoPosition() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pan
}

func (s *AudioStream) Mute()         { s.mu.Lock(); s.muted = true; s.mu.Unlock() }
func (s *AudioStream) Unmute()       { s.mu.Lock(); s.muted = false; s.mu.Unlock() }
func (s *AudioStream) IsMuted() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.muted }

// IsPlaying reports true in both Playing and Paused.
func (s *AudioStream) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StreamPlaying || s.state == StreamPaused
}

func (s *AudioStream) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StreamPaused
}

func (s *AudioStream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Duration delegates to the decoder.
func (s *AudioStream) Duration() int64 { return s.source.Decoder().Duration() }

// SeekToTime delegates to the decoder and resets the playback tick on
// success.
func (s *AudioStream) SeekToTime(microseconds int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.source.Decoder().SeekToTime(microseconds) {
		return false
	}
	if s.resampler != nil {
		s.resampler.DiscardPendingSamples()
	}
	s.playbackTick = int64(microseconds) * int64(s.deviceSpec.Rate) / 1_000_000
	return true
}

func (s *AudioStream) SetFinishCallback(f func()) {
	s.mu.Lock()
	s.finishCallback = f
	s.mu.Unlock()
}

func (s *AudioStream) RemoveFinishCallback() { s.SetFinishCallback(nil) }

func (s *AudioStream) SetLoopCallback(f func()) {
	s.mu.Lock()
	s.loopCallback = f
	s.mu.Unlock()
}

func (s *AudioStream) RemoveLoopCallback() { s.SetLoopCallback(nil) }

// AddProcessor appends p to the end of the processor chain.
func (s *AudioStream) AddProcessor(p Processor) {
	s.mu.Lock()
	s.processors = append(s.processors, p)
	s.mu.Unlock()
}

// RemoveProcessor removes the first occurrence of p, preserving the
// insertion order of the rest. Function processors (ProcessorFunc) are
// matched by their code pointer.
func (s *AudioStream) RemoveProcessor(p Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pt := reflect.TypeOf(p)
	for i, existing := range s.processors {
		if reflect.TypeOf(existing) != pt {
			continue
		}
		var same bool
		switch {
		case pt != nil && pt.Kind() == reflect.Func:
			same = reflect.ValueOf(existing).Pointer() == reflect.ValueOf(p).Pointer()
		case pt == nil || pt.Comparable():
			same = existing == p
		}
		if same {
			s.processors = append(s.processors[:i], s.processors[i+1:]...)
			return
		}
	}
}

func (s *AudioStream) ClearProcessors() {
	s.mu.Lock()
	s.processors = nil
	s.mu.Unlock()
}

// StreamSnapshot is the state captured by CaptureState and written back
// by RestoreState when a stream is transferred to a new device's mixer
// (spec.md §4.6.3).
type StreamSnapshot struct {
	PlaybackTick      int64
	Volume            float32
	Pan               float32
	Muted             bool
	Fade              fadeState
	FadeGain          float32
	FadeFrameTotal    int64
	IterationsLeft    int
	InfiniteLoop      bool
	CurrentIteration  int
	PlaybackStartTick int64
	State             StreamState
}

// CaptureState atomically copies every field a device switch needs to
// preserve.
func (s *AudioStream) CaptureState() StreamSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StreamSnapshot{
		PlaybackTick:      s.playbackTick,
		Volume:            s.volume,
		Pan:               s.pan,
		Muted:             s.muted,
		Fade:              s.fade,
		FadeGain:          s.fadeGain,
		FadeFrameTotal:    s.fadeFrameTotal,
		IterationsLeft:    s.iterationsRemaining,
		InfiniteLoop:      s.infiniteLoop,
		CurrentIteration:  s.currentIteration,
		PlaybackStartTick: s.playbackStartTick,
		State:             s.state,
	}
}

// RestoreState writes snap back into the stream after it has been
// re-bound to a new device's mixer (Open must be called first with the
// new device's spec so the decoder has already been repositioned via
// SeekToTime(snapshot.PlaybackTick / old_rate)).
func (s *AudioStream) RestoreState(snap StreamSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbackTick = snap.PlaybackTick
	s.volume = snap.Volume
	s.pan = snap.Pan
	s.muted = snap.Muted
	s.fade = snap.Fade
	s.fadeGain = snap.FadeGain
	s.fadeFrameTotal = snap.FadeFrameTotal
	s.iterationsRemaining = snap.IterationsLeft
	s.infiniteLoop = snap.InfiniteLoop
	s.currentIteration = snap.CurrentIteration
	s.playbackStartTick = snap.PlaybackStartTick
	s.state = snap.State
}

// Pull implements the mixer's per-stream pull protocol (spec.md
// §4.6.2): it fills dst (n_frames * device channel count samples),
// padding any shortfall with silence, and returns the number of frames
// written (0 when the stream is not Playing).
func (s *AudioStream) Pull(dst []float32, nFrames int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StreamStopped || s.state == StreamClosed || s.state == StreamOpening {
		return 0
	}
	if s.state == StreamPaused {
		return 0
	}

	channels := int(s.deviceSpec.Channels)
	want := nFrames * channels
	if len(dst) < want {
		want = len(dst)
	}

	produced := 0
	for produced < want {
		n, eof := s.resampler.Pull(dst[produced:want])
		produced += n
		if produced >= want {
			break
		}
		if !eof {
			break
		}
		if !s.handleIterationEndLocked() {
			break
		}
	}
	for i := produced; i < want; i++ {
		dst[i] = 0
	}
	if produced < want {
		produced = want
	}

	s.runProcessorsLocked(dst[:want], channels)
	s.advanceFadeLocked(want / max1(channels))
	s.applyGainPanMuteLocked(dst[:want], channels)

	s.playbackTick += int64(want / max1(channels))
	return produced / max1(channels)
}

// handleIterationEndLocked runs when the resampler reports end of
// stream mid-pull: either the decoder rewinds for another iteration
// (firing the loop callback, returning true so Pull keeps filling from
// the rewound source) or the stream stops (firing the finish
// callback, returning false so the rest of the buffer is left silent).
func (s *AudioStream) handleIterationEndLocked() bool {
	if !s.infiniteLoop {
		s.iterationsRemaining--
	}

	if s.infiniteLoop || s.iterationsRemaining > 0 {
		if cb := s.loopCallback; cb != nil {
			cb()
		}
		s.source.Decoder().Rewind()
		s.resampler.DiscardPendingSamples()
		s.currentIteration++
		return true
	}

	s.finishLocked()
	return false
}

func (s *AudioStream) runProcessorsLocked(buf []float32, channels int) {
	for _, p := range s.processors {
		p.Process(buf, channels)
	}
}

func (s *AudioStream) advanceFadeLocked(frames int) {
	if s.fade == fadeNone || s.fadeFrameTotal <= 0 {
		return
	}
	step := float32(frames) / float32(s.fadeFrameTotal)
	switch s.fade {
	case fadeIn:
		s.fadeGain += step
		if s.fadeGain >= 1 {
			s.fadeGain = 1
			s.fade = fadeNone
		}
	case fadeOut:
		s.fadeGain -= step
		if s.fadeGain <= 0 {
			s.fadeGain = 0
			s.fade = fadeNone
			if s.fadeOutTarget == StreamPaused {
				s.state = StreamPaused
			} else {
				s.finishLocked()
			}
		}
	}
}

func (s *AudioStream) applyGainPanMuteLocked(buf []float32, channels int) {
	gain := s.volume * s.fadeGain
	if s.muted {
		gain = 0
	}

	left, right := float32(1), float32(1)
	if channels >= 2 {
		switch {
		case s.pan < 0:
			right = 1 + s.pan
		case s.pan > 0:
			left = 1 - s.pan
		}
	}

	for frame := 0; frame*channels < len(buf); frame++ {
		base := frame * channels
		for c := 0; c < channels; c++ {
			v := buf[base+c] * gain
			switch c {
			case 0:
				v *= left
			case 1:
				v *= right
			}
			buf[base+c] = v
		}
	}
}

func (s *AudioStream) finishLocked() {
	s.source.Decoder().Rewind()
	if s.resampler != nil {
		s.resampler.DiscardPendingSamples()
	}
	s.state = StreamStopped
	s.playbackTick = 0
	if cb := s.finishCallback; cb != nil {
		cb()
	}
}

func (s *AudioStream) setFadeLocked(d time.Duration, fadingIn bool) {
	if d <= 0 {
		s.fade = fadeNone
		s.fadeGain = 1
		return
	}
	s.fadeFrameTotal = durationToFrames(d, s.deviceSpec.Rate)
	if fadingIn {
		s.fade = fadeIn
		s.fadeGain = 0
	} else {
		s.fade = fadeOut
	}
}

func durationToFrames(d time.Duration, rate uint32) int64 {
	return int64(d.Seconds() * float64(rate))
}

func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
