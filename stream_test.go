package musac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecoder is a minimal in-memory Decoder for exercising
// AudioStream/Resampler/Mixer without any real codec or I/O.
type fakeDecoder struct {
	samples  []float32
	channels int
	rate     uint32
	pos      int
	open     bool
	rewinds  int
}

func newFakeDecoder(samples []float32, channels int, rate uint32) *fakeDecoder {
	return &fakeDecoder{samples: samples, channels: channels, rate: rate, open: true}
}

func (d *fakeDecoder) Open(stream Stream) error { d.open = true; return nil }

func (d *fakeDecoder) Decode(dst []float32, deviceChannels int) (int, bool) {
	if d.pos >= len(d.samples) {
		return 0, false
	}
	n := copy(dst, d.samples[d.pos:])
	d.pos += n
	return n, false
}

func (d *fakeDecoder) Rewind() bool {
	d.pos = 0
	d.rewinds++
	return true
}

func (d *fakeDecoder) SeekToTime(microseconds int64) bool {
	frame := microseconds * int64(d.rate) / 1_000_000
	d.pos = int(frame) * d.channels
	if d.pos > len(d.samples) {
		d.pos = len(d.samples)
	}
	return true
}

func (d *fakeDecoder) Duration() int64 {
	frames := len(d.samples) / d.channels
	return int64(frames) * 1_000_000 / int64(d.rate)
}

func (d *fakeDecoder) Channels() int { return d.channels }
func (d *fakeDecoder) Rate() uint32  { return d.rate }
func (d *fakeDecoder) Name() string  { return "fake" }
func (d *fakeDecoder) IsOpen() bool  { return d.open }

func newTestStream(t *testing.T, samples []float32, channels int, rate uint32) (*AudioStream, *fakeDecoder) {
	t.Helper()
	dec := newFakeDecoder(samples, channels, rate)
	src := NewSyntheticSource(dec)
	s := NewAudioStream(src)
	require.NoError(t, s.Open(AudioSpec{Format: F32LE, Channels: uint8(channels), Rate: rate}, 64))
	return s, dec
}

func TestAudioStream_OpenMovesClosedToStopped(t *testing.T) {
	s, _ := newTestStream(t, make([]float32, 8), 1, 8000)
	assert.Equal(t, StreamStopped, s.State())
}

func TestAudioStream_PlayThenPullProducesSamples(t *testing.T) {
	samples := []float32{0.5, 0.5, 0.25, 0.25}
	s, _ := newTestStream(t, samples, 1, 8000)
	assert.True(t, s.Play(1, 0))
	assert.True(t, s.IsPlaying())

	dst := make([]float32, 4)
	n := s.Pull(dst, 4)
	assert.Equal(t, 4, n)
	assert.Equal(t, samples, dst)
}

func TestAudioStream_SingleIterationStopsAndFiresFinish(t *testing.T) {
	samples := []float32{1, 1, 1, 1}
	s, dec := newTestStream(t, samples, 1, 8000)

	finished := false
	s.SetFinishCallback(func() { finished = true })
	s.Play(1, 0)

	dst := make([]float32, 8)
	s.Pull(dst, 8)

	assert.True(t, finished)
	assert.Equal(t, StreamStopped, s.State())
	assert.Equal(t, 1, dec.rewinds)
	assert.False(t, s.IsPlaying())
}

func TestAudioStream_LoopingFiresLoopCallbackAndContinues(t *testing.T) {
	samples := make([]float32, 20)
	for i := range samples {
		samples[i] = 1
	}
	s, dec := newTestStream(t, samples, 1, 8000)

	loops := 0
	finished := false
	s.SetLoopCallback(func() { loops++ })
	s.SetFinishCallback(func() { finished = true })
	s.Play(3, 0)

	// How many partial Pull calls a full iteration takes depends on the
	// resampler's internal chunking, not on iteration counting itself --
	// so pull repeatedly with a generous margin rather than asserting a
	// fixed call count.
	dst := make([]float32, 8)
	for i := 0; i < 50 && !finished; i++ {
		s.Pull(dst, 8)
	}

	assert.True(t, finished)
	assert.Equal(t, StreamStopped, s.State())
	assert.Equal(t, 2, loops, "loop callback fires once per rewind before the final iteration, not on the last")
	assert.GreaterOrEqual(t, dec.rewinds, 3)
}

func TestAudioStream_InfiniteLoopNeverStops(t *testing.T) {
	samples := make([]float32, 10)
	for i := range samples {
		samples[i] = 1
	}
	s, dec := newTestStream(t, samples, 1, 8000)
	s.Play(0, 0)

	dst := make([]float32, 8)
	for i := 0; i < 30; i++ {
		s.Pull(dst, 8)
	}
	assert.True(t, s.IsPlaying())
	assert.Greater(t, dec.rewinds, 0)
}

func TestAudioStream_PauseFreezesPlaybackAndResumeContinues(t *testing.T) {
	samples := []float32{1, 1, 1, 1, 1, 1}
	s, _ := newTestStream(t, samples, 1, 8000)
	s.Play(1, 0)

	dst := make([]float32, 2)
	s.Pull(dst, 2)

	s.Pause(0)
	assert.True(t, s.IsPaused())
	n := s.Pull(dst, 2)
	assert.Equal(t, 0, n, "a paused stream produces silence by not being pulled")

	assert.True(t, s.Resume(0))
	assert.False(t, s.IsPaused())
	n = s.Pull(dst, 2)
	assert.Equal(t, 2, n)
}

func TestAudioStream_StopRewindsAndFiresFinishImmediately(t *testing.T) {
	s, dec := newTestStream(t, []float32{1, 1, 1, 1}, 1, 8000)
	finished := false
	s.SetFinishCallback(func() { finished = true })

	s.Play(1, 0)
	s.Stop(0)

	assert.True(t, finished)
	assert.Equal(t, StreamStopped, s.State())
	assert.Equal(t, 1, dec.rewinds)
}

func TestAudioStream_VolumeMuteAndStereoPosition(t *testing.T) {
	samples := []float32{1, 1, 1, 1}
	s, _ := newTestStream(t, samples, 2, 8000)
	s.Play(1, 0)

	s.SetVolume(0.5)
	s.SetStereoPosition(-1) // silence the right channel entirely
	dst := make([]float32, 4)
	s.Pull(dst, 2)
	assert.InDelta(t, 0.5, dst[0], 1e-6)
	assert.InDelta(t, 0, dst[1], 1e-6)

	s.Mute()
	assert.True(t, s.IsMuted())
}

func TestAudioStream_AddAndRemoveProcessor(t *testing.T) {
	s, _ := newTestStream(t, []float32{1, 1}, 1, 8000)
	s.Play(1, 0)

	calls := 0
	p := ProcessorFunc(func(samples []float32, channels int) { calls++ })
	s.AddProcessor(p)

	dst := make([]float32, 2)
	s.Pull(dst, 2)
	assert.Equal(t, 1, calls)

	s.RemoveProcessor(p)
	s.Play(1, 0)
	s.Pull(dst, 2)
	assert.Equal(t, 1, calls, "processor no longer runs once removed")
}

func TestAudioStream_CaptureAndRestoreState(t *testing.T) {
	s, _ := newTestStream(t, []float32{1, 1, 1, 1}, 1, 8000)
	s.Play(1, 0)
	s.SetVolume(0.25)
	s.SetStereoPosition(0.5)
	s.Mute()

	snap := s.CaptureState()
	assert.Equal(t, float32(0.25), snap.Volume)
	assert.Equal(t, float32(0.5), snap.Pan)
	assert.True(t, snap.Muted)

	s2, _ := newTestStream(t, []float32{0, 0, 0, 0}, 1, 8000)
	s2.RestoreState(snap)
	assert.Equal(t, float32(0.25), s2.Volume())
	assert.Equal(t, float32(0.5), s2.StereoPosition())
	assert.True(t, s2.IsMuted())
}
