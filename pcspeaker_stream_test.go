package musac_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	musac "github.com/kelindar/musac"
	"github.com/kelindar/musac/mock"
)

func newPCSpeakerTestDevice(t *testing.T) *musac.Device {
	t.Helper()
	backend := mock.New(testDeviceInfo())
	require.NoError(t, backend.Init())
	d, err := musac.OpenDevice(backend, "", musac.AudioSpec{Format: musac.F32LE, Channels: 1, Rate: 8000})
	require.NoError(t, err)
	require.NoError(t, d.Resume())
	return d
}

func TestPCSpeakerStream_BeepQueuesOnPlayingStream(t *testing.T) {
	d := newPCSpeakerTestDevice(t)
	p, err := d.CreatePCSpeakerStream()
	require.NoError(t, err)
	assert.True(t, p.IsPlaying(), "the decoder's call_again contract requires the stream to be actively playing")

	p.Beep(440)

	assert.Equal(t, "mock", d.Name())
}

func TestPCSpeakerStream_SoundAndSilenceQueueWithoutError(t *testing.T) {
	d := newPCSpeakerTestDevice(t)
	p, err := d.CreatePCSpeakerStream()
	require.NoError(t, err)

	p.Sound(880, 50*time.Millisecond)
	p.Silence(20 * time.Millisecond)
	p.ClearQueue()
	// ClearQueue must not panic or break subsequent playback.
	p.Beep(0)
	assert.True(t, p.IsPlaying())
}

func TestPCSpeakerStream_PlayMMLStrictRejectsUnknownCommand(t *testing.T) {
	d := newPCSpeakerTestDevice(t)
	p, err := d.CreatePCSpeakerStream()
	require.NoError(t, err)

	err = p.PlayMML("Z", true)
	assert.Error(t, err, "strict mode surfaces a malformed command as an error")
}

func TestPCSpeakerStream_PlayMMLNonStrictWarnsAndContinues(t *testing.T) {
	d := newPCSpeakerTestDevice(t)
	p, err := d.CreatePCSpeakerStream()
	require.NoError(t, err)

	err = p.PlayMML("CZDE", false)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Warnings(), "the unknown Z command should be recorded as a warning")
}

func TestPCSpeakerStream_PlayMMLValidTuneHasNoWarnings(t *testing.T) {
	d := newPCSpeakerTestDevice(t)
	p, err := d.CreatePCSpeakerStream()
	require.NoError(t, err)

	err = p.PlayMML("CDEFGAB", false)
	require.NoError(t, err)
	assert.Empty(t, p.Warnings())
}
