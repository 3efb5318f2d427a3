package pcspeaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/musac/internal/iostream"
)

func TestDecoder_SilentWhenQueueEmpty(t *testing.T) {
	q := &Queue{}
	d := New(q)
	require.NoError(t, d.Open(iostream.OpenMemory(nil)))

	dst := make([]float32, 200)
	n, more := d.Decode(dst, 2)
	assert.Equal(t, 200, n)
	assert.True(t, more, "an empty queue must keep the stream alive for more tones")
	for _, v := range dst {
		assert.Equal(t, float32(0), v)
	}
}

func TestDecoder_PlaysQueuedToneAsSquareWave(t *testing.T) {
	q := &Queue{}
	q.Push(Tone{FrequencyHz: 440, Duration: 50 * time.Millisecond})
	d := New(q)
	require.NoError(t, d.Open(iostream.OpenMemory(nil)))

	dst := make([]float32, 4410) // 2205 stereo frames at 44100Hz = 50ms
	n, _ := d.Decode(dst, 2)
	assert.Equal(t, 4410, n)

	var sawPositive, sawNegative bool
	for i := 0; i < n; i += 2 {
		assert.Equal(t, dst[i], dst[i+1], "mono source duplicated across stereo channels")
		switch {
		case dst[i] > 0:
			sawPositive = true
		case dst[i] < 0:
			sawNegative = true
		}
	}
	assert.True(t, sawPositive)
	assert.True(t, sawNegative)
}

func TestDecoder_DurationAlwaysZero(t *testing.T) {
	d := New(&Queue{})
	require.NoError(t, d.Open(iostream.OpenMemory(nil)))
	assert.Equal(t, int64(0), d.Duration())
	assert.False(t, d.SeekToTime(1000))
}

func TestDecoder_RewindClearsGeneratorState(t *testing.T) {
	q := &Queue{}
	q.Push(Tone{FrequencyHz: 1000, Duration: 100 * time.Millisecond})
	d := New(q)
	require.NoError(t, d.Open(iostream.OpenMemory(nil)))

	dst := make([]float32, 200)
	d.Decode(dst, 2)
	assert.True(t, d.Rewind())
	assert.Equal(t, float32(0), d.phase)
}

func TestQueue_ClearAndEmpty(t *testing.T) {
	q := &Queue{}
	q.Push(Tone{FrequencyHz: 100, Duration: time.Millisecond})
	assert.False(t, q.Empty())
	assert.Equal(t, 1, q.Len())
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_TryPopReturnsToneWhenUncontended(t *testing.T) {
	q := &Queue{}
	q.Push(Tone{FrequencyHz: 220, Duration: time.Millisecond})

	tone, ok, acquired := q.TryPop()
	assert.True(t, acquired)
	assert.True(t, ok)
	assert.Equal(t, float32(220), tone.FrequencyHz)
}

func TestQueue_TryPopFailsAcquireUnderContention(t *testing.T) {
	q := &Queue{}
	q.Push(Tone{FrequencyHz: 220, Duration: time.Millisecond})

	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok, acquired := q.TryPop()
	assert.False(t, acquired, "a held lock must fail TryLock rather than block")
	assert.False(t, ok)
}

func TestDecoder_DecodeEmitsSilenceWhenQueueLockIsHeld(t *testing.T) {
	q := &Queue{}
	q.Push(Tone{FrequencyHz: 1000, Duration: 50 * time.Millisecond})
	d := New(q)
	require.NoError(t, d.Open(iostream.OpenMemory(nil)))

	q.mu.Lock()
	dst := make([]float32, 200)
	n, more := d.Decode(dst, 2)
	q.mu.Unlock()

	assert.Equal(t, 200, n)
	assert.True(t, more)
	for _, v := range dst {
		assert.Equal(t, float32(0), v)
	}
}
