package wav

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/musac/internal/iostream"
	"github.com/kelindar/musac/internal/pcm"
)

func buildWAV(format uint16, channels uint16, rate uint32, bits uint16, data []byte) []byte {
	fmtBody := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtBody[0:2], format)
	binary.LittleEndian.PutUint16(fmtBody[2:4], channels)
	binary.LittleEndian.PutUint32(fmtBody[4:8], rate)
	blockAlign := channels * (bits / 8)
	binary.LittleEndian.PutUint32(fmtBody[8:12], rate*uint32(blockAlign))
	binary.LittleEndian.PutUint16(fmtBody[12:14], blockAlign)
	binary.LittleEndian.PutUint16(fmtBody[14:16], bits)

	var buf []byte
	buf = append(buf, "RIFF"...)
	buf = append(buf, make([]byte, 4)...) // riff size, unused by decoder
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	sz := make([]byte, 4)
	binary.LittleEndian.PutUint32(sz, uint32(len(fmtBody)))
	buf = append(buf, sz...)
	buf = append(buf, fmtBody...)

	buf = append(buf, "data"...)
	binary.LittleEndian.PutUint32(sz, uint32(len(data)))
	buf = append(buf, sz...)
	buf = append(buf, data...)
	return buf
}

func TestWAV_ProbeRejectsNonRIFF(t *testing.T) {
	s := iostream.OpenMemory([]byte("not a wav file at all"))
	assert.False(t, Probe(s))
}

func TestWAV_OpenAndDecodePCM16(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	data := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	raw := buildWAV(tagPCM, 1, 44100, 16, data)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	assert.Equal(t, 1, d.Channels())
	assert.EqualValues(t, 44100, d.Rate())
	assert.True(t, d.IsOpen())

	dst := make([]float32, len(samples))
	n, more := d.Decode(dst, 1)
	assert.Equal(t, len(samples), n)
	assert.False(t, more)
	assert.InDelta(t, 0, dst[0], 1e-6)
	assert.InDelta(t, -1.0, dst[4], 1e-6)
}

func TestWAV_RewindRestartsDecode(t *testing.T) {
	data := make([]byte, 8)
	raw := buildWAV(tagPCM, 1, 8000, 16, data)
	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))

	dst := make([]float32, 4)
	d.Decode(dst, 1)
	assert.True(t, d.Rewind())
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 4, n)
}

func TestWAV_UnsupportedTagRejected(t *testing.T) {
	raw := buildWAV(99, 1, 8000, 16, make([]byte, 4))
	s := iostream.OpenMemory(raw)
	err := New().Open(s)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestWAV_DurationMatchesSampleCount(t *testing.T) {
	// 8000 Hz, mono, 16-bit: 8000 samples = exactly 1 second.
	data := make([]byte, 8000*2)
	raw := buildWAV(tagPCM, 1, 8000, 16, data)
	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	assert.EqualValues(t, 1_000_000, d.Duration())
}

func TestWAV_FormatChunkFloat32(t *testing.T) {
	raw := buildWAV(tagFloat, 2, 48000, 32, make([]byte, 16))
	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	assert.Equal(t, pcm.F32LE, d.format)
}
