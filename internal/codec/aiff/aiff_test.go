package aiff

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/musac/internal/iostream"
)

// extended80 encodes rate as an 80-bit IEEE extended float, matching the
// layout AIFF's COMM chunk uses.
func extended80(rate float64) [10]byte {
	var out [10]byte
	if rate == 0 {
		return out
	}
	exp := 0
	mant := rate
	for mant >= 1 {
		mant /= 2
		exp++
	}
	for mant < 0.5 {
		mant *= 2
		exp--
	}
	biased := uint16(exp + 16382)
	mantissa := uint64(mant * (1 << 63) * 2)
	binary.BigEndian.PutUint16(out[0:2], biased)
	binary.BigEndian.PutUint64(out[2:10], mantissa)
	return out
}

func buildCOMM(channels uint16, numFrames uint32, sampleSize uint16, rate float64, compression string) []byte {
	body := make([]byte, 18)
	binary.BigEndian.PutUint16(body[0:2], channels)
	binary.BigEndian.PutUint32(body[2:6], numFrames)
	binary.BigEndian.PutUint16(body[6:8], sampleSize)
	ext := extended80(rate)
	copy(body[8:18], ext[:])
	if compression != "" {
		body = append(body, []byte(compression)...)
		body = append(body, 0) // zero-length pascal name
	}
	return body
}

func buildAIFF(formType string, comm, ssndData []byte) []byte {
	var buf []byte
	buf = append(buf, "FORM"...)
	buf = append(buf, make([]byte, 4)...)
	buf = append(buf, formType...)

	buf = append(buf, "COMM"...)
	sz := make([]byte, 4)
	binary.BigEndian.PutUint32(sz, uint32(len(comm)))
	buf = append(buf, sz...)
	buf = append(buf, comm...)
	if len(comm)&1 == 1 {
		buf = append(buf, 0)
	}

	buf = append(buf, "SSND"...)
	ssnd := make([]byte, 8+len(ssndData))
	copy(ssnd[8:], ssndData)
	binary.BigEndian.PutUint32(sz, uint32(len(ssnd)))
	buf = append(buf, sz...)
	buf = append(buf, ssnd...)
	return buf
}

func TestAIFF_ProbeRejectsNonFORM(t *testing.T) {
	s := iostream.OpenMemory([]byte("definitely not aiff"))
	assert.False(t, Probe(s))
}

func TestAIFF_OpenAndDecodePCM16(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	data := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.BigEndian.PutUint16(data[i*2:], uint16(v))
	}
	comm := buildCOMM(1, uint32(len(samples)), 16, 44100, "")
	raw := buildAIFF("AIFF", comm, data)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	assert.Equal(t, 1, d.Channels())
	assert.EqualValues(t, 44100, d.Rate())

	dst := make([]float32, len(samples))
	n, more := d.Decode(dst, 1)
	assert.Equal(t, len(samples), n)
	assert.False(t, more)
	assert.InDelta(t, 0, dst[0], 1e-4)
	assert.InDelta(t, -1.0, dst[4], 1e-4)
}

func TestAIFF_SowtIsLittleEndian16(t *testing.T) {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(int16(-16384)))
	comm := buildCOMM(1, 1, 16, 22050, "sowt")
	raw := buildAIFF("AIFC", comm, data)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	dst := make([]float32, 1)
	d.Decode(dst, 1)
	assert.InDelta(t, -0.5, dst[0], 1e-4)
}

func TestAIFF_Float32Compression(t *testing.T) {
	data := make([]byte, 8)
	binary.BigEndian.PutUint32(data[0:4], math.Float32bits(0.25))
	binary.BigEndian.PutUint32(data[4:8], math.Float32bits(-0.5))
	comm := buildCOMM(1, 2, 32, 48000, "fl32")
	raw := buildAIFF("AIFC", comm, data)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	dst := make([]float32, 2)
	d.Decode(dst, 1)
	assert.InDelta(t, 0.25, dst[0], 1e-6)
	assert.InDelta(t, -0.5, dst[1], 1e-6)
}

func TestAIFF_IMA4RoundsTripsSilence(t *testing.T) {
	// An all-zero IMA4 packet (predictor=0, index=0, all-zero nibbles)
	// must decode to 64 zero-valued frames.
	packet := make([]byte, 34)
	comm := buildCOMM(1, 64, 16, 11025, "ima4")
	raw := buildAIFF("AIFC", comm, packet)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	dst := make([]float32, 64)
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 64, n)
	for _, v := range dst {
		assert.InDelta(t, 0, v, 1e-6)
	}
}

func TestAIFF_ALawDecodeMatchesG711Zero(t *testing.T) {
	// 0xD5 is A-law's representation of zero.
	data := []byte{0xD5}
	comm := buildCOMM(1, 1, 16, 8000, "ALAW")
	raw := buildAIFF("AIFC", comm, data)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	dst := make([]float32, 1)
	d.Decode(dst, 1)
	assert.InDelta(t, 0, dst[0], 1e-3)
}

func TestAIFF_RewindRestartsDecode(t *testing.T) {
	data := make([]byte, 8)
	comm := buildCOMM(1, 4, 16, 8000, "")
	raw := buildAIFF("AIFF", comm, data)
	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))

	dst := make([]float32, 4)
	d.Decode(dst, 1)
	assert.True(t, d.Rewind())
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 4, n)
}
