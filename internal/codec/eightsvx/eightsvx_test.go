package eightsvx

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/musac/internal/iostream"
)

func buildVHDR(oneShot, repeat uint32, rate uint16, compression uint8) []byte {
	vhdr := make([]byte, 20)
	binary.BigEndian.PutUint32(vhdr[0:4], oneShot)
	binary.BigEndian.PutUint32(vhdr[4:8], repeat)
	binary.BigEndian.PutUint32(vhdr[8:12], 0)
	binary.BigEndian.PutUint16(vhdr[12:14], rate)
	vhdr[14] = 0
	vhdr[15] = compression
	binary.BigEndian.PutUint32(vhdr[16:20], 1<<16) // volume = 1.0 in 16.16
	return vhdr
}

func build8SVX(vhdr, body []byte) []byte {
	var buf []byte
	buf = append(buf, "FORM"...)
	buf = append(buf, make([]byte, 4)...)
	buf = append(buf, "8SVX"...)

	buf = append(buf, "VHDR"...)
	sz := make([]byte, 4)
	binary.BigEndian.PutUint32(sz, uint32(len(vhdr)))
	buf = append(buf, sz...)
	buf = append(buf, vhdr...)

	buf = append(buf, "BODY"...)
	binary.BigEndian.PutUint32(sz, uint32(len(body)))
	buf = append(buf, sz...)
	buf = append(buf, body...)
	if len(body)&1 == 1 {
		buf = append(buf, 0)
	}
	return buf
}

func TestEightSVX_ProbeRejectsOther(t *testing.T) {
	s := iostream.OpenMemory([]byte("FORM0000AIFF"))
	assert.False(t, Probe(s))
}

func TestEightSVX_UncompressedRoundTrip(t *testing.T) {
	body := []byte{0, 64, 128, 192, 255} // signed: 0, 64, -128, -64, -1
	vhdr := buildVHDR(uint32(len(body)), 0, 8000, 0)
	raw := build8SVX(vhdr, body)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	assert.Equal(t, 1, d.Channels())
	assert.EqualValues(t, 8000, d.Rate())

	dst := make([]float32, len(body))
	n, more := d.Decode(dst, 1)
	assert.Equal(t, len(body), n)
	assert.False(t, more)
	assert.InDelta(t, 0, dst[0], 1e-6)
	assert.InDelta(t, float32(-1)/128, dst[4], 1e-6)
}

func TestEightSVX_FibonacciDeltaAccumulates(t *testing.T) {
	// High nibble 9 -> table[9]=1, low nibble 9 -> table[9]=1: current
	// goes 0 -> 1 -> 2.
	body := []byte{0x99}
	vhdr := buildVHDR(2, 0, 11025, 1)
	raw := build8SVX(vhdr, body)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	dst := make([]float32, 2)
	d.Decode(dst, 1)
	assert.InDelta(t, float32(1)/128, dst[0], 1e-6)
	assert.InDelta(t, float32(2)/128, dst[1], 1e-6)
}

func TestEightSVX_DurationUsesOneShotPlusRepeat(t *testing.T) {
	vhdr := buildVHDR(100, 50, 1000, 0)
	raw := build8SVX(vhdr, make([]byte, 150))
	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	assert.EqualValues(t, 150_000, d.Duration())
}

func TestEightSVX_RewindRestartsCursor(t *testing.T) {
	vhdr := buildVHDR(4, 0, 8000, 0)
	raw := build8SVX(vhdr, make([]byte, 4))
	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))

	dst := make([]float32, 4)
	d.Decode(dst, 1)
	assert.True(t, d.Rewind())
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 4, n)
}
