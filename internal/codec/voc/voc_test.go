package voc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/musac/internal/iostream"
)

func buildHeader() []byte {
	var buf []byte
	buf = append(buf, magic...)
	offsetBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(offsetBuf, 26) // header(20) + magic len already includes, + 2-byte offset field + version(2) + checksum(2)
	buf = append(buf, offsetBuf...)
	buf = append(buf, 0, 0, 0, 0) // version + checksum placeholder, brings us to offset 26
	return buf
}

func buildDataBlock(rateByte, codec byte, payload []byte) []byte {
	var buf []byte
	buf = append(buf, blockData)
	size := len(payload) + 2
	buf = append(buf, byte(size), byte(size>>8), byte(size>>16))
	buf = append(buf, rateByte, codec)
	buf = append(buf, payload...)
	return buf
}

func TestVOC_ProbeRejectsOther(t *testing.T) {
	s := iostream.OpenMemory([]byte("not a voc file at all here"))
	assert.False(t, Probe(s))
}

func TestVOC_PCM8RoundTrip(t *testing.T) {
	raw := buildHeader()
	raw = append(raw, buildDataBlock(0x9C, codecPCM8, []byte{128, 192, 64})...)
	raw = append(raw, blockTerm)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))
	assert.Equal(t, 1, d.Channels())

	dst := make([]float32, 3)
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 3, n)
	assert.InDelta(t, 0, dst[0], 1e-6)
}

func TestVOC_PCM16RoundTrip(t *testing.T) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], uint16(int16(1000)))
	binary.LittleEndian.PutUint16(payload[2:4], uint16(int16(-1000)))

	raw := buildHeader()
	raw = append(raw, buildDataBlock(0x9C, codecPCM16, payload)...)
	raw = append(raw, blockTerm)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))

	dst := make([]float32, 2)
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 2, n)
	assert.InDelta(t, float32(1000)/32768, dst[0], 1e-6)
	assert.InDelta(t, float32(-1000)/32768, dst[1], 1e-6)
}

func TestVOC_SilenceBlockEmitsZeros(t *testing.T) {
	raw := buildHeader()
	// VOC_SILENCE: period(2 LE) + rate byte
	var block []byte
	block = append(block, blockSilence)
	block = append(block, 3, 0, 0) // size=3
	period := make([]byte, 2)
	binary.LittleEndian.PutUint16(period, 4)
	block = append(block, period...)
	block = append(block, 0x9C)
	raw = append(raw, block...)
	raw = append(raw, blockTerm)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))

	dst := make([]float32, 4)
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 4, n)
	for _, v := range dst {
		assert.Zero(t, v)
	}
}

func TestVOC_ADPCM4BitExpandsToTwoSamplesPerByte(t *testing.T) {
	raw := buildHeader()
	raw = append(raw, buildDataBlock(0x9C, codecADPCM4, []byte{0x00, 0xFF})...)
	raw = append(raw, blockTerm)

	s := iostream.OpenMemory(raw)
	d := New()
	require.NoError(t, d.Open(s))

	dst := make([]float32, 4)
	n, _ := d.Decode(dst, 1)
	assert.Equal(t, 4, n)
}

func TestVOC_UnsupportedCodecRejected(t *testing.T) {
	raw := buildHeader()
	raw = append(raw, buildDataBlock(0x9C, 5, []byte{0x00})...)
	raw = append(raw, blockTerm)

	s := iostream.OpenMemory(raw)
	err := New().Open(s)
	assert.ErrorIs(t, err, ErrUnsupported)
}
