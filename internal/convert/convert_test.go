package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/musac/internal/pcm"
)

func specOf(f pcm.Format, ch uint8, rate uint32) pcm.Spec {
	return pcm.Spec{Format: f, Channels: ch, Rate: rate}
}

func TestConvert_Identity(t *testing.T) {
	spec := specOf(pcm.S16LE, 2, 44100)
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out, err := Convert(spec, src, spec)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestConvert_U8ToS16LE_SeedScenario(t *testing.T) {
	src := []byte{0, 64, 128, 192, 255}
	out, err := Convert(specOf(pcm.U8, 1, 8000), src, specOf(pcm.S16LE, 1, 8000))
	require.NoError(t, err)

	want := []int16{-32768, -16384, 0, 16384, 32512}
	for i, w := range want {
		got := int16(uint16(out[i*2]) | uint16(out[i*2+1])<<8)
		assert.Equal(t, w, got, "sample %d", i)
	}
}

func TestConvert_EndianSwapRoundTrip(t *testing.T) {
	src := []byte{0x02, 0x01, 0x04, 0x03}
	be, err := Convert(specOf(pcm.S16LE, 2, 44100), src, specOf(pcm.S16BE, 2, 44100))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, be)

	back, err := Convert(specOf(pcm.S16BE, 2, 44100), be, specOf(pcm.S16LE, 2, 44100))
	require.NoError(t, err)
	assert.Equal(t, src, back)
}

func TestConvert_MonoToStereoDuplication(t *testing.T) {
	src := []byte{100, 0, 200, 0, 300 & 0xff, 300 >> 8}
	out, err := Convert(specOf(pcm.S16LE, 1, 44100), src, specOf(pcm.S16LE, 2, 44100))
	require.NoError(t, err)

	want := []int16{100, 100, 200, 200, 300, 300}
	for i, w := range want {
		got := int16(uint16(out[i*2]) | uint16(out[i*2+1])<<8)
		assert.Equal(t, w, got)
	}
}

func TestConvert_StereoToMonoAverage(t *testing.T) {
	frames := []int16{1000, 2000, 3000, 4000, -1000, 1000}
	src := make([]byte, len(frames)*2)
	for i, v := range frames {
		src[i*2] = byte(uint16(v))
		src[i*2+1] = byte(uint16(v) >> 8)
	}
	out, err := Convert(specOf(pcm.S16LE, 2, 44100), src, specOf(pcm.S16LE, 1, 44100))
	require.NoError(t, err)

	want := []int16{1500, 3500, 0}
	for i, w := range want {
		got := int16(uint16(out[i*2]) | uint16(out[i*2+1])<<8)
		assert.Equal(t, w, got)
	}
}

func TestConvert_EmptyInput(t *testing.T) {
	out, err := Convert(specOf(pcm.S16LE, 2, 44100), nil, specOf(pcm.U8, 1, 8000))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestConvert_UnsupportedChannelRemix(t *testing.T) {
	src := make([]byte, 4*6)
	_, err := Convert(specOf(pcm.S16LE, 6, 44100), src, specOf(pcm.S16LE, 1, 44100))
	require.Error(t, err)
	var convErr *ConversionError
	assert.ErrorAs(t, err, &convErr)
}

func TestConvertInPlace_Swap(t *testing.T) {
	buf := []byte{0x02, 0x01}
	require.NoError(t, ConvertInPlace(buf, pcm.S16LE, pcm.S16BE))
	assert.Equal(t, []byte{0x01, 0x02}, buf)
}

func TestConvertInPlace_Unsupported(t *testing.T) {
	buf := []byte{0x01}
	err := ConvertInPlace(buf, pcm.U8, pcm.S16LE)
	require.Error(t, err)
}

func TestResampleCubic_SameRateIsCopy(t *testing.T) {
	src := []float32{0.1, 0.2, 0.3, 0.4}
	out := ResampleCubic(src, 2, 44100, 44100)
	assert.Equal(t, src, out)
}

func TestStreamConverter_NoRateChange_MatchesOneShot(t *testing.T) {
	from := specOf(pcm.U8, 1, 8000)
	to := specOf(pcm.S16LE, 1, 8000)
	src := []byte{0, 64, 128, 192, 255, 10, 20, 250}

	oneShot, err := Convert(from, src, to)
	require.NoError(t, err)

	sc := NewStreamConverter(from, to)
	var streamed []byte
	streamed = append(streamed, sc.ProcessChunk(src[:3])...)
	streamed = append(streamed, sc.ProcessChunk(src[3:])...)
	streamed = append(streamed, sc.Flush()...)

	assert.Equal(t, oneShot, streamed)
}

func TestStreamConverter_ResetClearsState(t *testing.T) {
	sc := NewStreamConverter(specOf(pcm.S16LE, 1, 8000), specOf(pcm.S16LE, 1, 16000))
	sc.ProcessChunk([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	sc.Reset()
	assert.Empty(t, sc.pending)
	assert.Empty(t, sc.history)
	assert.Zero(t, sc.outPos)
}

func TestEstimateOutputSize_UpperBound(t *testing.T) {
	src := specOf(pcm.S16LE, 2, 44100)
	dst := specOf(pcm.S16LE, 2, 22050)
	srcLen := 1000 * src.FrameSize()
	estimate := EstimateOutputSize(src, srcLen, dst)

	b := make([]byte, srcLen)
	out, err := Convert(src, b, dst)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), estimate)
	assert.LessOrEqual(t, estimate-len(out), dst.FrameSize()*4)
}
