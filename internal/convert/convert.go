// Package convert implements the audio converter (C4): one-shot format /
// channel / sample-rate conversion with fast paths, Catmull-Rom cubic
// resampling, and a stateful chunked StreamConverter that preserves
// resampler continuity across calls.
package convert

import (
	"github.com/kelindar/musac/internal/pcm"
)

// Convert performs a one-shot conversion of src (encoded per srcSpec) to
// dst's format, channel count and rate, per spec.md §4.3.1.
func Convert(srcSpec pcm.Spec, src []byte, dstSpec pcm.Spec) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	if srcSpec.Format == pcm.Unknown {
		return nil, &UnsupportedFormatError{Format: srcSpec.Format}
	}
	if dstSpec.Format == pcm.Unknown {
		return nil, &UnsupportedFormatError{Format: dstSpec.Format}
	}

	// Fast path: identical specs, byte copy.
	if srcSpec == dstSpec {
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	}

	// Fast path: same channels and rate, endian swap only.
	if srcSpec.Channels == dstSpec.Channels && srcSpec.Rate == dstSpec.Rate &&
		sameWidthEndianSwap(srcSpec.Format, dstSpec.Format) {
		out := make([]byte, len(src))
		copy(out, src)
		swapInPlace(out, srcSpec.Format)
		return out, nil
	}

	// Fast path: same format and rate, mono<->stereo.
	if srcSpec.Format == dstSpec.Format && srcSpec.Rate == dstSpec.Rate {
		if out, ok := fastChannelRemix(src, srcSpec, dstSpec); ok {
			return out, nil
		}
	}

	// General pipeline: format -> channels -> rate.
	floatSrc := toFloatFrames(src, srcSpec)
	floatMid, err := remixChannels(floatSrc, int(srcSpec.Channels), int(dstSpec.Channels), srcSpec.Format)
	if err != nil {
		return nil, err
	}
	floatOut := floatMid
	if srcSpec.Rate != dstSpec.Rate {
		floatOut = ResampleCubic(floatMid, int(dstSpec.Channels), srcSpec.Rate, dstSpec.Rate)
	}
	return fromFloatFrames(floatOut, dstSpec), nil
}

// ConvertInPlace performs a conversion whose output is bit-for-bit the
// same length as the input -- today this is only the 16-bit and 32-bit
// endian swaps. Any other combination returns a ConversionError, per
// spec.md §4.3.2.
func ConvertInPlace(buf []byte, srcFormat, dstFormat pcm.Format) error {
	if !sameWidthEndianSwap(srcFormat, dstFormat) {
		return &ConversionError{Msg: "convert_in_place: unsupported combination"}
	}
	swapInPlace(buf, srcFormat)
	return nil
}

// EstimateOutputSize is an upper bound on len(Convert(src, srcLen, dst)),
// tight to within one destination frame (§8's property). It is used by
// callers (and by original_source's converter, see SPEC_FULL.md) to
// presize destination buffers before calling Convert.
func EstimateOutputSize(src pcm.Spec, srcLen int, dst pcm.Spec) int {
	if src.FrameSize() == 0 {
		return 0
	}
	srcFrames := srcLen / src.FrameSize()
	dstFrames := srcFrames
	if src.Rate != dst.Rate && src.Rate > 0 {
		dstFrames = int(roundRatio(int64(srcFrames), dst.Rate, src.Rate))
	}
	return (dstFrames + 1) * dst.FrameSize()
}

func sameWidthEndianSwap(a, b pcm.Format) bool {
	if a == b {
		return false
	}
	pairs := [][2]pcm.Format{
		{pcm.S16LE, pcm.S16BE}, {pcm.S16BE, pcm.S16LE},
		{pcm.S32LE, pcm.S32BE}, {pcm.S32BE, pcm.S32LE},
		{pcm.F32LE, pcm.F32BE}, {pcm.F32BE, pcm.F32LE},
	}
	for _, p := range pairs {
		if p[0] == a && p[1] == b {
			return true
		}
	}
	return false
}

func swapInPlace(buf []byte, srcFormat pcm.Format) {
	switch srcFormat.ByteSize() {
	case 2:
		pcm.Swap16(buf)
	case 4:
		pcm.Swap32(buf)
	}
}

// fastChannelRemix implements the mono<->stereo duplication/averaging
// fast path directly in the packed integer/float domain, without a
// float32 round trip, per spec.md §4.3.1 stage 2.
func fastChannelRemix(src []byte, srcSpec, dstSpec pcm.Spec) ([]byte, bool) {
	width := srcSpec.Format.ByteSize()
	if width == 0 {
		return nil, false
	}
	switch {
	case srcSpec.Channels == 1 && dstSpec.Channels == 2:
		frames := len(src) / width
		out := make([]byte, frames*2*width)
		for i := 0; i < frames; i++ {
			copy(out[i*2*width:], src[i*width:(i+1)*width])
			copy(out[i*2*width+width:], src[i*width:(i+1)*width])
		}
		return out, true
	case srcSpec.Channels == 2 && dstSpec.Channels == 1:
		frames := len(src) / (2 * width)
		out := make([]byte, frames*width)
		for i := 0; i < frames; i++ {
			averageFrame(out[i*width:(i+1)*width], src[i*2*width:(i+1)*2*width], srcSpec.Format)
		}
		return out, true
	default:
		return nil, false
	}
}

func averageFrame(dst, pair []byte, format pcm.Format) {
	left := pair[:format.ByteSize()]
	right := pair[format.ByteSize():]
	switch format {
	case pcm.U8:
		dst[0] = byte((int(left[0]) + int(right[0])) / 2)
	case pcm.S8:
		dst[0] = byte(int8((int(int8(left[0])) + int(int8(right[0]))) / 2))
	case pcm.S16LE:
		l, r := int16(pcm.ReadU16LE(left)), int16(pcm.ReadU16LE(right))
		pcm.PutU16LE(dst, uint16(int16((int32(l)+int32(r))/2)))
	case pcm.S16BE:
		l, r := int16(pcm.ReadU16BE(left)), int16(pcm.ReadU16BE(right))
		pcm.PutU16BE(dst, uint16(int16((int32(l)+int32(r))/2)))
	case pcm.S32LE:
		l, r := int32(pcm.ReadU32LE(left)), int32(pcm.ReadU32LE(right))
		pcm.PutU32LE(dst, uint32(int32((int64(l)+int64(r))/2)))
	case pcm.S32BE:
		l, r := int32(pcm.ReadU32BE(left)), int32(pcm.ReadU32BE(right))
		pcm.PutU32BE(dst, uint32(int32((int64(l)+int64(r))/2)))
	case pcm.F32LE:
		lf := readF32(left, false)
		rf := readF32(right, false)
		writeF32(dst, (lf+rf)/2, false)
	case pcm.F32BE:
		lf := readF32(left, true)
		rf := readF32(right, true)
		writeF32(dst, (lf+rf)/2, true)
	}
}

func toFloatFrames(src []byte, spec pcm.Spec) []float32 {
	width := spec.Format.ByteSize()
	if width == 0 {
		return nil
	}
	n := len(src) / width
	out := make([]float32, n)
	pcm.ToFloat(out, src, n, spec.Format)
	return out
}

func fromFloatFrames(src []float32, spec pcm.Spec) []byte {
	width := spec.Format.ByteSize()
	out := make([]byte, len(src)*width)
	pcm.FromFloat(out, src, len(src), spec.Format)
	return out
}

// remixChannels converts interleaved float32 frames from srcChannels to
// dstChannels. Only mono<->stereo and the identity case are supported;
// anything else is a ConversionError per spec.md §4.3.1 stage 2.
func remixChannels(src []float32, srcChannels, dstChannels int, format pcm.Format) ([]float32, error) {
	switch {
	case srcChannels == dstChannels:
		return src, nil
	case srcChannels == 1 && dstChannels == 2:
		frames := len(src)
		out := make([]float32, frames*2)
		for i := 0; i < frames; i++ {
			out[i*2] = src[i]
			out[i*2+1] = src[i]
		}
		return out, nil
	case srcChannels == 2 && dstChannels == 1:
		frames := len(src) / 2
		out := make([]float32, frames)
		for i := 0; i < frames; i++ {
			out[i] = (src[i*2] + src[i*2+1]) / 2
		}
		return out, nil
	default:
		return nil, &ConversionError{Msg: "channel remix beyond mono/stereo is unsupported"}
	}
}

func roundRatio(n int64, num, den uint32) int64 {
	if den == 0 {
		return 0
	}
	return (n*int64(num) + int64(den)/2) / int64(den)
}
