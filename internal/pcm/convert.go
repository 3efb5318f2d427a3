package pcm

import "math"

// ToFloat unpacks nSamples scalar samples (not frames) of the given
// format from src into dst as interleaved float32 in [-1, 1]. Callers
// size both slices precisely; ToFloat never allocates.
func ToFloat(dst []float32, src []byte, nSamples int, format Format) {
	switch format {
	case U8:
		for i := 0; i < nSamples; i++ {
			dst[i] = (float32(src[i]) - 128) / 128
		}
	case S8:
		for i := 0; i < nSamples; i++ {
			dst[i] = float32(int8(src[i])) / 128
		}
	case S16LE:
		for i := 0; i < nSamples; i++ {
			v := int16(ReadU16LE(src[i*2:]))
			dst[i] = float32(v) / 32768
		}
	case S16BE:
		for i := 0; i < nSamples; i++ {
			v := int16(ReadU16BE(src[i*2:]))
			dst[i] = float32(v) / 32768
		}
	case S32LE:
		for i := 0; i < nSamples; i++ {
			v := int32(ReadU32LE(src[i*4:]))
			dst[i] = float32(float64(v) / 2147483648)
		}
	case S32BE:
		for i := 0; i < nSamples; i++ {
			v := int32(ReadU32BE(src[i*4:]))
			dst[i] = float32(float64(v) / 2147483648)
		}
	case F32LE:
		for i := 0; i < nSamples; i++ {
			dst[i] = math.Float32frombits(ReadU32LE(src[i*4:]))
		}
	case F32BE:
		for i := 0; i < nSamples; i++ {
			dst[i] = math.Float32frombits(ReadU32BE(src[i*4:]))
		}
	}
}

// FromFloat packs nSamples interleaved float32 samples from src into dst
// in the given format, clipping to the destination's legal range before
// quantization. The scale factor mirrors ToFloat's (a power of two equal
// to the format's negative full scale), so min -> the most negative
// representable value exactly and max -> just short of positive full
// scale, matching the asymmetric mapping spec.md §4.2 requires.
func FromFloat(dst []byte, src []float32, nSamples int, format Format) {
	switch format {
	case U8:
		for i := 0; i < nSamples; i++ {
			dst[i] = byte(quantize(src[i], 128, -128, 127) + 128)
		}
	case S8:
		for i := 0; i < nSamples; i++ {
			dst[i] = byte(int8(quantize(src[i], 128, -128, 127)))
		}
	case S16LE:
		for i := 0; i < nSamples; i++ {
			PutU16LE(dst[i*2:], uint16(int16(quantize(src[i], 32768, -32768, 32767))))
		}
	case S16BE:
		for i := 0; i < nSamples; i++ {
			PutU16BE(dst[i*2:], uint16(int16(quantize(src[i], 32768, -32768, 32767))))
		}
	case S32LE:
		for i := 0; i < nSamples; i++ {
			PutU32LE(dst[i*4:], uint32(int32(quantize64(src[i], 2147483648, -2147483648, 2147483647))))
		}
	case S32BE:
		for i := 0; i < nSamples; i++ {
			PutU32BE(dst[i*4:], uint32(int32(quantize64(src[i], 2147483648, -2147483648, 2147483647))))
		}
	case F32LE:
		for i := 0; i < nSamples; i++ {
			PutU32LE(dst[i*4:], math.Float32bits(clip(src[i])))
		}
	case F32BE:
		for i := 0; i < nSamples; i++ {
			PutU32BE(dst[i*4:], math.Float32bits(clip(src[i])))
		}
	}
}

func clip(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

// quantize maps a clipped float sample to an integer via scale, clamped
// to [lo, hi].
func quantize(v float32, scale, lo, hi int32) int32 {
	q := int32(clip(v) * float32(scale))
	switch {
	case q < lo:
		return lo
	case q > hi:
		return hi
	default:
		return q
	}
}

// quantize64 is quantize's 32-bit-scale variant, computed in float64 to
// avoid float32 precision loss at the 2^31 scale used by S32.
func quantize64(v float32, scale, lo, hi int64) int64 {
	q := int64(float64(clip(v)) * float64(scale))
	switch {
	case q < lo:
		return lo
	case q > hi:
		return hi
	default:
		return q
	}
}
