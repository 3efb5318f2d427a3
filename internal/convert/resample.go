package convert

// ResampleCubic resamples interleaved float32 frames from srcRate to
// dstRate using Catmull-Rom cubic interpolation over 4 neighboring
// samples per output sample per channel, with boundary clamping at both
// ends of the buffer (spec.md §4.3.1 stage 3c / §4.9). It operates on a
// complete, already-available buffer; see StreamConverter for the
// chunked variant that preserves continuity across calls.
func ResampleCubic(src []float32, channels int, srcRate, dstRate uint32) []float32 {
	if srcRate == dstRate || channels == 0 {
		out := make([]float32, len(src))
		copy(out, src)
		return out
	}
	srcFrames := len(src) / channels
	if srcFrames == 0 {
		return nil
	}
	dstFrames := int(roundRatio(int64(srcFrames), dstRate, srcRate))
	out := make([]float32, dstFrames*channels)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < dstFrames; i++ {
		x := float64(i) * ratio
		idx := int(x)
		t := float32(x - float64(idx))
		for ch := 0; ch < channels; ch++ {
			p0 := frameAt(src, channels, srcFrames, idx-1, ch)
			p1 := frameAt(src, channels, srcFrames, idx, ch)
			p2 := frameAt(src, channels, srcFrames, idx+1, ch)
			p3 := frameAt(src, channels, srcFrames, idx+2, ch)
			out[i*channels+ch] = CatmullRom(p0, p1, p2, p3, t)
		}
	}
	return out
}

// CatmullRom evaluates the cubic Hermite (Catmull-Rom) spline through
// p0..p3 at fractional position t in [0, 1), per spec.md §4.9.
func CatmullRom(p0, p1, p2, p3, t float32) float32 {
	a := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	b := p0 - 2.5*p1 + 2.0*p2 - 0.5*p3
	c := -0.5*p0 + 0.5*p2
	d := p1
	t2 := t * t
	t3 := t2 * t
	return a*t3 + b*t2 + c*t + d
}

// frameAt fetches channel ch of frame idx from an interleaved buffer of
// frameCount frames, clamping idx to [0, frameCount-1] so boundary
// samples replicate the endpoint, per spec.md §4.9.
func frameAt(src []float32, channels, frameCount, idx, ch int) float32 {
	switch {
	case idx < 0:
		idx = 0
	case idx >= frameCount:
		idx = frameCount - 1
	}
	return src[idx*channels+ch]
}
